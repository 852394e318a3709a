package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/remind101/deployhook"
	"github.com/remind101/deployhook/internal/logger"
)

// ErrorResource represents the error response format that we return.
type ErrorResource struct {
	Status  int    `json:"-"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

var (
	// ErrNotFound is returned for every request that fails to
	// authenticate, so that a caller can't tell an unknown target from a
	// wrong secret.
	ErrNotFound = &ErrorResource{
		Status:  http.StatusNotFound,
		ID:      "not_found",
		Message: "Request failed, the specified resource does not exist",
	}
	ErrInternal = &ErrorResource{
		Status:  http.StatusInternalServerError,
		ID:      "internal_error",
		Message: "Request failed, an unexpected error occurred",
	}
)

// Error is an httpx.ErrorHandler that maps errors returned from handlers to
// responses.
func Error(ctx context.Context, err error, w http.ResponseWriter, r *http.Request) {
	switch errors.Cause(err) {
	case deployhook.ErrUnauthorized, deployhook.ErrMalformedRequest:
		writeError(w, ErrNotFound)
	case deployhook.ErrUnavailable:
		logger.Warn(ctx, "request.unavailable")
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusServiceUnavailable)
	default:
		logger.Error(ctx, "request.error", "err", err)
		writeError(w, ErrInternal)
	}
}

func notFound(_ context.Context, w http.ResponseWriter, r *http.Request) error {
	writeError(w, ErrNotFound)
	return nil
}

func writeError(w http.ResponseWriter, res *ErrorResource) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.Status)
	json.NewEncoder(w).Encode(res)
}
