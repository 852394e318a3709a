// Package httpx provides a context aware variant of the net/http Handler
// interface, which allows handlers to return errors instead of writing them
// directly.
package httpx

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
)

// Handler represents a handler that can take a context.Context as the
// first argument.
type Handler interface {
	ServeHTTPContext(context.Context, http.ResponseWriter, *http.Request) error
}

// The HandlerFunc type is an adapter to allow the use of ordinary functions as
// httpx handlers.
type HandlerFunc func(context.Context, http.ResponseWriter, *http.Request) error

// ServeHTTPContext calls f(ctx, w, r)
func (f HandlerFunc) ServeHTTPContext(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return f(ctx, w, r)
}

// Vars returns the route variables for the request. Routes are matched
// against the escaped path, so a variable can contain an escaped '/'. The
// returned values are unescaped.
func Vars(r *http.Request) map[string]string {
	vars := make(map[string]string)
	for k, v := range mux.Vars(r) {
		if unescaped, err := url.PathUnescape(v); err == nil {
			v = unescaped
		}
		vars[k] = v
	}
	return vars
}

// WithRequestID inserts a RequestID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID extracts a RequestID from a context.
func RequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey).(string)
	return requestID
}

type key int

const (
	requestIDKey key = iota
)
