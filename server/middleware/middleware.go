// Package middleware provides the http.Handler middleware that wraps every
// deployhook route.
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/remind101/deployhook/internal/logger"
	"github.com/remind101/deployhook/internal/realip"
	"github.com/remind101/deployhook/pkg/httpx"
	"github.com/remind101/deployhook/stats"
)

// Options configures Common.
type Options struct {
	// Resolver is used to log the client address. The zero value logs the
	// peer address.
	Resolver *realip.Resolver

	// Redact rewrites the request path before it's logged, so that secrets
	// in the path never reach the logs.
	Redact func(path string) string
}

// Common wraps the handler with common middleware to:
//
// * Log requests
// * Recover from panics.
// * Add the request id to the context.
// * Carry the root logger and stats into the request context.
func Common(root context.Context, h http.Handler, opts Options) http.Handler {
	// Recover from panics.
	h = Recovery(h)

	// Log requests to the embedded logger.
	h = LogRequests(h, opts.Redact)

	// Prefix log messages with the request id.
	h = PrefixRequestID(h)

	// Generate or extract a request id.
	h = RequestID(h)

	if opts.Resolver != nil {
		h = realip.Middleware(h, opts.Resolver)
	}

	return WithContext(root, h)
}

// WithContext copies the logger and stats embedded in root into each
// request's context.
func WithContext(root context.Context, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if l, ok := logger.FromContext(root); ok {
			ctx = logger.WithLogger(ctx, l)
		}
		if s, ok := stats.FromContext(root); ok {
			ctx = stats.WithStats(ctx, s)
		}
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID adds a request id to the context, taken from the X-Request-Id
// header when present. The id is echoed in the response.
func RequestID(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" || len(id) > 200 {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-Id", id)
		h.ServeHTTP(w, r.WithContext(httpx.WithRequestID(r.Context(), id)))
	})
}

// PrefixRequestID adds the request id to every log line.
func PrefixRequestID(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := httpx.RequestID(ctx); id != "" {
			ctx = logger.With(ctx, "request_id", id)
		}
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LogRequests logs the requests to the embedded logger.
func LogRequests(h http.Handler, redact func(string) string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		start := time.Now()

		path := r.URL.EscapedPath()
		if redact != nil {
			path = redact(path)
		}

		logger.Info(ctx, "request.start",
			"method", r.Method,
			"path", path,
			"remote_addr", realip.RealIP(r),
		)

		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rw, r)

		logger.Info(ctx, "request.complete",
			"status", rw.status,
			"duration", time.Since(start),
		)
		stats.Inc(ctx, "http.request", 1, 1.0, []string{"status:" + strconv.Itoa(rw.status)})
	})
}

// statusWriter records the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(p)
}
