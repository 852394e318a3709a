// Package server provides an http.Handler implementation that accepts deploy
// webhooks, serves per-target status, GitHub webhooks and a simple health
// check.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/remind101/deployhook"
	"github.com/remind101/deployhook/pkg/httpx"
	"github.com/remind101/deployhook/server/github"
	"golang.org/x/net/trace"
)

// DefaultMaxBodyBytes is the default limit for request bodies.
const DefaultMaxBodyBytes = 1 << 20

var (
	DefaultOptions = Options{}
)

type Options struct {
	// When true, the x/net/trace pages are mounted at /debug/requests and
	// /debug/events.
	Debug bool

	// Limits the size of request bodies. The zero value uses
	// DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// New returns the router for all deployhook routes.
func New(h *deployhook.DeployHook, options Options) http.Handler {
	limit := options.MaxBodyBytes
	if limit == 0 {
		limit = DefaultMaxBodyBytes
	}

	r := httpx.NewRouter()
	r.ErrorHandler = Error
	r.NotFound(httpx.HandlerFunc(notFound))

	// Mount the webhook endpoints.
	r.Handle("/hooks/{secret}/{target}", limitBody(&NotifyHandler{DeployHook: h}, limit), "GET", "POST")
	r.Handle("/hooks/{secret}/{target}/status", &StatusHandler{DeployHook: h}, "GET")

	// Mount GitHub webhooks
	r.Handle("/github/{target}", limitBody(github.New(h), limit), "POST")

	// Mount health endpoint
	r.Handle("/health", httpx.HandlerFunc(health), "GET")

	if options.Debug {
		r.HandleHTTP("/debug/requests", http.HandlerFunc(trace.Traces), "GET")
		r.HandleHTTP("/debug/events", http.HandlerFunc(trace.Events), "GET")
	}

	return r
}

// NotifyHandler is an httpx.Handler that accepts a deploy notification.
type NotifyHandler struct {
	*deployhook.DeployHook
}

func (h *NotifyHandler) ServeHTTPContext(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return deployhook.ErrMalformedRequest
	}

	vars := httpx.Vars(r)
	if err := h.Notify(ctx, vars["secret"], vars["target"], r.Form.Get("version")); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// StatusHandler is an httpx.Handler that returns the status of a target.
type StatusHandler struct {
	*deployhook.DeployHook
}

func (h *StatusHandler) ServeHTTPContext(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	vars := httpx.Vars(r)
	status, err := h.Status(ctx, vars["secret"], vars["target"])
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	return json.NewEncoder(w).Encode(status)
}

func health(_ context.Context, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, err := w.Write([]byte("Ok\n"))
	return err
}

// limitBody caps the size of the request body.
func limitBody(h httpx.Handler, n int64) httpx.Handler {
	return httpx.HandlerFunc(func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		r.Body = http.MaxBytesReader(w, r.Body, n)
		return h.ServeHTTPContext(ctx, w, r)
	})
}

// RedactPath hides the secret in a webhook path, so the path can be logged.
func RedactPath(path string) string {
	const prefix = "/hooks/"
	if !strings.HasPrefix(path, prefix) {
		return path
	}
	rest := path[len(prefix):]
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return prefix + "REDACTED" + rest[i:]
	}
	return prefix + "REDACTED"
}
