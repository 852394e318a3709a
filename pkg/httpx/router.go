package httpx

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
)

// ErrorHandler represents a function that can handle the error returned from a
// Handler.
type ErrorHandler func(context.Context, error, http.ResponseWriter, *http.Request)

// Router is an httpx.Handler router.
//
// Note that Router does not implement the httpx.Handler interface, primarily
// because most Go http routers are tightly coupled to the http.Handler
// interface, or their own interface. The context passed to handlers is the
// request's context.
type Router struct {
	// ErrorHandler is a function that will be called when a handler returns
	// an error. The zero value responds with a 500.
	ErrorHandler ErrorHandler

	// This router is ultimately backed by a gorilla mux router.
	mux *mux.Router
}

// NewRouter returns a new Router instance.
func NewRouter() *Router {
	return &Router{
		mux: mux.NewRouter().UseEncodedPath(),
	}
}

// Handle adds a new route that routes requests using any of the given method
// verbs against path to the given Handler.
func (r *Router) Handle(path string, h Handler, methods ...string) {
	route := r.mux.Handle(path, &handler{r, h})
	if len(methods) > 0 {
		route.Methods(methods...)
	}
}

// HandleHTTP adds a route to a plain http.Handler.
func (r *Router) HandleHTTP(path string, h http.Handler, methods ...string) {
	route := r.mux.Handle(path, h)
	if len(methods) > 0 {
		route.Methods(methods...)
	}
}

// NotFound sets the Handler that is called when no route matches, or when a
// route matches with the wrong method.
func (r *Router) NotFound(h Handler) {
	r.mux.NotFoundHandler = &handler{r, h}
	r.mux.MethodNotAllowedHandler = &handler{r, h}
}

// ServeHTTP implements the http.Handler interface.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) handleError(ctx context.Context, err error, w http.ResponseWriter, req *http.Request) {
	if r.ErrorHandler != nil {
		r.ErrorHandler(ctx, err, w, req)
		return
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// handler adapts a Handler to an http.Handler.
type handler struct {
	router  *Router
	handler Handler
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.handler.ServeHTTPContext(ctx, w, r); err != nil {
		h.router.handleError(ctx, err, w, r)
	}
}
