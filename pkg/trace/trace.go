// Package trace wraps golang.org/x/net/trace for convenience. Each function is
// a no-op when the context doesn't carry a trace.
package trace

import (
	"context"

	"golang.org/x/net/trace"
)

// Start begins a trace and returns a context that carries it. The returned
// function finishes the trace, marking it as an error if err is non-nil.
func Start(ctx context.Context, family, title string) (context.Context, func(err error)) {
	tr := trace.New(family, title)
	return trace.NewContext(ctx, tr), func(err error) {
		if err != nil {
			tr.LazyPrintf("error: %v", err)
			tr.SetError()
		}
		tr.Finish()
	}
}

// LazyPrintf adds a formatted entry to the trace in ctx.
func LazyPrintf(ctx context.Context, format string, v ...interface{}) {
	if tr, ok := trace.FromContext(ctx); ok {
		tr.LazyPrintf(format, v...)
	}
}

// SetError records err in the trace in ctx, and marks the trace as an error.
func SetError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if tr, ok := trace.FromContext(ctx); ok {
		tr.LazyPrintf("error: %v", err)
		tr.SetError()
	}
}
