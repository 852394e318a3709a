package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/remind101/deployhook/internal/logger"
)

// Recovery is a middleware that will recover from panics, log them and respond
// with a 500.
func Recovery(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}

				err, ok := v.(error)
				if !ok {
					err = fmt.Errorf("%v", v)
				}

				logger.Error(r.Context(), "request.panic", "err", err, "stack", string(debug.Stack()))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()

		h.ServeHTTP(w, r)
	})
}
