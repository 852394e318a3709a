package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouter(t *testing.T) {
	r := NewRouter()
	r.Handle("/hooks/{target}", HandlerFunc(func(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
		w.Write([]byte(Vars(req)["target"]))
		return nil
	}), "GET", "POST")

	for _, method := range []string{"GET", "POST"} {
		resp := httptest.NewRecorder()
		req, _ := http.NewRequest(method, "/hooks/staging", nil)
		r.ServeHTTP(resp, req)

		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "staging", resp.Body.String())
	}
}

func TestRouter_EscapedVars(t *testing.T) {
	r := NewRouter()
	r.Handle("/hooks/{secret}/{target}", HandlerFunc(func(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
		vars := Vars(req)
		w.Write([]byte(vars["secret"] + " " + vars["target"]))
		return nil
	}), "POST")

	resp := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/hooks/ab%2Fcd+ef==/staging", nil)
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "ab/cd+ef== staging", resp.Body.String())
}

func TestRouter_ErrorHandler(t *testing.T) {
	errBoom := errors.New("boom")

	var handled error
	r := NewRouter()
	r.ErrorHandler = func(ctx context.Context, err error, w http.ResponseWriter, req *http.Request) {
		handled = err
		w.WriteHeader(http.StatusTeapot)
	}
	r.Handle("/", HandlerFunc(func(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
		return errBoom
	}))

	resp := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusTeapot, resp.Code)
	assert.Equal(t, errBoom, handled)
}

func TestRouter_DefaultErrorHandler(t *testing.T) {
	r := NewRouter()
	r.Handle("/", HandlerFunc(func(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
		return errors.New("boom")
	}))

	resp := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestRouter_NotFound(t *testing.T) {
	r := NewRouter()
	r.Handle("/health", HandlerFunc(func(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
		return nil
	}), "GET")
	r.NotFound(HandlerFunc(func(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
		http.Error(w, "nope", http.StatusNotFound)
		return nil
	}))

	tests := []struct {
		method, path string
	}{
		{"GET", "/missing"},
		{"DELETE", "/health"},
	}

	for _, tt := range tests {
		resp := httptest.NewRecorder()
		req, _ := http.NewRequest(tt.method, tt.path, nil)
		r.ServeHTTP(resp, req)

		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, "nope\n", resp.Body.String())
	}
}

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abcd")
	assert.Equal(t, "abcd", RequestID(ctx))
	assert.Equal(t, "", RequestID(context.Background()))
}
