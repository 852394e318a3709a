// Package client is a client for the deployhook webhook endpoints. It's used
// by `deployhook trigger` so CI jobs don't need curl.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"runtime"

	"github.com/pkg/errors"
	"github.com/remind101/deployhook"
)

const (
	DefaultUserAgent = "deployhook/" + deployhook.Version + " (" + runtime.GOOS + "; " + runtime.GOARCH + ")"
	DefaultURL       = "http://localhost:8080"
)

// ErrRejected is returned when the server responds with a 404, which happens
// for an unknown target, a wrong secret or a malformed version.
var ErrRejected = errors.New("notification rejected: check the target, secret and version")

// ErrUnavailable is returned when the server is shutting down.
var ErrUnavailable = errors.New("deployhook is unavailable")

// Service represents the deployhook API.
type Service struct {
	client *http.Client
	URL    string

	UserAgent string
}

// NewService creates a Service using the given client. If none is provided
// it uses http.DefaultClient.
func NewService(c *http.Client) *Service {
	if c == nil {
		c = http.DefaultClient
	}
	return &Service{
		client:    c,
		URL:       DefaultURL,
		UserAgent: DefaultUserAgent,
	}
}

// NewUnixService creates a Service that connects to the Unix socket at path.
func NewUnixService(path string) *Service {
	var d net.Dialer
	c := &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return d.DialContext(ctx, "unix", path)
			},
		},
	}
	s := NewService(c)
	s.URL = "http://unix"
	return s
}

// Trigger notifies deployhook that version should be deployed to target.
func (s *Service) Trigger(ctx context.Context, target, secret, version string) error {
	q := url.Values{}
	if version != "" {
		q.Set("version", version)
	}

	resp, err := s.do(ctx, "POST", hookPath(target, secret), q)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		return nil
	default:
		return checkResponse(resp)
	}
}

// Status returns the status of target.
func (s *Service) Status(ctx context.Context, target, secret string) (*deployhook.TargetStatus, error) {
	resp, err := s.do(ctx, "GET", hookPath(target, secret)+"/status", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, checkResponse(resp)
	}

	var status deployhook.TargetStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, errors.Wrap(err, "decoding status")
	}
	return &status, nil
}

func (s *Service) do(ctx context.Context, method, path string, q url.Values) (*http.Response, error) {
	u := s.URL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)
	req.Header.Set("User-Agent", s.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "sending notification")
	}
	return resp, nil
}

func hookPath(target, secret string) string {
	return "/hooks/" + url.PathEscape(secret) + "/" + url.PathEscape(target)
}

func checkResponse(resp *http.Response) error {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrRejected
	case http.StatusServiceUnavailable:
		return ErrUnavailable
	default:
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
}
