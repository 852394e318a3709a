package realip

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolver_RealIP(t *testing.T) {
	newRequest := func(remoteAddr, realIP, forwardedFor string) *http.Request {
		req := httptest.NewRequest("POST", "/hooks/secret/staging", nil)
		req.RemoteAddr = remoteAddr
		if realIP != "" {
			req.Header.Set("X-Real-Ip", realIP)
		}
		if forwardedFor != "" {
			req.Header.Set("X-Forwarded-For", forwardedFor)
		}
		return req
	}

	trustHeaders, err := NewResolver(true)
	assert.NoError(t, err)

	ignoreHeaders, err := NewResolver(false)
	assert.NoError(t, err)

	tests := []struct {
		resolver *Resolver
		req      *http.Request
		ip       string
	}{
		{ignoreHeaders, newRequest("144.12.54.87:5000", "", "204.28.121.211"), "144.12.54.87"},
		{trustHeaders, newRequest("144.12.54.87:5000", "", ""), "144.12.54.87"},

		// Untrusted peers can't spoof their address.
		{trustHeaders, newRequest("144.12.54.87:5000", "204.28.121.211", "204.28.121.211"), "144.12.54.87"},

		// The first untrusted address from the right is used.
		{trustHeaders, newRequest("10.0.0.5:5000", "", "204.28.121.211, 49.228.250.246, 10.128.21.180"), "49.228.250.246"},
		{trustHeaders, newRequest("[::1]:5000", "", "49.228.250.246"), "49.228.250.246"},
		{trustHeaders, newRequest("127.0.0.1:5000", "119.14.55.11", ""), "119.14.55.11"},
		{trustHeaders, newRequest("127.0.0.1:5000", "", "10.0.0.1"), "127.0.0.1"},

		// Unix sockets have no peer address.
		{trustHeaders, newRequest("@", "119.14.55.11", ""), "119.14.55.11"},
		{ignoreHeaders, newRequest("", "119.14.55.11", ""), "unix"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.ip, tt.resolver.RealIP(tt.req))
	}
}

func TestNewResolver_InvalidCIDR(t *testing.T) {
	_, err := NewResolver(true, "10.0.0.0/8", "nope")
	assert.EqualError(t, err, `trusted proxy "nope": invalid CIDR address: nope`)
}

func TestMiddleware(t *testing.T) {
	r, err := NewResolver(true, "10.0.0.0/8")
	assert.NoError(t, err)

	var ip string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ip = RealIP(req)
	}), r)

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.1.1.1:5000"
	req.Header.Set("X-Forwarded-For", "49.228.250.246")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "49.228.250.246", ip)
}
