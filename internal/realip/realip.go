// Package realip resolves the address of the client that sent a webhook when
// deployhook runs behind a reverse proxy such as nginx.
package realip

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// LocalNetworks are the networks trusted by a Resolver with no Trusted
// networks configured.
var LocalNetworks = []string{
	"127.0.0.0/8", "10.0.0.0/8", "169.254.0.0/16", "172.16.0.0/12", "192.168.0.0/16", "::1/128", "fc00::/7",
}

// unixAddr is reported for requests received over a Unix socket, which have
// no peer address.
const unixAddr = "unix"

// Resolver is used to resolve the real ip address for an http request.
type Resolver struct {
	// When true, X-Forwarded-For and X-Real-Ip are used, but only for
	// requests whose peer is a trusted proxy or that arrived over a Unix
	// socket.
	TrustHeaders bool

	trusted []*net.IPNet
}

// NewResolver returns a Resolver that trusts proxies in the given CIDRs. With
// no CIDRs, LocalNetworks are trusted.
func NewResolver(trustHeaders bool, cidrs ...string) (*Resolver, error) {
	if len(cidrs) == 0 {
		cidrs = LocalNetworks
	}

	r := &Resolver{TrustHeaders: trustHeaders}
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(strings.TrimSpace(c))
		if err != nil {
			return nil, errors.Wrapf(err, "trusted proxy %q", c)
		}
		r.trusted = append(r.trusted, n)
	}
	return r, nil
}

func (r *Resolver) isTrusted(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range r.trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// peerAddr returns the host portion of the request's RemoteAddr.
func peerAddr(req *http.Request) string {
	if req.RemoteAddr == "" || req.RemoteAddr == "@" {
		return unixAddr
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

// RealIP returns the client's address for the request.
//
// X-Forwarded-For is read from right to left, and the first address that
// isn't a trusted proxy is used. Entries further left were supplied by the
// client and can be spoofed.
func (r *Resolver) RealIP(req *http.Request) string {
	peer := peerAddr(req)
	if !r.TrustHeaders || (peer != unixAddr && !r.isTrusted(peer)) {
		return peer
	}

	if fwd := req.Header.Get("X-Forwarded-For"); fwd != "" {
		addrs := strings.Split(fwd, ",")
		for i := len(addrs) - 1; i >= 0; i-- {
			addr := strings.TrimSpace(addrs[i])
			if addr != "" && !r.isTrusted(addr) {
				return addr
			}
		}
	}

	if ip := strings.TrimSpace(req.Header.Get("X-Real-Ip")); ip != "" {
		return ip
	}

	return peer
}

// Middleware extracts the RealIP from the request and sets it on the request
// context, where RealIP can find it.
func Middleware(h http.Handler, r *Resolver) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ip := r.RealIP(req)
		h.ServeHTTP(w, req.WithContext(context.WithValue(req.Context(), realIPKey, ip)))
	})
}

// RealIP extracts the real ip from the request context. Without the
// Middleware, the peer address is returned.
func RealIP(req *http.Request) string {
	ip, ok := req.Context().Value(realIPKey).(string)
	if !ok {
		return peerAddr(req)
	}
	return ip
}

type key int

const realIPKey key = 0
