package middleware

import (
	"net"
	"net/http"
	"strings"
)

// IdentityFunc derives the opaque rate-limiting identity for a request.
type IdentityFunc func(r *http.Request) string

// ClientIdentity returns an IdentityFunc that reads the trusted
// network-layer source-address header set by the edge (for example
// CF-Connecting-IP), falling back to the connection's remote address.
func ClientIdentity(trustedHeader string) IdentityFunc {
	return func(r *http.Request) string {
		if trustedHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(trustedHeader)); v != "" {
				return v
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}
