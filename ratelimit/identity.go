package ratelimit

import (
	"net/http"
	"strings"
)

// UnknownIdentity is shared by every client that carries no address header.
const UnknownIdentity = "unknown"

// ClientIdentity derives the rate limit key for r: the first X-Forwarded-For
// value, then CF-Connecting-IP, then UnknownIdentity.
func ClientIdentity(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}

	return UnknownIdentity
}
