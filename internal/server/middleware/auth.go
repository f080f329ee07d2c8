package middleware

import (
	"crypto/subtle"
	"io"
	"net/http"
	"strings"
)

// Auth returns middleware enforcing a static API key on the control plane.
// Requests may present the key in the X-API-Key header or as an
// Authorization Bearer token. An empty configured key disables the check.
func Auth(apiKey string) func(http.Handler) http.Handler {
	secret := []byte(apiKey)
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := requestKey(r)
			// Constant-time comparison to prevent timing attacks.
			if subtle.ConstantTimeCompare([]byte(presented), secret) != 1 {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusUnauthorized)
				io.WriteString(w, `{"error":"unauthorized"}`)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestKey extracts the presented key, preferring X-API-Key over a Bearer
// token. Missing or malformed credentials yield an empty string, which never
// matches a configured key.
func requestKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return strings.TrimSpace(key)
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		if scheme, token, ok := strings.Cut(auth, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return ""
}
