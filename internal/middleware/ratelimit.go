package middleware

import (
	"net/http"
	"time"

	"filehost-backend/internal/apierror"

	"github.com/go-chi/httprate"
)

// RateLimit limits requests per minute per authenticated client, falling back to
// the client IP. It must run after APIKeyAuth. A non-positive limit disables it.
func RateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	return limit(requestsPerMinute, keyByClient)
}

// RateLimitByIP limits requests per minute per client IP, for unauthenticated routes.
// A non-positive limit disables it.
func RateLimitByIP(requestsPerMinute int) func(http.Handler) http.Handler {
	return limit(requestsPerMinute, httprate.KeyByIP)
}

func limit(requestsPerMinute int, keyFunc httprate.KeyFunc) func(http.Handler) http.Handler {
	if requestsPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			apierror.Write(w, r, "Too many requests", http.StatusTooManyRequests)
		}),
	)
}

// keyByClient keys on the client APIKeyAuth stored in the context, never on raw headers
func keyByClient(r *http.Request) (string, error) {
	if client := GetClient(r.Context()); client != nil {
		return "client:" + client.ID, nil
	}
	return httprate.KeyByIP(r)
}
