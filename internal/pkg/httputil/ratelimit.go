package httputil

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitMiddleware creates a middleware that limits request throughput
// using a shared token bucket. Requests beyond the burst are rejected with
// 429 rather than queued, so a credential-stuffing run cannot pile up work.
func RateLimitMiddleware(rps float64, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				Error(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
