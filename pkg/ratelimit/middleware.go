package ratelimit

import (
	"net/http"
	"strconv"
)

// Middleware enforces per-IP limiting in front of next. A nil limiter
// disables limiting entirely.
func Middleware(limiter *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			allowed, retryAfter := limiter.Allow(limiter.ClientIP(r))
			if allowed {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded","message":"Too many requests. Please slow down."}`))
		})
	}
}
