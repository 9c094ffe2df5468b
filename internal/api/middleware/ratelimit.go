package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mkoppen/linguachat/internal/api/response"
	"github.com/mkoppen/linguachat/internal/repository/redis"
)

// RateLimitMiddleware applies the redis-backed fixed-window limiter.
// Requests are keyed by client IP; there is no authenticated identity in
// this system.
type RateLimitMiddleware struct {
	rateLimiter *redis.RateLimiter
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(rateLimiter *redis.RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{rateLimiter: rateLimiter}
}

// Limit applies rate limiting based on the request's remote address.
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, remaining, resetTime, err := m.rateLimiter.Allow(r.Context(), r.RemoteAddr)
		if err != nil {
			// A broken limiter must not take the service down with it.
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", resetTime.Format(time.RFC3339))

		if !allowed {
			response.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}
