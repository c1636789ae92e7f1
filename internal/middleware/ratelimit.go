package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"fe-v2/pkg/errors"
	"fe-v2/pkg/logger"
)

// RateLimiter is a sliding window limiter keyed by client address
type RateLimiter struct {
	mu        sync.Mutex
	requests  map[string][]time.Time
	limit     int
	window    time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// NewRateLimiter allows limit requests per key within window
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Allow records a request for key and reports whether it is within the limit.
// When it is not, retryAfter is how long until the oldest request leaves the window.
func (rl *RateLimiter) Allow(key string) (ok bool, retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)
	if now.Sub(rl.lastSweep) >= rl.window {
		rl.sweep(cutoff)
		rl.lastSweep = now
	}

	kept := rl.requests[key][:0]
	for _, at := range rl.requests[key] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}

	if len(kept) >= rl.limit {
		rl.requests[key] = kept
		return false, kept[0].Add(rl.window).Sub(now)
	}

	rl.requests[key] = append(kept, now)
	return true, 0
}

// sweep drops keys with no request newer than cutoff
func (rl *RateLimiter) sweep(cutoff time.Time) {
	for key, times := range rl.requests {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(rl.requests, key)
		}
	}
}

// RateLimit rejects requests over the limiter's budget with 429
func RateLimit(rl *RateLimiter, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			ok, retryAfter := rl.Allow(key)
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			logger.WithFields(map[string]interface{}{
				"client_ip":  key,
				"path":       r.URL.Path,
				"request_id": GetRequestID(r.Context()),
			}).Warn("Rate limit exceeded")

			appErr := errors.NewRateLimitError(retryAfter)
			response := &errors.ErrorResponse{}
			response.Error.Type = appErr.Type
			response.Error.Message = appErr.Message
			response.Error.Details = appErr.Details
			response.Error.RequestID = GetRequestID(r.Context())
			response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

			seconds := int(retryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(appErr.StatusCode)
			_ = json.NewEncoder(w).Encode(response)
		})
	}
}

// clientIP is the request's remote host. Forwarded headers are resolved
// earlier by chi's RealIP.
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
