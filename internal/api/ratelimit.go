package api

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ashureev/teamhub/internal/identity"
)

// RateLimiter implements a per-user sliding window.
// The key is userID only, not userID:sessionID, so clients cannot bypass
// throttling by rotating session IDs.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

// NewRateLimiter creates a rate limiter. Call Run to evict idle keys.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Allow checks if a request is allowed for the given key.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	recent := prune(r.requests[key], now.Add(-r.window))

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// RetryAfter returns how long until key may send again.
func (r *RateLimiter) RetryAfter(key string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	times := r.requests[key]
	if len(times) < r.limit {
		return 0
	}
	wait := times[0].Add(r.window).Sub(r.now())
	if wait < 0 {
		return 0
	}
	return wait
}

func prune(times []time.Time, cutoff time.Time) []time.Time {
	var fresh []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			fresh = append(fresh, t)
		}
	}
	return fresh
}

// Evict removes keys with no request inside the window.
func (r *RateLimiter) Evict() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.window)
	evicted := 0
	for key, times := range r.requests {
		fresh := prune(times, cutoff)
		if len(fresh) == 0 {
			delete(r.requests, key)
			evicted++
		} else {
			r.requests[key] = fresh
		}
	}
	return evicted
}

// Run evicts expired keys every window until ctx is done, preventing
// unbounded memory growth.
func (r *RateLimiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Evict()
		case <-ctx.Done():
			return nil
		}
	}
}

// Middleware rejects requests over the limit with 429.
func (r *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		key := identity.UserIDFromContext(req.Context())
		if key == "" {
			key = identity.IPFromRequest(req)
		}
		if !r.Allow(key) {
			secs := int(r.RetryAfter(key).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			Error(w, http.StatusTooManyRequests, "rate_limited")
			return
		}
		next.ServeHTTP(w, req)
	})
}
