// Package middleware provides HTTP middleware for the prayer tracker API.
package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"prayer-tracker/internal/shared/clock"
	apperrors "prayer-tracker/internal/shared/errors"
)

// RateLimiter implements a sliding window rate limiter based on client IP.
type RateLimiter struct {
	mu          sync.Mutex
	clock       clock.Clock
	requests    map[string][]time.Time
	limit       int
	window      time.Duration
	cleanupStop chan struct{}
	stopOnce    sync.Once
}

// NewRateLimiter creates a rate limiter allowing limit requests per minute
// per client. A nil clock uses the system clock.
func NewRateLimiter(limit int, clk clock.Clock) *RateLimiter {
	if clk == nil {
		clk = clock.System
	}
	rl := &RateLimiter{
		clock:       clk,
		requests:    make(map[string][]time.Time),
		limit:       limit,
		window:      time.Minute,
		cleanupStop: make(chan struct{}),
	}
	go rl.cleanup(clk.NewTicker(5 * time.Minute))
	return rl
}

// cleanup periodically drops clients with no requests in the window.
func (rl *RateLimiter) cleanup(ticker clock.Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C():
			rl.prune()
		case <-rl.cleanupStop:
			return
		}
	}
}

func (rl *RateLimiter) prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.clock.Now()
	for ip, times := range rl.requests {
		valid := inWindow(times, now.Add(-rl.window))
		if len(valid) == 0 {
			delete(rl.requests, ip)
		} else {
			rl.requests[ip] = valid
		}
	}
}

// Clients reports how many clients are currently tracked.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.requests)
}

// Allow checks if a request from the given IP is allowed.
// Returns (allowed, retryAfter) where retryAfter is seconds until the next allowed request.
func (rl *RateLimiter) Allow(ip string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	valid := inWindow(rl.requests[ip], now.Add(-rl.window))

	if len(valid) >= rl.limit {
		retryAfter := int((rl.window - now.Sub(valid[0])).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		rl.requests[ip] = valid
		return false, retryAfter
	}

	rl.requests[ip] = append(valid, now)
	return true, 0
}

func inWindow(times []time.Time, windowStart time.Time) []time.Time {
	var valid []time.Time
	for _, t := range times {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}
	return valid
}

// getClientIP extracts the client IP from the request.
// X-Forwarded-For can be spoofed; it is honored because the daemon is meant
// to sit behind a local reverse proxy or be reached directly.
func getClientIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		parts := strings.Split(xff, ",")
		first := strings.TrimSpace(parts[0])
		if first != "" {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr (strip port)
	addr := r.RemoteAddr
	// Handle IPv6 format: [2001:db8::1]:port
	if len(addr) > 0 && addr[0] == '[' {
		if end := strings.IndexByte(addr, ']'); end != -1 {
			return addr[1:end]
		}
	}
	// Handle IPv4 format: 192.168.1.1:port
	if lastColon := strings.LastIndexByte(addr, ':'); lastColon != -1 {
		return addr[:lastColon]
	}
	return addr
}

// Stop stops the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.cleanupStop) })
}

// RateLimitMiddleware creates an HTTP middleware that enforces rate limiting.
// Returns 429 Too Many Requests with Retry-After header when limit is exceeded.
func RateLimitMiddleware(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter := limiter.Allow(getClientIP(r))
			if !allowed {
				apperrors.WriteError(w, apperrors.RateLimitedError(retryAfter))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
