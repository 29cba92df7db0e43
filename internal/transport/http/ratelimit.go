package http

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/shopstack/admin-gateway/internal/proxy"
)

// BurstLimiter is the transport-edge per-IP limiter. It sits in front of the
// whole router and absorbs floods before any authorization work happens; the
// per-identifier window limiter in middleware.go enforces the proxy budget.
type BurstLimiter struct {
	ips             map[string]*rate.Limiter
	mu              sync.RWMutex
	rps             rate.Limit
	burst           int
	cleanupInterval time.Duration
}

// NewBurstLimiter creates a new per-IP burst limiter
func NewBurstLimiter(rps float64, burst int) *BurstLimiter {
	rl := &BurstLimiter{
		ips:             make(map[string]*rate.Limiter),
		rps:             rate.Limit(rps),
		burst:           burst,
		cleanupInterval: 10 * time.Minute,
	}

	go rl.cleanup()

	return rl
}

// GetLimiter returns a limiter for an IP
func (rl *BurstLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.ips[ip]
	if !exists {
		limiter = rate.NewLimiter(rl.rps, rl.burst)
		rl.ips[ip] = limiter
	}

	return limiter
}

// cleanup periodically resets the map to free memory from drive-by IPs.
// Active users get a fresh limiter on their next request.
func (rl *BurstLimiter) cleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	for range ticker.C {
		rl.mu.Lock()
		rl.ips = make(map[string]*rate.Limiter)
		rl.mu.Unlock()
	}
}

// BurstLimitMiddleware creates a middleware for transport-edge rate limiting
func BurstLimitMiddleware(rl *BurstLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := proxy.ClientIP(r)

			limiter := rl.GetLimiter(ip)
			if !limiter.Allow() {
				respondError(w, http.StatusTooManyRequests, "rate limit exceeded", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
