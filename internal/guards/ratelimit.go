package guards

import (
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiters owns one token bucket per server, created lazily from the
// configured per-server limits. Servers without a configured limit are
// always allowed.
type RateLimiters struct {
	mu       sync.Mutex
	limits   map[string]int
	limiters map[string]*rate.Limiter
}

// NewRateLimiters creates a limiter registry for the given per-server
// requests-per-second limits.
func NewRateLimiters(limits map[string]int) *RateLimiters {
	if limits == nil {
		limits = map[string]int{}
	}
	return &RateLimiters{
		limits:   limits,
		limiters: map[string]*rate.Limiter{},
	}
}

// Allow reports whether a token was available for the server and consumes it.
// A server with no configured limit is always allowed.
func (r *RateLimiters) Allow(server string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	limiter, ok := r.limiters[server]
	if !ok {
		rps, configured := r.limits[server]
		if !configured {
			return true
		}
		limiter = rate.NewLimiter(rate.Limit(rps), rps)
		r.limiters[server] = limiter
	}

	return limiter.Allow()
}

// Limit returns the configured requests-per-second budget for the server
// and whether one is set.
func (r *RateLimiters) Limit(server string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rps, ok := r.limits[server]
	return rps, ok
}
