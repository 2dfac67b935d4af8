package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"runeRelicServer/metrics"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the per-IP limiter on expensive endpoints
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	IdleTimeout       time.Duration // limiters unused this long are dropped
}

var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 2,
	Burst:             5,
	IdleTimeout:       5 * time.Minute,
}

type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter throttles replay verification per client address
type IPRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*ipLimiterEntry
	config    RateLimitConfig
	lastSweep time.Time
}

func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	return &IPRateLimiter{
		limiters:  make(map[string]*ipLimiterEntry),
		config:    cfg,
		lastSweep: time.Now(),
	}
}

func (rl *IPRateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastSweep) > rl.config.IdleTimeout {
		for k, e := range rl.limiters {
			if now.Sub(e.lastSeen) > rl.config.IdleTimeout {
				delete(rl.limiters, k)
			}
		}
		rl.lastSweep = now
	}

	e, ok := rl.limiters[ip]
	if !ok {
		e = &ipLimiterEntry{limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst)}
		rl.limiters[ip] = e
	}
	e.lastSeen = now
	return e.limiter.Allow()
}

// Middleware rejects requests over the limit with 429
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !rl.allow(ip) {
			metrics.Verifications.WithLabelValues("rate_limited").Inc()
			sendError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
