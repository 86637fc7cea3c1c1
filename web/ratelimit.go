package web

import (
	"strconv"
	"sync"
	"time"

	"github.com/kataras/iris/v12"
	"golang.org/x/time/rate"

	"nw-social/internal"
)

type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	Window            time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// RateLimiter keeps one token bucket per client key.
type RateLimiter struct {
	config      RateLimitConfig
	limit       rate.Limit
	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	lastCleanup time.Time
}

// NewRateLimiter returns nil when the config disables limiting.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.RequestsPerWindow <= 0 || config.Window <= 0 {
		return nil
	}
	if config.Burst <= 0 {
		config.Burst = config.RequestsPerWindow
	}
	return &RateLimiter{
		config:      config,
		limit:       rate.Limit(float64(config.RequestsPerWindow) / config.Window.Seconds()),
		limiters:    map[string]*rate.Limiter{},
		lastCleanup: time.Now(),
	}
}

// Allow reports whether key may make another request, and if not, how long
// until it may.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.maybeCleanup()

	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.config.Burst)
		l.limiters[key] = limiter
	}

	if limiter.Allow() {
		return true, 0
	}
	reservation := limiter.Reserve()
	delay := reservation.Delay()
	reservation.Cancel()
	return false, delay
}

// maybeCleanup drops idle buckets, which are the ones that have refilled.
func (l *RateLimiter) maybeCleanup() {
	if time.Since(l.lastCleanup) < 5*time.Minute {
		return
	}
	l.lastCleanup = time.Now()
	for key, limiter := range l.limiters {
		if limiter.Tokens() >= float64(l.config.Burst) {
			delete(l.limiters, key)
		}
	}
}

// RateLimit rejects requests over the limit keyed by client IP.
func (r *Router) RateLimit(l *RateLimiter) iris.Handler {
	return func(ctx iris.Context) {
		key := ctx.Values().GetString(clientIPKey)
		if key == "" {
			key = "unknown"
		}

		ok, delay := l.Allow(key)
		if !ok {
			retryAfter := max(int(delay.Seconds()), 1)
			ctx.Header("Retry-After", strconv.Itoa(retryAfter))
			ctx.Header("X-RateLimit-Limit", strconv.Itoa(l.config.RequestsPerWindow))
			ctx.Header("X-RateLimit-Window", l.config.Window.String())

			ef := internal.TooManyRequests("web", "RateLimit")
			r.fail(ctx, ef)
			return
		}
		ctx.Next()
	}
}
