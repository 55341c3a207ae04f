// ratelimit.go implements per-client rate limiting using a token bucket.
//
// How token bucket works:
// - Each client IP gets a "bucket" holding up to N tokens
// - Each request consumes 1 token
// - Tokens refill at a steady rate (N tokens per minute)
// - If the bucket is empty, the request is rejected with 429 Too Many Requests
//
// Bursts up to N are allowed; sustained traffic is held to the refill rate.
package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/i18n"
)

// RateLimiter tracks request rates per client IP.
type RateLimiter struct {
	limit int // requests per minute
	// Go Pattern: A clock held as a func field lets tests move time forward
	// without sleeping.
	now   func() time.Time

	// Go Pattern: Maps are not safe for concurrent use; every request
	// goroutine touches buckets, so all access goes through mu.
	mu      sync.Mutex
	buckets map[string]*bucket

	// Go Pattern: sync.Once makes Stop safe to call twice; closing a closed
	// channel panics.
	stopOnce sync.Once
	stop     chan struct{}
}

// bucket tracks the token state for a single client.
type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// allowResult contains the result of a rate limit check,
// including header information for the response.
type allowResult struct {
	allowed   bool
	remaining float64
}

// NewRateLimiter creates a limiter allowing perMinute requests per client
// and starts its cleanup goroutine. A non-positive limit disables limiting.
func NewRateLimiter(perMinute int) *RateLimiter {
	rl := &RateLimiter{
		limit:   perMinute,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// RateLimit returns Gin middleware that enforces the per-client limit.
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limit <= 0 {
			c.Next()
			return
		}

		result := rl.allow(c.ClientIP())
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", rl.limit))
		if !result.allowed {
			c.Header("X-RateLimit-Remaining", "0")
			abort(c, http.StatusTooManyRequests, "rate_limit_exceeded", i18n.MsgRateLimited)
			return
		}

		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%.0f", result.remaining))
		c.Next()
	}
}

// allow checks if a request should be allowed, consuming a token if so.
func (rl *RateLimiter) allow(key string) allowResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	capacity := float64(rl.limit)

	b, exists := rl.buckets[key]
	if !exists {
		b = &bucket{tokens: capacity, lastRefill: now}
		rl.buckets[key] = b
	}

	// Refill tokens based on elapsed time
	b.tokens += now.Sub(b.lastRefill).Minutes() * capacity
	if b.tokens > capacity {
		b.tokens = capacity
	}
	b.lastRefill = now

	if b.tokens < 1.0 {
		return allowResult{allowed: false}
	}

	b.tokens--
	return allowResult{allowed: true, remaining: b.tokens}
}

// cleanup periodically removes stale buckets to prevent memory leaks.
func (rl *RateLimiter) cleanup() {
	// Go Pattern: time.Ticker sends on its channel at a fixed interval.
	// Always defer ticker.Stop() to release it.
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep(time.Hour)
		case <-rl.stop:
			return
		}
	}
}

// sweep drops buckets unused for longer than idle.
func (rl *RateLimiter) sweep(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastRefill) > idle {
			delete(rl.buckets, key)
		}
	}
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}
