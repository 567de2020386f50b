package web

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientLimiter is one client's token bucket and when it was last used
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter throttles form submissions per client IP
type RateLimiter struct {
	perMinute int
	ttl       time.Duration
	now       func() time.Time

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

// NewRateLimiter allows perMinute attempts per client per minute, all of which
// may be spent at once. Idle entries older than ttl are dropped by Cleanup.
func NewRateLimiter(perMinute int, ttl time.Duration) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &RateLimiter{
		perMinute: perMinute,
		ttl:       ttl,
		now:       time.Now,
		clients:   make(map[string]*clientLimiter),
	}
}

// Allow reports whether key may make one more attempt now
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cl, ok := rl.clients[key]
	if !ok {
		limit := rate.Limit(float64(rl.perMinute) / 60.0)
		cl = &clientLimiter{limiter: rate.NewLimiter(limit, rl.perMinute)}
		rl.clients[key] = cl
	}
	cl.lastAccess = now

	return cl.limiter.AllowN(now, 1)
}

// RetryAfter is the estimated wait in seconds until one attempt is refilled
func (rl *RateLimiter) RetryAfter() int {
	return (60 + rl.perMinute - 1) / rl.perMinute
}

// Cleanup drops clients idle for longer than the ttl and returns how many
func (rl *RateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for key, cl := range rl.clients {
		if now.Sub(cl.lastAccess) > rl.ttl {
			delete(rl.clients, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Middleware rejects over-limit requests. onLimited writes the response; the
// Retry-After header is already set when it runs.
func (rl *RateLimiter) Middleware(onLimited gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.Allow(c.ClientIP()) {
			c.Next()
			return
		}

		c.Header("Retry-After", strconv.Itoa(rl.RetryAfter()))
		onLimited(c)
		c.Abort()
	}
}
