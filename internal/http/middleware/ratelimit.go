package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	visitorTTL = 10 * time.Minute
	sweepEvery = 5000 // lookups between idle-bucket sweeps
)

// keyFunc maps a request to its bucket.
type keyFunc func(*gin.Context) string

// KeyByClientIP buckets by client address. Behind a proxy, set the engine's
// trusted proxies so ClientIP reports the forwarded address.
func KeyByClientIP() keyFunc {
	return func(c *gin.Context) string { return "ip:" + c.ClientIP() }
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a process-local token bucket per key. Idle buckets are
// swept every sweepEvery lookups. Safe for concurrent use.
type RateLimiter struct {
	rps        rate.Limit
	burst      int
	retryAfter string
	keyFn      keyFunc

	mu       sync.Mutex
	visitors map[string]*visitor
	skip     map[string]struct{}
	lookups  uint64
	ttl      time.Duration
}

// NewRateLimiter builds a limiter refilling rps tokens per second up to
// burst (at least 1).
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:        rate.Limit(rps),
		burst:      burst,
		retryAfter: retryAfterSeconds(rps),
		keyFn:      keyFn,
		visitors:   make(map[string]*visitor),
		skip:       make(map[string]struct{}),
		ttl:        visitorTTL,
	}
}

// retryAfterSeconds is the time until one token is back, rounded up.
func retryAfterSeconds(rps float64) string {
	if rps <= 0 {
		return "60"
	}
	return strconv.Itoa(int(math.Max(1, math.Ceil(1/rps))))
}

// Skip exempts route patterns, as reported by c.FullPath, from limiting.
// "/user/:token" therefore covers every token.
func (rl *RateLimiter) Skip(paths ...string) *RateLimiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for _, p := range paths {
		rl.skip[p] = struct{}{}
	}
	return rl
}

func (rl *RateLimiter) skipped(c *gin.Context) bool {
	p := c.FullPath()
	if p == "" {
		return false
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	_, ok := rl.skip[p]
	return ok
}

// getVisitor returns the bucket for key. The sweep runs before the lookup
// so a stale bucket for key itself is replaced rather than refreshed.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.lookups++; rl.lookups >= sweepEvery {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.lookups = 0
	}

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Handler rejects over-limit requests with 429 and the shared error body.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.skipped(c) || rl.getVisitor(rl.keyFn(c)).Allow() {
			c.Next()
			return
		}
		c.Header("Retry-After", rl.retryAfter)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
