package middleware

import (
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	pkgredis "github.com/shelfscout/server/internal/pkg/redis"
	"github.com/shelfscout/server/internal/pkg/response"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	rateLimitWindow    = time.Second
	limiterIdleTimeout = 10 * time.Minute
)

// RateLimitOptions configures RateLimit. A non-positive RequestsPerSecond
// disables limiting.
type RateLimitOptions struct {
	RequestsPerSecond float64
	Burst             int
	// Redis enables a fixed one-second window shared across instances.
	Redis  *pkgredis.Client
	Logger *zap.Logger
}

// RateLimit limits requests per client IP. With Redis the budget is
// RequestsPerSecond+Burst per one-second window; without it each IP gets an
// in-process token bucket.
func RateLimit(opts RateLimitOptions) gin.HandlerFunc {
	if opts.RequestsPerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var local *ipLimiters
	if opts.Redis == nil {
		local = newIPLimiters(rate.Limit(opts.RequestsPerSecond), opts.Burst)
	}
	windowMax := int64(opts.RequestsPerSecond) + int64(opts.Burst)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		if local != nil {
			if !local.allow(ip, time.Now()) {
				response.TooManyRequests(c)
				return
			}
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := fmt.Sprintf("shelfscout:rate_limit:%s:%d", ip, time.Now().Unix())
		count, err := opts.Redis.Incr(ctx, key, rateLimitWindow+time.Second)
		if err != nil {
			log.Debug("rate limit counter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if count > windowMax {
			response.TooManyRequests(c)
			return
		}
		c.Next()
	}
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type ipLimiters struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	entries   map[string]*ipLimiter
	lastSweep time.Time
}

func newIPLimiters(limit rate.Limit, burst int) *ipLimiters {
	return &ipLimiters{
		limit:     limit,
		burst:     burst,
		entries:   make(map[string]*ipLimiter),
		lastSweep: time.Now(),
	}
}

func (l *ipLimiters) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > limiterIdleTimeout {
		for k, e := range l.entries {
			if now.Sub(e.lastSeen) > limiterIdleTimeout {
				delete(l.entries, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.entries[ip]
	if !ok {
		e = &ipLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[ip] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}
