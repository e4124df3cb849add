package middlewares

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/geocoder89/userhub/internal/errs"
	"github.com/gin-gonic/gin"
)

// RateLimiter is one named bucket of per-IP fixed-window counters. Buckets
// are independent: the same IP can be throttled on one and clear on another.
// State is process-local and resets on restart.
type RateLimiter struct {
	mu               sync.Mutex
	name             string
	window           time.Duration
	limit            int
	excludeSuccesses bool
	clients          map[string]*clientBucket
}

type clientBucket struct {
	count     int
	windowEnd time.Time
}

func NewRateLimiter(name string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		name:    name,
		limit:   limit,
		window:  window,
		clients: make(map[string]*clientBucket),
	}
}

// ExcludingSuccesses makes the bucket count failed attempts only. The
// request is still counted up front so it can be rejected before the
// handler runs, then refunded if the handler succeeds.
func (rl *RateLimiter) ExcludingSuccesses() *RateLimiter {
	rl.excludeSuccesses = true
	return rl
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := clientIP(c)

		now := time.Now()

		rl.mu.Lock()

		b, ok := rl.clients[key]

		if !ok || now.After(b.windowEnd) {
			b = &clientBucket{
				count:     0,
				windowEnd: now.Add(rl.window),
			}
			rl.clients[key] = b
		}

		if b.count >= rl.limit {
			retryAfter := int(time.Until(b.windowEnd).Seconds())

			if retryAfter < 0 {
				retryAfter = 0
			}

			rl.mu.Unlock()

			c.Header("Retry-After", strconv.Itoa(retryAfter))

			abortError(c, errs.TooManyRequests("Too many requests. Please try again shortly."))

			return
		}

		b.count++
		rl.mu.Unlock()

		c.Next()

		if rl.excludeSuccesses && c.Writer.Status() < http.StatusBadRequest {
			rl.mu.Lock()

			// refund only if the same window is still live
			if cur, ok := rl.clients[key]; ok && cur == b && cur.count > 0 {
				cur.count--
			}

			rl.mu.Unlock()
		}
	}
}

func clientIP(c *gin.Context) string {
	// gin's ClientIP respects X-Forwarded-For / X-Real-IP if configured.
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)

	if err == nil && host != "" {
		return host
	}

	return ip
}
