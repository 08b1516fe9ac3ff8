package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/rmitchellscott/ditherbox/internal/logging"
)

// ClientRateLimiter limits requests per client IP with a token bucket
type ClientRateLimiter struct {
	perMinute int
	limiters  map[string]*clientLimit
	mutex     sync.Mutex
}

type clientLimit struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientRateLimiter creates a limiter allowing perMinute requests per
// client, with bursts of the same size. perMinute <= 0 disables limiting.
func NewClientRateLimiter(perMinute int) *ClientRateLimiter {
	return &ClientRateLimiter{
		perMinute: perMinute,
		limiters:  make(map[string]*clientLimit),
	}
}

// RateLimit is a middleware that rejects clients over their budget with 429
func (crl *ClientRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if crl.perMinute <= 0 {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if !crl.allow(ip, time.Now()) {
			logging.WarnWithComponent(logging.ComponentHTTP, "Rate limit exceeded", "ip", ip, "path", c.FullPath())
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":      "Rate limit exceeded",
				"rate_limit": crl.perMinute,
				"window":     "1 minute",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func (crl *ClientRateLimiter) allow(key string, now time.Time) bool {
	crl.mutex.Lock()
	defer crl.mutex.Unlock()

	entry, exists := crl.limiters[key]
	if !exists {
		entry = &clientLimit{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(crl.perMinute)), crl.perMinute),
		}
		crl.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// Cleanup drops clients not seen for longer than idle
func (crl *ClientRateLimiter) Cleanup(idle time.Duration) {
	crl.mutex.Lock()
	defer crl.mutex.Unlock()

	now := time.Now()
	for key, entry := range crl.limiters {
		if now.Sub(entry.lastSeen) >= idle {
			delete(crl.limiters, key)
		}
	}
}

// StartCleanup prunes idle clients every interval until stop is closed
func (crl *ClientRateLimiter) StartCleanup(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				crl.Cleanup(interval)
			}
		}
	}()
}

// RequestSizeLimit rejects bodies larger than maxBytes with 413 and caps the
// body reader for requests without a Content-Length
func RequestSizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			logging.WarnWithComponent(logging.ComponentHTTP, "Request too large", "size", c.Request.ContentLength, "limit", maxBytes, "ip", c.ClientIP())
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":     "Request payload too large",
				"max_size":  fmt.Sprintf("%dB", maxBytes),
				"your_size": fmt.Sprintf("%dB", c.Request.ContentLength),
			})
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
