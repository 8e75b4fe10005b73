package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
)

// maxTrackedClients bounds how many per-client limiters are kept.
const maxTrackedClients = 4096

// RateLimit applies a token bucket per client IP. Limiters for clients not
// seen recently are evicted.
func RateLimit(cfg domain.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RequestsPerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	// New only fails on a non-positive size
	limiters, _ := lru.New[string, *rate.Limiter](maxTrackedClients)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		limiter, ok := limiters.Get(ip)
		if !ok {
			fresh := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
			if prev, found, _ := limiters.PeekOrAdd(ip, fresh); found {
				limiter = prev
			} else {
				limiter = fresh
			}
		}

		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.NewEngineError(
				domain.ErrCodeRateLimit,
				"Too many requests",
				"",
				c.GetString(CorrelationIDKey),
			))
			return
		}

		c.Next()
	}
}
