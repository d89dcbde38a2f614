package httpmiddleware

import (
	"net/http"

	"Aethena/backend/go/pkg/ratelimiter"
	"github.com/gin-gonic/gin"
)

// KeyFunc extracts the rate-limiting key from a request.
type KeyFunc func(c *gin.Context) string

// TenantOrIP keys requests by the authenticated tenant, falling back to the
// client IP for unauthenticated routes.
func TenantOrIP(c *gin.Context) string {
	if tenant := c.GetString("tenantID"); tenant != "" {
		return "tenant:" + tenant
	}
	return "ip:" + c.ClientIP()
}

// RateLimit is a middleware that rejects requests once the key's budget is spent.
func RateLimit(limiter ratelimiter.KeyedRateLimiter, key KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(key(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too Many Requests"})
			return
		}
		c.Next()
	}
}
