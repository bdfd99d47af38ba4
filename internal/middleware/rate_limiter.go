package middleware

import (
	_ "embed"
	"fmt"
	"net/http"
	"time"

	"todo_api/internal/auth"
	"todo_api/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

//go:embed rate_limiter.lua
var luaScript string

var tokenBucket = redis.NewScript(luaScript)

// RateLimiterConfig holds rate limiter configuration
type RateLimiterConfig struct {
	Capacity   int     // Maximum number of tokens (max requests)
	RefillRate float64 // Tokens refilled per second
}

// KeyFunc derives the bucket key for a request. An empty key rejects the
// request as unauthenticated.
type KeyFunc func(c *gin.Context) string

// RateLimiterMiddleware implements a token bucket using Redis and a Lua
// script. A nil client disables limiting. Redis errors let the request through.
func RateLimiterMiddleware(redisClient *redis.Client, config *RateLimiterConfig, keyFn KeyFunc, metrics *observability.Metrics) gin.HandlerFunc {
	if redisClient == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := keyFn(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		now := time.Now().UnixMilli()

		allowed, err := tokenBucket.Run(c.Request.Context(), redisClient, []string{key},
			config.Capacity,
			config.RefillRate,
			now,
		).Int64()

		if err != nil {
			logrus.WithError(err).WithField("key", key).Error("Failed to execute rate limiter Lua script")
			c.Next()
			return
		}

		if allowed == 0 {
			if metrics != nil {
				metrics.RateLimitedTotal.Inc()
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"message":     fmt.Sprintf("Maximum %d requests per burst, %.1f per second sustained", config.Capacity, config.RefillRate),
				"retry_after": fmt.Sprintf("%.1f seconds", 1.0/config.RefillRate),
			})
			return
		}

		c.Next()
	}
}

// UserKey buckets requests by the authenticated caller.
func UserKey(c *gin.Context) string {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return ""
	}
	return UserRateLimiterKey(identity.UserID)
}

// ClientIPKey buckets requests by client address, for unauthenticated routes.
func ClientIPKey(c *gin.Context) string {
	return IPRateLimiterKey(c.ClientIP())
}

// Build cache key for user rate limiting
func UserRateLimiterKey(userID int) string {
	return fmt.Sprintf("rate_limiter:user:%d", userID)
}

func IPRateLimiterKey(ip string) string {
	return fmt.Sprintf("rate_limiter:ip:%s", ip)
}
