package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gigbridge-platform/pkg/config"
)

// RateLimit is a fixed-window counter keyed by client IP, stored in redis so
// the window is shared across API instances.
func RateLimit(rdb *redis.Client, cfg *config.Config) gin.HandlerFunc {
	limit := cfg.RateLimit.Requests
	window := cfg.RateLimit.Window
	if limit <= 0 {
		limit = 300
	}
	if window <= 0 {
		window = time.Minute
	}

	return func(c *gin.Context) {
		if !cfg.RateLimit.Enable {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		slot := time.Now().Unix() / int64(window.Seconds())
		key := fmt.Sprintf("ratelimit:%s:%d", c.ClientIP(), slot)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			// redis trouble should not take the API down
			zap.L().Warn("rate limit counter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if count == 1 {
			_ = rdb.Expire(ctx, key, window).Err()
		}

		if count > limit {
			c.AbortWithStatusJSON(429, gin.H{"success": false, "message": "too many requests"})
			return
		}

		c.Next()
	}
}
