package ratelimit

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HandleRateLimitStatus reports the limits that apply to the requesting IP
func (rl *RateLimiter) HandleRateLimitStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ip": c.ClientIP(),
			"limits": gin.H{
				"ip_per_minute": gin.H{
					"limit":  rl.config.IPLimitPerMin,
					"burst":  rl.config.IPLimitPerMin * rl.config.BurstMultiplier,
					"period": "1 minute",
				},
				"analyze_per_hour": gin.H{
					"limit":  rl.config.AnalyzeLimitPerHour,
					"period": "1 hour",
				},
			},
			"redis_enabled": rl.redisClient.IsEnabled(),
			"timestamp":     time.Now().Format(time.RFC3339),
		})
	}
}

// HandleRateLimitMetrics returns limiter and block statistics
func (rl *RateLimiter) HandleRateLimitMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		response := gin.H{
			"limiter_stats": rl.GetStats(),
			"timestamp":     time.Now().Format(time.RFC3339),
		}
		if rl.metrics != nil {
			response["rate_limit_metrics"] = rl.metrics.GetRateLimitStats()
		}
		c.JSON(http.StatusOK, response)
	}
}
