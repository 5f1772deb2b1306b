package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

func setHeaders(c *gin.Context, prefix string, result *Result) {
	c.Header(prefix+"-Limit", strconv.Itoa(result.Limit))
	c.Header(prefix+"-Remaining", strconv.Itoa(result.Remaining))
	if !result.ResetAt.IsZero() {
		c.Header(prefix+"-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
	}
}

func retryAfterSeconds(result *Result) int {
	secs := int(result.RetryAfter.Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}

// IPRateLimitMiddleware creates middleware for IP-based rate limiting
func (rl *RateLimiter) IPRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		result, err := rl.AllowIP(c.Request.Context(), ip)
		if err != nil {
			// a limiter failure never blocks the request
			slog.Error("Rate limit check failed", "ip", ip, "error", err)
			c.Next()
			return
		}

		setHeaders(c, "X-RateLimit", result)

		if !result.Allowed {
			if rl.metrics != nil {
				rl.metrics.IncrementRateLimitIPBlock()
			}
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(result)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded for IP",
				"message":     fmt.Sprintf("You have exceeded the rate limit of %d requests per minute", result.Limit),
				"retry_after": retryAfterSeconds(result),
				"reset_at":    result.ResetAt.Unix(),
			})
			return
		}

		c.Next()
	}
}

// AnalyzeRateLimitMiddleware limits the routes that spend YouTube quota
func (rl *RateLimiter) AnalyzeRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		result, err := rl.AllowAnalyze(c.Request.Context(), ip)
		if err != nil {
			slog.Error("Analyze rate limit check failed", "ip", ip, "error", err)
			c.Next()
			return
		}

		setHeaders(c, "X-RateLimit-Analyze", result)

		if !result.Allowed {
			if rl.metrics != nil {
				rl.metrics.IncrementRateLimitEndpoint(c.FullPath())
			}
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(result)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "analysis limit exceeded",
				"message":     fmt.Sprintf("You have used all %d analyses for this hour", result.Limit),
				"retry_after": retryAfterSeconds(result),
				"reset_at":    result.ResetAt.Unix(),
			})
			return
		}

		c.Next()
	}
}

// EndpointRateLimitMiddleware applies a per-minute limit to one endpoint
func (rl *RateLimiter) EndpointRateLimitMiddleware(endpoint string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		key := fmt.Sprintf("ratelimit:endpoint:%s:%s", endpoint, ip)

		result, err := rl.Allow(c.Request.Context(), key, Rate{Limit: limit, Period: time.Minute})
		if err != nil {
			slog.Error("Endpoint rate limit check failed", "endpoint", endpoint, "ip", ip, "error", err)
			c.Next()
			return
		}

		setHeaders(c, "X-RateLimit-Endpoint", result)

		if !result.Allowed {
			if rl.metrics != nil {
				rl.metrics.IncrementRateLimitEndpoint(endpoint)
			}
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(result)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       fmt.Sprintf("rate limit exceeded for endpoint: %s", endpoint),
				"message":     fmt.Sprintf("You have exceeded the rate limit of %d requests per minute for this endpoint", result.Limit),
				"retry_after": retryAfterSeconds(result),
			})
			return
		}

		c.Next()
	}
}
