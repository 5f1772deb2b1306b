package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"

	"github.com/ZanzyTHEbar/tube-o-meter/internal/monitoring"
)

// Config holds rate limiter configuration
type Config struct {
	IPLimitPerMin       int           `yaml:"ip_limit_per_min"`       // all routes, per client IP
	AnalyzeLimitPerHour int           `yaml:"analyze_limit_per_hour"` // quota-spending routes, per client IP
	BurstMultiplier     int           `yaml:"burst_multiplier"`
	CleanupInterval     time.Duration `yaml:"cleanup_interval"`
	MaxFallbackKeys     int           `yaml:"max_fallback_keys"`
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() Config {
	return Config{
		IPLimitPerMin:       60,
		AnalyzeLimitPerHour: 30,
		BurstMultiplier:     2,
		CleanupInterval:     time.Hour,
		MaxFallbackKeys:     1000,
	}
}

// Rate is a limit of Limit events per Period. Burst defaults to Limit.
type Rate struct {
	Limit  int
	Burst  int
	Period time.Duration
}

func (r Rate) burst() int {
	if r.Burst > 0 {
		return r.Burst
	}
	return r.Limit
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RateLimiter provides distributed rate limiting with Redis and in-memory fallback
type RateLimiter struct {
	redisLimiter *redis_rate.Limiter
	redisClient  *RedisClient
	config       Config
	metrics      *monitoring.Metrics

	fallbackLimiters map[string]*rate.Limiter
	fallbackMutex    sync.RWMutex

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a new rate limiter with Redis and in-memory fallback.
// A nil redisClient means in-memory only.
func NewRateLimiter(redisClient *RedisClient, config Config, metrics *monitoring.Metrics) *RateLimiter {
	defaults := DefaultConfig()
	if config.BurstMultiplier <= 0 {
		config.BurstMultiplier = defaults.BurstMultiplier
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}
	if config.MaxFallbackKeys <= 0 {
		config.MaxFallbackKeys = defaults.MaxFallbackKeys
	}
	if redisClient == nil {
		redisClient = &RedisClient{}
	}

	rl := &RateLimiter{
		redisClient:      redisClient,
		config:           config,
		metrics:          metrics,
		fallbackLimiters: make(map[string]*rate.Limiter),
		stop:             make(chan struct{}),
	}

	if redisClient.IsEnabled() {
		rl.redisLimiter = redis_rate.NewLimiter(redisClient.GetClient())
		slog.Info("Redis rate limiter initialized")
	} else {
		slog.Warn("Redis unavailable, using in-memory rate limiting only")
	}

	go rl.cleanupFallbackLimiters()

	return rl
}

// Config returns the limiter configuration
func (rl *RateLimiter) Config() Config {
	return rl.config
}

// AllowIP checks the per-minute limit for an IP address
func (rl *RateLimiter) AllowIP(ctx context.Context, ip string) (*Result, error) {
	return rl.Allow(ctx, "ratelimit:ip:"+ip, Rate{
		Limit:  rl.config.IPLimitPerMin,
		Burst:  rl.config.IPLimitPerMin * rl.config.BurstMultiplier,
		Period: time.Minute,
	})
}

// AllowAnalyze checks the hourly limit on routes that spend YouTube quota
func (rl *RateLimiter) AllowAnalyze(ctx context.Context, ip string) (*Result, error) {
	return rl.Allow(ctx, "ratelimit:analyze:"+ip, Rate{
		Limit:  rl.config.AnalyzeLimitPerHour,
		Period: time.Hour,
	})
}

// Allow checks key against r using Redis, falling back to memory on error
func (rl *RateLimiter) Allow(ctx context.Context, key string, r Rate) (*Result, error) {
	if r.Limit <= 0 || r.Period <= 0 {
		return &Result{Allowed: true, Limit: r.Limit, Remaining: -1}, nil
	}

	if rl.redisClient.IsEnabled() && rl.redisLimiter != nil {
		result, err := rl.allowRedis(ctx, key, r)
		if err == nil {
			return result, nil
		}
		slog.Warn("Redis rate limit check failed, using fallback", "key", key, "error", err)
		if rl.metrics != nil {
			rl.metrics.IncrementRateLimitRedisError()
		}
	}

	if rl.metrics != nil {
		rl.metrics.IncrementRateLimitFallback()
	}
	return rl.allowFallback(key, r), nil
}

// allowRedis uses the GCRA limiter shared across instances
func (rl *RateLimiter) allowRedis(ctx context.Context, key string, r Rate) (*Result, error) {
	res, err := rl.redisLimiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   r.Limit,
		Burst:  r.burst(),
		Period: r.Period,
	})
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}

	return &Result{
		Allowed:    res.Allowed > 0,
		Limit:      r.Limit,
		Remaining:  res.Remaining,
		ResetAt:    time.Now().Add(res.ResetAfter),
		RetryAfter: res.RetryAfter,
	}, nil
}

// allowFallback uses a per-key in-memory token bucket
func (rl *RateLimiter) allowFallback(key string, r Rate) *Result {
	rl.fallbackMutex.Lock()
	limiter, exists := rl.fallbackLimiters[key]
	if !exists {
		limiter = rate.NewLimiter(rate.Limit(float64(r.Limit)/r.Period.Seconds()), r.burst())
		rl.fallbackLimiters[key] = limiter
	}
	rl.fallbackMutex.Unlock()

	now := time.Now()
	reservation := limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return &Result{Limit: r.Limit, ResetAt: now.Add(r.Period), RetryAfter: r.Period}
	}

	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
		return &Result{
			Allowed:    false,
			Limit:      r.Limit,
			ResetAt:    now.Add(delay),
			RetryAfter: delay,
		}
	}

	remaining := int(limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return &Result{
		Allowed:   true,
		Limit:     r.Limit,
		Remaining: remaining,
		ResetAt:   now.Add(r.Period),
	}
}

// Reset drops the state held for key in memory and in Redis
func (rl *RateLimiter) Reset(ctx context.Context, key string) error {
	rl.fallbackMutex.Lock()
	delete(rl.fallbackLimiters, key)
	rl.fallbackMutex.Unlock()

	if rl.redisLimiter != nil && rl.redisClient.IsEnabled() {
		return rl.redisLimiter.Reset(ctx, key)
	}
	return nil
}

// cleanupFallbackLimiters periodically drops fallback limiters once there are too many
func (rl *RateLimiter) cleanupFallbackLimiters() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.fallbackMutex.Lock()
			if len(rl.fallbackLimiters) > rl.config.MaxFallbackKeys {
				slog.Info("Cleaning up fallback rate limiters", "count", len(rl.fallbackLimiters))
				rl.fallbackLimiters = make(map[string]*rate.Limiter)
			}
			rl.fallbackMutex.Unlock()
		}
	}
}

// Close stops the cleanup goroutine
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// GetStats returns rate limiter statistics
func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.fallbackMutex.RLock()
	fallbackCount := len(rl.fallbackLimiters)
	rl.fallbackMutex.RUnlock()

	stats := map[string]interface{}{
		"redis_enabled":          rl.redisClient.IsEnabled(),
		"fallback_limiters":      fallbackCount,
		"ip_limit_per_min":       rl.config.IPLimitPerMin,
		"analyze_limit_per_hour": rl.config.AnalyzeLimitPerHour,
	}

	if rl.redisClient.IsEnabled() {
		stats["redis_pool"] = rl.redisClient.GetPoolStats()
	}

	return stats
}
