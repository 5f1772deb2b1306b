package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/ZanzyTHEbar/tube-o-meter/internal/adapters"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/cache"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/config"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/middleware"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/monitoring"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/ratelimit"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/resilience"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/security"
)

const (
	serviceVersion = "1.0.0"
	redisService   = "redis"
)

// app holds every long-lived dependency of the HTTP server
type app struct {
	cfg         *config.Config
	logger      *monitoring.Logger
	metrics     *monitoring.Metrics
	prom        *monitoring.PromCollectors
	analyzer    *analysis.Analyzer
	youtube     *adapters.YouTubeAdapter
	breakers    *resilience.CircuitBreakerRegistry
	degradation *resilience.DegradationManager
	redis       *ratelimit.RedisClient
	limiter     *ratelimit.RateLimiter
	cache       *cache.Cache
	security    *security.SecurityMiddleware
	compression *middleware.Compression
}

// newApp wires the dependencies described by cfg. A Redis outage is not
// fatal: the limiter falls back to in-memory buckets.
func newApp(cfg *config.Config, logger *monitoring.Logger) *app {
	prom := monitoring.NewPromCollectors()
	metrics := monitoring.NewMetrics().WithPrometheus(prom)

	breakers := resilience.NewCircuitBreakerRegistry()
	breaker := breakers.GetOrCreate(adapters.ServiceName, cfg.YouTube.CircuitBreaker)
	degradation := resilience.NewDegradationManager(cfg.Resilience)

	retries := resilience.NewRetryManager()
	retries.RegisterPolicy(adapters.ServiceName, resilience.StandardRetryPolicy)

	youtube := adapters.NewYouTubeAdapter(cfg.YouTube,
		adapters.WithCircuitBreaker(breaker),
		adapters.WithRetryManager(retries),
		adapters.WithDegradationManager(degradation),
		adapters.WithQuotaObserver(metrics.RecordYouTubeCall),
	)

	degradation.RegisterService(adapters.ServiceName, func(ctx context.Context) error {
		if breaker.State() == resilience.StateOpen {
			return resilience.NewCircuitBreakerError("youtube circuit open", resilience.StateOpen)
		}
		return nil
	})

	redisClient, err := ratelimit.NewRedisClient(cfg.RateLimit.Redis)
	if err != nil {
		slog.Warn("Redis unavailable, using in-memory rate limiting", "addr", cfg.RateLimit.Redis.Addr, "error", err)
	}
	if redisClient.IsEnabled() {
		degradation.RegisterService(redisService, redisClient.HealthCheck)
	}

	analyzer := analysis.NewAnalyzer(cfg.Analysis.DataDir,
		analysis.WithStrictWeights(cfg.Analysis.StrictWeights),
		analysis.WithDayNames(analysis.DayNamesFor(cfg.Analysis.DayLocale)),
		analysis.WithVideoLimit(cfg.Analysis.VideoLimit),
	)

	return &app{
		cfg:         cfg,
		logger:      logger,
		metrics:     metrics,
		prom:        prom,
		analyzer:    analyzer,
		youtube:     youtube,
		breakers:    breakers,
		degradation: degradation,
		redis:       redisClient,
		limiter:     ratelimit.NewRateLimiter(redisClient, cfg.RateLimit.Config, metrics),
		cache:       cache.NewCache(cfg.Cache),
		security:    security.NewSecurityMiddleware(cfg.Security),
		compression: middleware.NewCompression(cfg.Compression),
	}
}

// start launches the background samplers; they stop with ctx
func (a *app) start(ctx context.Context) {
	go a.metrics.RunRuntimeSampler(ctx, 15*time.Second)
	go a.degradation.StartHealthChecks(ctx)
}

// close releases pooled connections
func (a *app) close() {
	a.limiter.Close()
	a.degradation.GracefulShutdown()
	errors.SafeClose(a.youtube, "youtube adapter")
	errors.SafeClose(a.redis, "redis client")
}

// router builds the gin engine with the full middleware chain
func (a *app) router() *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(a.security.Config().TrustedProxies); err != nil {
		slog.Warn("Invalid trusted proxies, trusting none", "error", err)
		_ = r.SetTrustedProxies(nil)
	}

	// Request IDs and monitoring come first so every response is counted
	r.Use(monitoring.RequestIDMiddleware())
	r.Use(monitoring.MonitoringMiddleware(a.metrics, a.logger))
	r.Use(monitoring.SecurityMonitoringMiddleware(a.logger))

	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())

	r.Use(security.SecurityHeadersMiddleware(a.cfg.Security.EnableHSTS))
	if a.security.Config().EnableCORS {
		r.Use(a.security.CORS())
	}
	r.Use(a.security.RequestTimeout)
	r.Use(a.security.LimitBody)
	r.Use(a.security.ValidateContentType)
	r.Use(a.limiter.IPRateLimitMiddleware())
	r.Use(a.compression.Handler())

	r.GET("/health", a.handleHealth)
	r.GET("/health/services", a.handleServiceHealth)

	r.GET("/metrics", a.handleMetrics)
	r.GET("/metrics/prometheus", gin.WrapH(a.prom.Handler()))
	r.GET("/cache/stats", a.handleCacheStats)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	{
		channels := api.Group("/channels")
		channels.GET("/search", a.security.ValidateSearchQuery, a.handleSearchChannels)
		channels.GET("/:id", a.security.ValidateChannelParam, a.handleChannelInfo)
		channels.GET("/:id/competitors", a.security.ValidateChannelParam, a.handleCompetitors)

		analyze := []gin.HandlerFunc{a.limiter.AnalyzeRateLimitMiddleware()}
		if a.cfg.Cache.Enabled {
			analyze = append(analyze, a.cache.Middleware(a.metrics))
		}
		analyze = append(analyze, a.security.ValidateAnalyzeRequest, a.handleAnalyze)
		api.POST("/analyze", analyze...)
		api.POST("/export", a.limiter.AnalyzeRateLimitMiddleware(), a.security.ValidateAnalyzeRequest, a.handleExport)

		api.POST("/rank", a.handleRank)
		api.POST("/weights/validate", a.handleValidateWeights)
		api.GET("/weights/profiles/:name", a.handleWeightProfile)

		api.GET("/quota", a.handleQuota)
		api.PUT("/youtube/key", a.limiter.EndpointRateLimitMiddleware("youtube_key", 5), a.handleUpdateKey)

		api.GET("/ratelimit/status", a.limiter.HandleRateLimitStatus())
		api.GET("/ratelimit/metrics", a.limiter.HandleRateLimitMetrics())
	}

	return r
}

// httpServer wraps the router with the configured timeouts
func (a *app) httpServer() *http.Server {
	return &http.Server{
		Addr:         a.cfg.Server.Addr(),
		Handler:      a.router(),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}
}

// fail renders err as a structured error response
func fail(c *gin.Context, err error) {
	appErr := errors.ToAppError(err)
	if appErr.RequestID == "" {
		appErr.RequestID = c.GetString("request_id")
	}
	errors.LogError(c, appErr)
	c.JSON(appErr.HTTPStatus, appErr)
}
