package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/tube-o-meter/internal/config"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/monitoring"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logging setup
	logger := monitoring.NewLoggerTo(os.Stdout, monitoring.ParseLevel(cfg.Server.LogLevel))
	slog.SetDefault(logger.Logger)

	gin.SetMode(cfg.Server.Mode)

	if cfg.YouTube.APIKey == "" {
		slog.Warn("YOUTUBE_API_KEY not set; YouTube endpoints fail until a key is supplied via PUT /api/v1/youtube/key")
	}

	a := newApp(cfg, logger)
	defer a.close()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	a.start(ctx)

	srv := a.httpServer()

	go func() {
		slog.Info("Starting server", "addr", srv.Addr, "mode", cfg.Server.Mode,
			"strict_weights", cfg.Analysis.StrictWeights, "day_locale", cfg.Analysis.DayLocale,
			"redis_enabled", a.redis.IsEnabled())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited")
}
