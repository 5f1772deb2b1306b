package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ZanzyTHEbar/tube-o-meter/internal/adapters"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/cache"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/middleware"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/ratelimit"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/resilience"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/security"
)

// Config is the root configuration.
type Config struct {
	Server      ServerConfig                 `yaml:"server"`
	YouTube     adapters.YouTubeConfig       `yaml:"youtube"`
	Analysis    AnalysisConfig               `yaml:"analysis"`
	RateLimit   RateLimitConfig              `yaml:"ratelimit"`
	Cache       cache.Config                 `yaml:"cache"`
	Security    security.SecurityConfig      `yaml:"security"`
	Resilience  resilience.DegradationConfig `yaml:"resilience"`
	Compression middleware.CompressionConfig `yaml:"compression"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            string        `yaml:"port"`
	Mode            string        `yaml:"mode"` // gin mode: debug, release or test
	LogLevel        string        `yaml:"log_level"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	if strings.Contains(s.Port, ":") {
		return s.Port
	}
	return ":" + s.Port
}

// AnalysisConfig configures the ranking engine.
type AnalysisConfig struct {
	DataDir         string `yaml:"data_dir"`
	StrictWeights   bool   `yaml:"strict_weights"`
	DayLocale       string `yaml:"day_locale"` // "id" or "en"
	VideoLimit      int    `yaml:"video_limit"`
	CompetitorLimit int    `yaml:"competitor_limit"`
	DefaultProfile  string `yaml:"default_profile"`
}

// RateLimitConfig combines limits with the optional Redis backend.
type RateLimitConfig struct {
	ratelimit.Config `yaml:",inline"`
	Redis            ratelimit.RedisConfig `yaml:"redis"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Mode:            "release",
			LogLevel:        "info",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		YouTube: adapters.YouTubeConfig{
			BaseURL:    adapters.DefaultBaseURL,
			CacheSize:  256,
			CacheTTL:   10 * time.Minute,
			DailyQuota: adapters.DefaultDailyQuota,
			Pool: resilience.PoolConfig{
				MaxIdle:        10,
				MaxActive:      8,
				IdleTimeout:    90 * time.Second,
				RequestTimeout: 15 * time.Second,
			},
			CircuitBreaker: resilience.CircuitBreakerConfig{
				FailureThreshold: 5,
				RecoveryTimeout:  30 * time.Second,
				SuccessThreshold: 2,
			},
		},
		Analysis: AnalysisConfig{
			DataDir:         "./data",
			DayLocale:       "id",
			VideoLimit:      adapters.MaxResults,
			CompetitorLimit: 5,
			DefaultProfile:  "default",
		},
		RateLimit: RateLimitConfig{Config: ratelimit.DefaultConfig()},
		Cache:     cache.DefaultConfig(),
		Security:  security.DefaultSecurityConfig(),
		Resilience: resilience.DegradationConfig{
			HealthCheckInterval: 30 * time.Second,
			MinRequests:         4,
		},
		Compression: middleware.DefaultCompressionConfig(),
	}
}

// Load reads configuration from a YAML file, then .env, then environment
// variables. Later sources win. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Could not load .env file", "error", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		cfg.YouTube.APIKey = v
	}
	if v := os.Getenv("YOUTUBE_BASE_URL"); v != "" {
		cfg.YouTube.BaseURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("GIN_MODE"); v != "" {
		cfg.Server.Mode = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Analysis.DataDir = v
	}
	if v := os.Getenv("DAY_LOCALE"); v != "" {
		cfg.Analysis.DayLocale = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RateLimit.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RateLimit.Redis.Password = v
	}
	if v := os.Getenv("ENABLE_HSTS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse ENABLE_HSTS: %w", err)
		}
		cfg.Security.EnableHSTS = b
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse REDIS_DB: %w", err)
		}
		cfg.RateLimit.Redis.DB = db
	}
	if v := os.Getenv("STRICT_WEIGHTS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse STRICT_WEIGHTS: %w", err)
		}
		cfg.Analysis.StrictWeights = b
	}
	if v := os.Getenv("YOUTUBE_ENFORCE_QUOTA"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse YOUTUBE_ENFORCE_QUOTA: %w", err)
		}
		cfg.YouTube.EnforceQuota = b
	}
	return nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port must be set")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode %q must be debug, release or test", c.Server.Mode)
	}
	switch c.Analysis.DayLocale {
	case "id", "en":
	default:
		return fmt.Errorf("analysis.day_locale %q must be id or en", c.Analysis.DayLocale)
	}
	if c.Analysis.VideoLimit < 0 || c.Analysis.VideoLimit > adapters.MaxResults {
		return fmt.Errorf("analysis.video_limit must be between 0 and %d", adapters.MaxResults)
	}
	if c.YouTube.DailyQuota < 0 {
		return fmt.Errorf("youtube.daily_quota must not be negative")
	}
	if c.Compression.Enabled && (c.Compression.Level < 1 || c.Compression.Level > 9) {
		return fmt.Errorf("compression.level %d must be between 1 and 9", c.Compression.Level)
	}
	return nil
}
