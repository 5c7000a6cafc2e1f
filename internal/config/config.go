// Package config loads all runtime configuration from environment variables.
// No config files and no third-party config framework are used.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for Scubafy.
type Config struct {
	HTTP      HTTPConfig
	DB        DBConfig
	Log       LogConfig
	JWT       JWTConfig
	App       AppConfig
	Worker    WorkerConfig
	OTel      OTelConfig
	Sentry    SentryConfig
	RateLimit RateLimitConfig
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int
}

// DBConfig holds database connection configuration.
type DBConfig struct {
	Driver   string // "sqlite" (default) or "postgres"
	DSN      string // required when Driver == "postgres"
	File     string // SQLite database file path (default: "scubafy.db")
	MaxConns int    // Postgres only
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string
	Format string
}

// JWTConfig holds JSON Web Token signing and expiry settings.
type JWTConfig struct {
	Secret     string //nolint:gosec // intentional: holds JWT signing secret loaded from env
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// AppConfig holds application-level settings such as seed credentials.
type AppConfig struct {
	SeedOwnerEmail    string
	SeedOwnerPassword string
	DefaultRedirect   string
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	Concurrency   int
	SweepInterval time.Duration
}

// OTelConfig holds OpenTelemetry exporter settings.
type OTelConfig struct {
	OTLPEndpoint string
}

// SentryConfig holds error-reporting settings. An empty DSN disables Sentry.
type SentryConfig struct {
	DSN         string
	Environment string
	SampleRate  float64
}

// RateLimitConfig bounds staff-code attempts per client IP.
type RateLimitConfig struct {
	StaffCodePerMinute int
	StaffCodeBurst     int
}

// Load reads configuration from environment variables, applies defaults,
// and returns an error if any required field is absent.
func Load() (*Config, error) {
	cfg := &Config{}

	// HTTP
	cfg.HTTP.Port = envInt("HTTP_PORT", 8080)

	// DB
	cfg.DB.Driver = envStr("DB_DRIVER", "sqlite")
	cfg.DB.File = envStr("DB_FILE", "scubafy.db")
	cfg.DB.DSN = os.Getenv("DB_DSN")
	if cfg.DB.Driver == "postgres" && cfg.DB.DSN == "" {
		return nil, errors.New("DB_DSN is required when DB_DRIVER=postgres")
	}
	cfg.DB.MaxConns = envInt("DB_MAX_CONNS", 25)

	// Log
	cfg.Log.Level = envStr("LOG_LEVEL", "info")
	cfg.Log.Format = envStr("LOG_FORMAT", "json")

	// JWT (required)
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	if cfg.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	var err error
	cfg.JWT.AccessTTL, err = envDuration("JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("JWT_ACCESS_TTL: %w", err)
	}
	cfg.JWT.RefreshTTL, err = envDuration("JWT_REFRESH_TTL", 720*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("JWT_REFRESH_TTL: %w", err)
	}

	// App
	cfg.App.SeedOwnerEmail = os.Getenv("SEED_OWNER_EMAIL")
	cfg.App.SeedOwnerPassword = os.Getenv("SEED_OWNER_PASSWORD")
	cfg.App.DefaultRedirect = envStr("DEFAULT_REDIRECT", "/dashboard")

	// Worker
	cfg.Worker.Concurrency = envInt("WORKER_CONCURRENCY", 10)
	cfg.Worker.SweepInterval, err = envDuration("SUBSCRIPTION_SWEEP_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("SUBSCRIPTION_SWEEP_INTERVAL: %w", err)
	}

	// OTel
	cfg.OTel.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")

	// Sentry
	cfg.Sentry.DSN = os.Getenv("SENTRY_DSN")
	cfg.Sentry.Environment = envStr("APP_ENV", "development")
	cfg.Sentry.SampleRate = envFloat("SENTRY_TRACES_SAMPLE_RATE", 0.2)

	// Rate limiting
	cfg.RateLimit.StaffCodePerMinute = envInt("STAFF_CODE_RATE_PER_MINUTE", 10)
	cfg.RateLimit.StaffCodeBurst = envInt("STAFF_CODE_RATE_BURST", 5)

	return cfg, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", v, err)
	}
	return d, nil
}
