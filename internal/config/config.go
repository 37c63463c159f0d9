package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/frostmart/backend-pricing/internal/promo"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	// Pricing knobs. Tiers is zero-valued unless overridden through
	// BULK_TIERS_JSON / EXPIRY_TIERS_JSON; consumers fall back to the stock
	// tables.
	DiscountCeilingPercent float64
	Tiers                  promo.TierTables

	// Expiry dashboard thresholds, in days.
	CriticalExpiryDays int
	WarningExpiryDays  int

	// Promotion lifecycle.
	PromoLookaheadDays int
	PromoLockTTL       time.Duration

	// Scheduler cadences (cron expressions consumed by asynq).
	PromoGenerateCron string
	PromoCleanupCron  string
	BatchCleanupCron  string

	// Observability.
	LogFormat     string
	LogLevel      string
	OTLPEndpoint  string
	MetricsPrefix string

	// Rate limiting for the public pricing endpoints.
	RateLimitPerMinute int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		DiscountCeilingPercent: parseFloat(k.String("DISCOUNT_CEILING_PERCENT"), 70),

		CriticalExpiryDays: parseInt(k.String("CRITICAL_EXPIRY_DAYS"), 7),
		WarningExpiryDays:  parseInt(k.String("WARNING_EXPIRY_DAYS"), 30),

		PromoLookaheadDays: parseInt(k.String("PROMO_LOOKAHEAD_DAYS"), 60),
		PromoLockTTL:       parseDuration(k.String("PROMO_LOCK_TTL"), "30s"),

		PromoGenerateCron: valueOrDefault(k.String("PROMO_GENERATE_CRON"), "0 * * * *"),
		PromoCleanupCron:  valueOrDefault(k.String("PROMO_CLEANUP_CRON"), "30 * * * *"),
		BatchCleanupCron:  valueOrDefault(k.String("BATCH_CLEANUP_CRON"), "0 3 * * *"),

		LogFormat:     valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:      valueOrDefault(k.String("LOG_LEVEL"), "info"),
		OTLPEndpoint:  strings.TrimSpace(k.String("OTLP_ENDPOINT")),
		MetricsPrefix: valueOrDefault(k.String("METRICS_PREFIX"), "frostmart"),

		RateLimitPerMinute: parseInt(k.String("RATE_LIMIT_PER_MINUTE"), 120),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.WarningExpiryDays < cfg.CriticalExpiryDays {
		return nil, errors.New("WARNING_EXPIRY_DAYS must be >= CRITICAL_EXPIRY_DAYS")
	}

	if raw := strings.TrimSpace(k.String("BULK_TIERS_JSON")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg.Tiers.Bulk); err != nil {
			return nil, fmt.Errorf("parse BULK_TIERS_JSON: %w", err)
		}
	}
	if raw := strings.TrimSpace(k.String("EXPIRY_TIERS_JSON")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg.Tiers.Expiry); err != nil {
			return nil, fmt.Errorf("parse EXPIRY_TIERS_JSON: %w", err)
		}
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// MigrateURL rewrites the pgx connection URL into the scheme golang-migrate's
// pgx/v5 driver expects.
func (c *Config) MigrateURL() string {
	url := c.DatabaseURL
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(url, prefix) {
			return "pgx5://" + strings.TrimPrefix(url, prefix)
		}
	}
	return url
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
