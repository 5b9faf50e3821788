// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting for the service and CLI.
type Config struct {
	Port            string
	ProjectID       string
	SQLitePath      string
	DefaultCurrency string
	MaxAgeDays      int
	MaxSkewDays     int
	PersistTimeout  time.Duration
	RulesFile       string
	LogLevel        slog.Level
}

// Load reads configuration from a .env file (when present) and the process
// environment. Environment variables win over .env values.
func Load() (*Config, error) {
	// Missing .env is fine outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		ProjectID:       os.Getenv("FIRESTORE_PROJECT_ID"),
		SQLitePath:      getEnv("SQLITE_PATH", "smsparse.db"),
		DefaultCurrency: getEnv("DEFAULT_CURRENCY", "INR"),
		RulesFile:       os.Getenv("RULES_FILE"),
	}

	var err error
	if cfg.MaxAgeDays, err = getEnvInt("MAX_AGE_DAYS", 365); err != nil {
		return nil, err
	}
	if cfg.MaxSkewDays, err = getEnvInt("MAX_SKEW_DAYS", 0); err != nil {
		return nil, err
	}
	if cfg.MaxAgeDays < 0 || cfg.MaxSkewDays < 0 {
		return nil, fmt.Errorf("date window days cannot be negative")
	}

	timeoutSecs, err := getEnvInt("PERSIST_TIMEOUT_SECONDS", 10)
	if err != nil {
		return nil, err
	}
	if timeoutSecs <= 0 {
		return nil, fmt.Errorf("PERSIST_TIMEOUT_SECONDS must be positive")
	}
	cfg.PersistTimeout = time.Duration(timeoutSecs) * time.Second

	cfg.LogLevel, err = parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// MaxAge returns the oldest admissible transaction age.
func (c *Config) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeDays) * 24 * time.Hour
}

// MaxSkew returns the admissible future skew.
func (c *Config) MaxSkew() time.Duration {
	return time.Duration(c.MaxSkewDays) * 24 * time.Hour
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
}
