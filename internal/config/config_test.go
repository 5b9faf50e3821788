package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.DefaultCurrency != "INR" {
		t.Errorf("DefaultCurrency = %q, want INR", cfg.DefaultCurrency)
	}
	if cfg.MaxAgeDays != 365 {
		t.Errorf("MaxAgeDays = %d, want 365", cfg.MaxAgeDays)
	}
	if cfg.MaxSkewDays != 0 {
		t.Errorf("MaxSkewDays = %d, want 0", cfg.MaxSkewDays)
	}
	if cfg.PersistTimeout != 10*time.Second {
		t.Errorf("PersistTimeout = %v, want 10s", cfg.PersistTimeout)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DEFAULT_CURRENCY", "USD")
	t.Setenv("MAX_AGE_DAYS", "30")
	t.Setenv("MAX_SKEW_DAYS", "2")
	t.Setenv("PERSIST_TIMEOUT_SECONDS", "5")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.DefaultCurrency != "USD" {
		t.Errorf("DefaultCurrency = %q, want USD", cfg.DefaultCurrency)
	}
	if cfg.MaxAge() != 30*24*time.Hour {
		t.Errorf("MaxAge() = %v, want 720h", cfg.MaxAge())
	}
	if cfg.MaxSkew() != 48*time.Hour {
		t.Errorf("MaxSkew() = %v, want 48h", cfg.MaxSkew())
	}
	if cfg.PersistTimeout != 5*time.Second {
		t.Errorf("PersistTimeout = %v, want 5s", cfg.PersistTimeout)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "non-numeric max age", key: "MAX_AGE_DAYS", value: "soon"},
		{name: "negative max age", key: "MAX_AGE_DAYS", value: "-1"},
		{name: "negative skew", key: "MAX_SKEW_DAYS", value: "-1"},
		{name: "zero persist timeout", key: "PERSIST_TIMEOUT_SECONDS", value: "0"},
		{name: "unknown log level", key: "LOG_LEVEL", value: "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s error = nil, want error", tt.key, tt.value)
			}
		})
	}
}
