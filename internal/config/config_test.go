package config

import (
	"os"
	"testing"
	"time"
)

var allKeys = []string{
	"GHOSTREV_PORT", "NATS_URL", "NATS_TOKEN", "DATABASE_URL", "LOG_LEVEL",
	"GHOSTREV_API_TOKEN", "GHOSTREV_COOLDOWN", "GHOSTREV_AD_DISMISS", "GHOSTREV_PAGE_TTL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		// t.Setenv restores the original value after the test.
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 8760 {
		t.Errorf("expected default port 8760, got %d", cfg.Port)
	}
	if cfg.NatsURL != "" {
		t.Errorf("expected empty default nats url, got %s", cfg.NatsURL)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("expected empty default database url, got %s", cfg.DatabaseURL)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.APIToken != "" {
		t.Errorf("expected empty default api token, got %s", cfg.APIToken)
	}
	if cfg.Cooldown != 15*time.Second {
		t.Errorf("expected default cooldown 15s, got %s", cfg.Cooldown)
	}
	if cfg.AdDismiss != 10*time.Second {
		t.Errorf("expected default dismiss 10s, got %s", cfg.AdDismiss)
	}
	if cfg.PageTTL != 5*time.Minute {
		t.Errorf("expected default page ttl 5m, got %s", cfg.PageTTL)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("GHOSTREV_PORT", "9999")
	t.Setenv("NATS_URL", "nats://custom:4222")
	t.Setenv("NATS_TOKEN", "s3cr3t-token")
	t.Setenv("DATABASE_URL", "sqlite:///tmp/ghostrev.db")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("GHOSTREV_API_TOKEN", "ghostrev-secret")
	t.Setenv("GHOSTREV_COOLDOWN", "30s")
	t.Setenv("GHOSTREV_AD_DISMISS", "5s")
	t.Setenv("GHOSTREV_PAGE_TTL", "1m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Port)
	}
	if cfg.NatsURL != "nats://custom:4222" {
		t.Errorf("expected custom nats url, got %s", cfg.NatsURL)
	}
	if cfg.NatsToken != "s3cr3t-token" {
		t.Errorf("expected custom nats token, got %s", cfg.NatsToken)
	}
	if cfg.DatabaseURL != "sqlite:///tmp/ghostrev.db" {
		t.Errorf("expected custom db url, got %s", cfg.DatabaseURL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug log level, got %s", cfg.LogLevel)
	}
	if cfg.APIToken != "ghostrev-secret" {
		t.Errorf("expected custom api token, got %s", cfg.APIToken)
	}
	if cfg.Cooldown != 30*time.Second {
		t.Errorf("expected cooldown 30s, got %s", cfg.Cooldown)
	}
	if cfg.AdDismiss != 5*time.Second {
		t.Errorf("expected dismiss 5s, got %s", cfg.AdDismiss)
	}
	if cfg.PageTTL != time.Minute {
		t.Errorf("expected page ttl 1m, got %s", cfg.PageTTL)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("GHOSTREV_PORT", "notanumber")

	if _, err := Load(); err == nil {
		t.Error("expected error for non-numeric port")
	}
}

func TestLoad_InvalidCooldown(t *testing.T) {
	clearEnv(t)
	t.Setenv("GHOSTREV_COOLDOWN", "0s")

	if _, err := Load(); err == nil {
		t.Error("expected error for zero cooldown")
	}
}
