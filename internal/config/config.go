package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port        int           `env:"GHOSTREV_PORT" envDefault:"8760"`
	NatsURL     string        `env:"NATS_URL"`
	NatsToken   string        `env:"NATS_TOKEN"`
	DatabaseURL string        `env:"DATABASE_URL"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	APIToken    string        `env:"GHOSTREV_API_TOKEN"`
	Cooldown    time.Duration `env:"GHOSTREV_COOLDOWN" envDefault:"15s"`
	AdDismiss   time.Duration `env:"GHOSTREV_AD_DISMISS" envDefault:"10s"`
	PageTTL     time.Duration `env:"GHOSTREV_PAGE_TTL" envDefault:"5m"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Port <= 0 {
		return Config{}, fmt.Errorf("invalid GHOSTREV_PORT %d", cfg.Port)
	}
	if cfg.Cooldown <= 0 {
		return Config{}, fmt.Errorf("GHOSTREV_COOLDOWN must be positive")
	}
	return cfg, nil
}
