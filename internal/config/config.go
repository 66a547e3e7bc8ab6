package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr   string        `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath     string        `env:"DB_PATH" envDefault:"data/geohunt.db"`
	RedisURL   string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	LogLevel   slog.Level    `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir     string        `env:"SPA_DIR" envDefault:"../web/dist"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// Optional bootstrap admin; seeded only when the admins table is empty.
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
