package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv string `env:"APP_ENV" default:"development"`
	Port   string `env:"PORT" default:"8080"`

	// DatabaseURL is the Postgres DSN. Empty runs the service on the
	// non-durable in-memory store (development only).
	DatabaseURL string `env:"DATABASE_URL"`

	// RedisURL enables the cross-instance dispatch slot guard. Empty
	// disables it; the durable last-dispatch gate still applies.
	RedisURL string `env:"REDIS_URL"`

	DiscordBotToken string `env:"DISCORD_BOT_TOKEN"`

	DispatchTimezone string        `env:"DISPATCH_TIMEZONE" default:"Asia/Tokyo"`
	DispatchTick     time.Duration `env:"DISPATCH_TICK" default:"1m"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DiscordBotToken == "" {
		return fmt.Errorf("DISCORD_BOT_TOKEN is required")
	}
	if cfg.AppEnv == "production" && cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required in production")
	}
	if _, err := time.LoadLocation(cfg.DispatchTimezone); err != nil {
		return fmt.Errorf("DISPATCH_TIMEZONE is invalid: %w", err)
	}
	if cfg.DispatchTick < time.Second {
		return fmt.Errorf("DISPATCH_TICK must be at least 1s, got %s", cfg.DispatchTick)
	}
	return nil
}

// Location returns the configured dispatch time zone. Load has already
// validated it, so errors here mean the tzdata went away underneath us.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.DispatchTimezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load dispatch timezone: %w", err)
	}
	return loc, nil
}
