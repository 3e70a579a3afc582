package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" default:"168h"` // 7 days

	BaseURL string `env:"BASE_URL" default:"http://localhost:8080"`

	// SMTP delivery for confirmation and reset mail. When SMTP_ADDR is
	// empty, outgoing mail is logged instead of sent.
	SMTPAddr     string `env:"SMTP_ADDR"`
	SMTPFrom     string `env:"SMTP_FROM" default:"noreply@pestpro.local"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// SweepHourUTC is the UTC hour of day the follow-up sweep runs at.
	SweepHourUTC int `env:"SWEEP_HOUR_UTC" default:"6"`

	// RequireEmailConfirmation gates sign-in on a confirmed address.
	RequireEmailConfirmation bool `env:"REQUIRE_EMAIL_CONFIRMATION" default:"false"`
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

// IsProduction reports whether the service runs in production mode. In
// production Postgres and Redis are mandatory; development falls back to
// in-memory stores when they are not configured.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func validate(cfg *Config) error {
	if cfg.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	if len(cfg.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters, got %d", len(cfg.SessionSecret))
	}

	if cfg.IsProduction() {
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required in production")
		}
		if cfg.RedisURL == "" {
			return errors.New("REDIS_URL is required in production")
		}
	}

	if cfg.SweepHourUTC < 0 || cfg.SweepHourUTC > 23 {
		return fmt.Errorf("SWEEP_HOUR_UTC must be between 0 and 23, got %d", cfg.SweepHourUTC)
	}

	return nil
}
