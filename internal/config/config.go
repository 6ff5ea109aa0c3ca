package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

const envDevelopment = "development"

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env              string        `env:"APP_ENV" envDefault:"development"`
	Port             string        `env:"PORT" envDefault:"8080"`
	DBPath           string        `env:"DB_PATH" envDefault:"./dev.db"`
	DBConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"10s"`
	AdminEmail       string        `env:"ADMIN_EMAIL"`
	AdminPassword    string        `env:"ADMIN_PASSWORD"`
	SessionSecret    string        `env:"SESSION_SECRET"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	RedisAddr        string        `env:"REDIS_ADDR"`
	RedisPassword    string        `env:"REDIS_PASSWORD"`
	RedisDB          int           `env:"REDIS_DB" envDefault:"0"`
	RateLimit        int           `env:"RATE_LIMIT" envDefault:"20"`
	RateLimitWindow  time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	TrustProxy       bool          `env:"TRUST_PROXY" envDefault:"false"`
	NotifyTo         []string      `env:"NOTIFY_TO" envSeparator:","`
	NotifyFrom       string        `env:"NOTIFY_FROM" envDefault:"Property Calculator <calculator@primeestate.es>"`
}

// Load reads the local .env file, if any, and then the process environment.
func Load() (Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with explicit dotenv paths. Missing files are skipped and
// variables already present in the environment are never overwritten.
func LoadFrom(paths ...string) (Config, error) {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load dotenv %s: %w", path, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.AdminEmail = strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if len(cfg.NotifyTo) == 0 && cfg.AdminEmail != "" {
		cfg.NotifyTo = []string{cfg.AdminEmail}
	}
	if cfg.RateLimit <= 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT must be positive, got %d", cfg.RateLimit)
	}
	if cfg.RateLimitWindow <= 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", cfg.RateLimitWindow)
	}

	return cfg, nil
}

// IsDev reports whether the app runs in the development environment.
func (c Config) IsDev() bool {
	return c.Env == envDevelopment
}

// Warnings lists settings that are unset but should be configured outside development.
func (c Config) Warnings() []string {
	var warnings []string
	if c.AdminEmail == "" {
		warnings = append(warnings, "ADMIN_EMAIL is not set")
	}
	if c.AdminPassword == "" {
		warnings = append(warnings, "ADMIN_PASSWORD is not set")
	}
	if c.SessionSecret == "" {
		warnings = append(warnings, "SESSION_SECRET is not set")
	}
	if len(c.NotifyTo) == 0 {
		warnings = append(warnings, "NOTIFY_TO is not set; calculation reports have no recipient")
	}
	return warnings
}
