// Package config reads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Prefix is prepended to every variable name
const Prefix = "CFR_"

// Config holds server configuration
type Config struct {
	Host        string        `env:"HOST"`
	Port        int           `env:"PORT" envDefault:"8080"`
	StorageType string        `env:"STORAGE_TYPE" envDefault:"memory"`
	RedisURL    string        `env:"REDIS_URL"`
	Profile     string        `env:"PROFILE" envDefault:"default"`
	APIBaseURL  string        `env:"API_BASE_URL" envDefault:"http://localhost:8000"`
	TargetHost  string        `env:"TARGET_HOST" envDefault:"codeforces.com"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
}

// Read parses the environment
func Read() (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: Prefix})
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints
func (c Config) Validate() error {
	switch c.StorageType {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			return errors.New(Prefix + "REDIS_URL required when " + Prefix + "STORAGE_TYPE=redis")
		}
	default:
		return fmt.Errorf("invalid %sSTORAGE_TYPE %q: must be 'memory' or 'redis'", Prefix, c.StorageType)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid %sPORT %d", Prefix, c.Port)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
