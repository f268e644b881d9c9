// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the CLI and server need at startup
type Config struct {
	DatabaseURL string
	ExportDir   string
	HTTPTimeout time.Duration
	LogLevel    string
	LogFormat   string
}

// Load reads configuration from the environment. When envFile is non-empty
// it is loaded first; a missing explicit file is an error, while the default
// ".env" is optional.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := &Config{
		DatabaseURL: getenv("DATABASE_URL", "postgres://localhost/ksef_invoices?sslmode=disable"),
		ExportDir:   getenv("EXPORT_DIR", "exports"),
		HTTPTimeout: 30 * time.Second,
		LogLevel:    getenv("LOG_LEVEL", "info"),
		LogFormat:   getenv("LOG_FORMAT", "console"),
	}

	if raw := os.Getenv("KSEF_HTTP_TIMEOUT"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid KSEF_HTTP_TIMEOUT: %w", err)
		}
		cfg.HTTPTimeout = timeout
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
