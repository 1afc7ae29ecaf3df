package config

import (
	"os"
	"strconv"

	"gofunnel/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Funnel   FunnelConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// FunnelConfig holds defaults for analyses that omit them
type FunnelConfig struct {
	TrimBy         float64
	Multiplier     float64
	MaxConcurrency int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	trimBy, err := getEnvFloatOrDefault("FUNNEL_TRIM_BY", 0.1)
	if err != nil {
		return nil, err
	}
	multiplier, err := getEnvFloatOrDefault("FUNNEL_MULTIPLIER", 1)
	if err != nil {
		return nil, err
	}
	concurrency, err := getEnvIntOrDefault("FUNNEL_MAX_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}

	return &Config{
		Database: DatabaseConfig{
			URL:     url,
			SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
		},
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "release"),
		},
		Funnel: FunnelConfig{
			TrimBy:         trimBy,
			Multiplier:     multiplier,
			MaxConcurrency: concurrency,
		},
	}, nil
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvFloatOrDefault(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.ConfigInvalid(key + " must be a number")
	}
	return parsed, nil
}

func getEnvIntOrDefault(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.ConfigInvalid(key + " must be an integer")
	}
	return parsed, nil
}
