package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string // PostgreSQL; when empty the server falls back to SQLite
	SQLitePath  string
	RedisURL    string
	TokenSecret string

	// Avatar uploads
	UploadDir     string
	UploadURLPath string
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8000"),
		Env:           getEnv("ENV", "development"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		SQLitePath:    getEnv("SQLITE_PATH", "./data/stalk.db"),
		RedisURL:      os.Getenv("REDIS_URL"),
		TokenSecret:   getEnv("TOKEN_SECRET", "dev-secret-do-not-use-in-production"),
		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		UploadURLPath: getEnv("UPLOAD_URL_PATH", "/uploads"),
	}

	// In production, require explicit secrets and backing services
	if cfg.Env == "production" {
		if os.Getenv("TOKEN_SECRET") == "" {
			panic("TOKEN_SECRET is required in production")
		}
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.RedisURL == "" {
			panic("REDIS_URL is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
