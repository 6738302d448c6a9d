package config

import (
	"os"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	Port           string
	DBPath         string
	JWTSecret      string
	JWTExpiration  time.Duration
	AllowedOrigins []string
}

// Load reads configuration from environment variables, falling back to defaults.
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		DBPath:        getEnv("DB_PATH", "blipverse.db"),
		JWTSecret:     getEnv("JWT_SECRET", "your-secret-key"),
		JWTExpiration: 14 * 24 * time.Hour,
		AllowedOrigins: strings.Split(
			getEnv("ALLOWED_ORIGINS", "http://localhost:3000"), ","),
	}
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
