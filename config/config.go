// Package config loads service settings from the environment, with an
// optional .env file in the working directory.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

type Config struct {
	ServiceName string
	LoggerLevel string

	AppPort int
	DBPath  string

	// Upper bound on driver partitions evaluated in parallel.
	SessionConcurrency int

	AllowedOrigins []string

	// HS256 secret for API bearer tokens. Empty disables authentication.
	AuthSecret string

	// Companies whose previous month is closed automatically. Empty
	// disables the close scheduler.
	CloseCompanies []string
	CloseInterval  time.Duration
}

func Load() Config {
	_ = godotenv.Load(".env")

	cfg := Config{}

	cfg.ServiceName = cast.ToString(getOrReturnDefault("SERVICE_NAME", "ride-engine"))
	cfg.LoggerLevel = cast.ToString(getOrReturnDefault("LOGGER_LEVEL", "debug"))

	cfg.AppPort = cast.ToInt(getOrReturnDefault("APP_PORT", 8080))
	cfg.DBPath = cast.ToString(getOrReturnDefault("DB_PATH", "rides.db"))

	cfg.SessionConcurrency = cast.ToInt(getOrReturnDefault("SESSION_CONCURRENCY", 4))

	cfg.AllowedOrigins = splitList(cast.ToString(getOrReturnDefault("ALLOWED_ORIGINS", "*")))

	cfg.AuthSecret = cast.ToString(getOrReturnDefault("AUTH_SECRET", ""))

	cfg.CloseCompanies = splitList(cast.ToString(getOrReturnDefault("CLOSE_COMPANIES", "")))
	cfg.CloseInterval = cast.ToDuration(getOrReturnDefault("CLOSE_INTERVAL", "1h"))

	return cfg
}

// Validate checks value ranges after Load and any flag overrides.
func (c Config) Validate() error {
	if c.AppPort <= 0 || c.AppPort > 65535 {
		return fmt.Errorf("APP_PORT out of range: %d", c.AppPort)
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if c.SessionConcurrency < 1 {
		return fmt.Errorf("SESSION_CONCURRENCY must be at least 1, got %d", c.SessionConcurrency)
	}
	if len(c.CloseCompanies) > 0 && c.CloseInterval <= 0 {
		return fmt.Errorf("CLOSE_INTERVAL must be positive, got %s", c.CloseInterval)
	}
	return nil
}

func getOrReturnDefault(key string, defaultValue interface{}) interface{} {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
