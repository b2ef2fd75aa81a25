package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is read from the environment once at startup and not modified after.
type Config struct {
	Env      string
	Port     string
	BaseURL  string
	LogLevel string
	// LogFormat is "text" or "json".
	LogFormat string

	DatabaseDriver string
	DatabaseURL    string

	// MagicLinkSecret derives the key that encrypts magic-link claims.
	MagicLinkSecret string
	// SessionSecret signs the pending-login cookie.
	SessionSecret string
	CookieSecure  bool

	PostmarkToken string
	FromEmail     string

	SessionCleanupInterval time.Duration
}

// Production reports whether the process runs in production mode.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Load reads Config from environment variables.
// It returns an error naming every required variable that is unset.
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.MagicLinkSecret = os.Getenv("MAGIC_LINK_SECRET")
	if cfg.MagicLinkSecret == "" {
		missing = append(missing, "MAGIC_LINK_SECRET")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.Env = getEnvString("APP_ENV", "development")
	cfg.Port = getEnvString("PORT", "8080")
	cfg.BaseURL = strings.TrimRight(getEnvString("BASE_URL", "http://localhost:"+cfg.Port), "/")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.LogFormat = getEnvString("LOG_FORMAT", "text")
	cfg.DatabaseDriver = getEnvString("DATABASE_DRIVER", "sqlite")
	cfg.DatabaseURL = getEnvString("DATABASE_URL", "magiclink.db")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.PostmarkToken = os.Getenv("POSTMARK_TOKEN")
	cfg.FromEmail = os.Getenv("FROM_EMAIL")
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour)

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
