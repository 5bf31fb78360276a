package config

import (
	"os"

	"github.com/spf13/cast"
)

type Config struct {
	Port            int
	DatabaseURL     string
	RedisAddr       string
	SourceBaseURL   string
	ProxyBaseURL    string
	IgnoreRetryDays int
}

func Load() *Config {
	return &Config{
		Port:            envInt("PORT", 8080),
		DatabaseURL:     env("DATABASE_URL", "postgres://javault:javault@db:5432/javault?sslmode=disable"),
		RedisAddr:       env("REDIS_ADDR", ""),
		SourceBaseURL:   env("SOURCE_BASE_URL", "https://www.javbus.com"),
		ProxyBaseURL:    env("PROXY_BASE_URL", ""),
		IgnoreRetryDays: envInt("IGNORE_RETRY_DAYS", 0),
	}
}

// QueueEnabled reports whether background scraping is configured.
func (c *Config) QueueEnabled() bool {
	return c.RedisAddr != ""
}

// IgnoreRetryEnabled reports whether the stale-ignore sweep should run.
// It needs the queue: retries are re-queued, never scraped inline.
func (c *Config) IgnoreRetryEnabled() bool {
	return c.IgnoreRetryDays > 0 && c.QueueEnabled()
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i := cast.ToInt(v); i != 0 {
			return i
		}
	}
	return fallback
}
