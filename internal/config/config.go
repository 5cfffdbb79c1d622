// Package config loads service settings from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is everything the service reads from its environment.
type Config struct {
	Port          string
	PortalURL     string
	Headless      bool
	MaxBatchRows  int
	RowDelay      time.Duration
	StepTimeout   time.Duration
	RedisURL      string
	NATSURL       string
	ScreenshotDir string
}

// FromEnv reads the environment with sensible defaults for local runs.
func FromEnv() Config {
	return Config{
		Port:          getEnv("PORT", "8080"),
		PortalURL:     getEnv("PORTAL_URL", "https://www.fpl.com/my-account/login.html"),
		Headless:      getEnvBool("HEADLESS", true),
		MaxBatchRows:  getEnvInt("MAX_BATCH_ROWS", 100),
		RowDelay:      getEnvDuration("ROW_DELAY_MS", 2000),
		StepTimeout:   getEnvDuration("STEP_TIMEOUT_MS", 30000),
		RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379"),
		NATSURL:       getEnv("NATS_URL", ""),
		ScreenshotDir: getEnv("SCREENSHOT_DIR", "screenshots"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallbackMillis int) time.Duration {
	return time.Duration(getEnvInt(key, fallbackMillis)) * time.Millisecond
}
