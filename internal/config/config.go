// Package config loads application configuration from the environment,
// with optional .env file support.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all server configuration.
type Config struct {
	Addr      string
	DataDir   string
	StaticDir string

	GatewayBaseURL    string
	GatewayAPIKey     string
	PropertyCode      string
	GatewayTimeoutSec int

	RefreshIntervalMin int
	WindowDays         int
}

// Load reads the .env file (when present) and returns a populated
// Config.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		Addr:      getEnv("ADDR", ":8090"),
		DataDir:   getEnv("DATA_DIR", "./data"),
		StaticDir: getEnv("STATIC_DIR", "./static"),

		GatewayBaseURL:    getEnv("GATEWAY_BASE_URL", "http://localhost:9000"),
		GatewayAPIKey:     getEnv("GATEWAY_API_KEY", ""),
		PropertyCode:      getEnv("PROPERTY_CODE", "default"),
		GatewayTimeoutSec: getEnvInt("GATEWAY_TIMEOUT_SEC", 15),

		RefreshIntervalMin: getEnvInt("REFRESH_INTERVAL_MIN", 5),
		WindowDays:         getEnvInt("WINDOW_DAYS", 7),
	}
}

// GatewayTimeout returns the gateway request timeout as a duration.
func (c *Config) GatewayTimeout() time.Duration {
	return time.Duration(c.GatewayTimeoutSec) * time.Second
}

// RefreshInterval returns the auto-refresh interval as a duration.
// Zero disables auto-refresh.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMin) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}
