package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"

	DefaultAPIBaseURL = "https://web-production-53e0c.up.railway.app"
)

type Config struct {
	APIBaseURL        string
	APITimeout        time.Duration
	SessionBackend    string
	SessionFile       string
	DatabaseURL       string
	DatabaseMaxConns  int
	LogLevel          string
	OTPResendInterval time.Duration
	RecentOrdersLimit int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		APIBaseURL:        strings.TrimRight(getEnv("API_BASE_URL", DefaultAPIBaseURL), "/"),
		APITimeout:        getDuration("API_TIMEOUT", 30*time.Second),
		SessionBackend:    strings.ToLower(getEnv("SESSION_BACKEND", BackendFile)),
		SessionFile:       getEnv("SESSION_FILE", defaultSessionFile()),
		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DatabaseMaxConns:  getInt("DATABASE_MAX_CONNS", 4),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		OTPResendInterval: getDuration("OTP_RESEND_INTERVAL", 60*time.Second),
		RecentOrdersLimit: getInt("RECENT_ORDERS_LIMIT", 5),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	parsed, err := url.Parse(c.APIBaseURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("API_BASE_URL must be an absolute http(s) URL")
	}

	if c.APITimeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive")
	}

	switch c.SessionBackend {
	case BackendFile:
		if strings.TrimSpace(c.SessionFile) == "" {
			return fmt.Errorf("SESSION_FILE cannot be empty")
		}
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when SESSION_BACKEND=postgres")
		}
		if c.DatabaseMaxConns <= 0 {
			return fmt.Errorf("DATABASE_MAX_CONNS must be positive")
		}
	default:
		return fmt.Errorf("SESSION_BACKEND must be one of file, memory, postgres")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}

	if c.OTPResendInterval < time.Second {
		return fmt.Errorf("OTP_RESEND_INTERVAL must be at least 1s")
	}

	if c.RecentOrdersLimit <= 0 {
		return fmt.Errorf("RECENT_ORDERS_LIMIT must be positive")
	}

	return nil
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".peelojuice", "session.json")
	}
	return filepath.Join(home, ".peelojuice", "session.json")
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}
