// Package config loads process settings from the environment and the
// per-stage configuration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ErrInvalidConfig marks configuration that failed validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds process-wide settings taken from the environment.
type Config struct {
	// Locations
	BaseDir   string // every relative path in stage files resolves against it
	ConfigDir string

	// Gemini settings
	GeminiAPIKey      string
	GeminiModel       string
	MaxGeminiRequests int // maximum Gemini requests per run (0 = unlimited)

	// Fallback translation
	OpenAIAPIKey string

	// Telegram delivery (optional)
	TelegramToken  string
	TelegramChatID string

	// Scraper settings
	ScrapeConcurrency int

	// App settings
	Debug          bool
	LogLevel       string
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration

	// Summary cache
	SummaryCachePath string
	SummaryCacheTTL  time.Duration

	// Monitoring
	EnableMonitoring bool
	MonitoringPort   string
}

// Load reads settings from the environment and validates them.
func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		BaseDir:           ".",
		ConfigDir:         "configs",
		GeminiModel:       "gemini-1.5-flash",
		MaxGeminiRequests: 40,
		ScrapeConcurrency: 4,
		LogLevel:          "info",
		RequestTimeout:    30 * time.Second,
		RetryAttempts:     3,
		RetryDelay:        2 * time.Second,
		SummaryCachePath:  "data/summary_cache.json",
		SummaryCacheTTL:   72 * time.Hour,
		MonitoringPort:    "8080",
	}

	cfg.BaseDir = getEnvOrDefault("NEWSLETTER_BASE_DIR", cfg.BaseDir)
	cfg.ConfigDir = getEnvOrDefault("NEWSLETTER_CONFIG_DIR", cfg.ConfigDir)

	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.GeminiModel = getEnvOrDefault("GEMINI_MODEL", cfg.GeminiModel)
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")

	if v := os.Getenv("MAX_GEMINI_REQUESTS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val >= 0 {
			cfg.MaxGeminiRequests = val
		}
	}
	if v := os.Getenv("SCRAPE_CONCURRENCY"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.ScrapeConcurrency = val
		}
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)

	cfg.RequestTimeout = getEnvDurationOrDefault("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.RetryAttempts = getEnvIntOrDefault("RETRY_ATTEMPTS", cfg.RetryAttempts)
	cfg.RetryDelay = getEnvDurationOrDefault("RETRY_DELAY", cfg.RetryDelay)

	cfg.SummaryCachePath = getEnvOrDefault("SUMMARY_CACHE_PATH", cfg.SummaryCachePath)
	if hours := getEnvIntOrDefault("SUMMARY_CACHE_TTL_HOURS", 0); hours > 0 {
		cfg.SummaryCacheTTL = time.Duration(hours) * time.Hour
	}

	cfg.EnableMonitoring = os.Getenv("ENABLE_HTTP_MONITORING") == "true"
	cfg.MonitoringPort = getEnvOrDefault("MONITORING_PORT", cfg.MonitoringPort)

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

// Validate checks cross-field constraints. API keys are optional: stages
// that need them degrade to their fallbacks.
func (c *Config) Validate() error {
	if c.ConfigDir == "" {
		return fmt.Errorf("%w: NEWSLETTER_CONFIG_DIR must not be empty", ErrInvalidConfig)
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("%w: RETRY_ATTEMPTS must be >= 1", ErrInvalidConfig)
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("%w: TELEGRAM_TOKEN and TELEGRAM_CHAT_ID must be set together", ErrInvalidConfig)
	}
	return nil
}

// TelegramEnabled reports whether delivery credentials are present.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}
