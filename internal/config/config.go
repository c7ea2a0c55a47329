// Package config loads run settings from the environment and pipeline
// definitions from the sources YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingCredentials is returned by Validate when the Bluesky identifier
// or app password is unset. Commands that never post may ignore it.
var ErrMissingCredentials = errors.New("BLUESKY_USERNAME and BLUESKY_APP_PASSWORD are required")

type Config struct {
	// Bluesky settings
	BlueskyUsername    string
	BlueskyAppPassword string
	BlueskyHost        string
	PostLangs          []string

	// Pipeline settings
	SourcesConfigPath string
	Pipeline          string
	PostedFilePath    string // overrides the pipeline's posted_file when set
	PostedCap         int
	PostDelay         time.Duration

	// Gemini settings
	GeminiAPIKey      string
	MaxGeminiRequests int // maximum Gemini requests per run (0 = unlimited)

	// Storage settings
	DatabaseURL string

	// App settings
	Debug          bool
	LogFormat      string
	RequestTimeout time.Duration
	AuthAttempts   int
	AuthRetryDelay time.Duration

	// Monitoring
	EnableMonitoring bool
	MonitoringPort   string
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		BlueskyHost:       "https://bsky.social",
		PostLangs:         []string{"sv"},
		SourcesConfigPath: "configs/sources.yaml",
		Pipeline:          "hockey",
		PostedCap:         100,
		PostDelay:         5 * time.Second,
		MaxGeminiRequests: 3,
		LogFormat:         "text",
		RequestTimeout:    10 * time.Second,
		AuthAttempts:      3,
		AuthRetryDelay:    5 * time.Second,
		MonitoringPort:    "8080",
	}

	cfg.BlueskyUsername = os.Getenv("BLUESKY_USERNAME")
	cfg.BlueskyAppPassword = os.Getenv("BLUESKY_APP_PASSWORD")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.PostedFilePath = os.Getenv("POSTED_FILE_PATH")

	cfg.BlueskyHost = strings.TrimRight(getEnvOrDefault("BLUESKY_HOST", cfg.BlueskyHost), "/")
	cfg.SourcesConfigPath = getEnvOrDefault("SOURCES_CONFIG_PATH", cfg.SourcesConfigPath)
	cfg.Pipeline = getEnvOrDefault("PIPELINE", cfg.Pipeline)
	cfg.LogFormat = strings.ToLower(getEnvOrDefault("LOG_FORMAT", cfg.LogFormat))
	cfg.MonitoringPort = getEnvOrDefault("MONITORING_PORT", cfg.MonitoringPort)

	if v := os.Getenv("POST_LANGS"); v != "" {
		cfg.PostLangs = splitList(v)
	}

	cfg.PostedCap = getEnvIntOrDefault("POSTED_CAP", cfg.PostedCap)
	cfg.AuthAttempts = getEnvIntOrDefault("AUTH_ATTEMPTS", cfg.AuthAttempts)

	if gr := os.Getenv("MAX_GEMINI_REQUESTS"); gr != "" {
		if val, err := strconv.Atoi(gr); err == nil && val >= 0 {
			cfg.MaxGeminiRequests = val
		}
	}

	var err error
	if cfg.PostDelay, err = getEnvDurationOrDefault("POST_DELAY", cfg.PostDelay); err != nil {
		return cfg, err
	}
	if cfg.RequestTimeout, err = getEnvDurationOrDefault("REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return cfg, err
	}
	if cfg.AuthRetryDelay, err = getEnvDurationOrDefault("AUTH_RETRY_DELAY", cfg.AuthRetryDelay); err != nil {
		return cfg, err
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}
	if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
		cfg.EnableMonitoring = true
	}

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

// getEnvDurationOrDefault accepts Go durations ("5s", "1m30s") and bare
// integers, which are read as seconds.
func getEnvDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
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

// Validate checks settings. Missing credentials are reported last so callers
// that tolerate them still see every other problem.
func (c *Config) Validate() error {
	if c.PostedCap <= 0 {
		return fmt.Errorf("POSTED_CAP must be positive, got %d", c.PostedCap)
	}
	if c.AuthAttempts < 1 {
		return fmt.Errorf("AUTH_ATTEMPTS must be at least 1, got %d", c.AuthAttempts)
	}
	if c.PostDelay < 0 || c.AuthRetryDelay < 0 {
		return fmt.Errorf("POST_DELAY and AUTH_RETRY_DELAY must not be negative")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be 'text' or 'json'")
	}
	if c.Pipeline == "" {
		return fmt.Errorf("PIPELINE must not be empty")
	}
	if c.BlueskyUsername == "" || c.BlueskyAppPassword == "" {
		return ErrMissingCredentials
	}
	return nil
}
