// Package config provides configuration loading and validation for the
// tender acquisition pipeline.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config represents the pipeline configuration that can be loaded from a
// JSON file. All fields are optional; missing values use defaults or can be
// provided via environment variables.
type Config struct {
	// Sources
	PortalURL string `json:"portal_url,omitempty"` // Procurement portal search page
	FeedURL   string `json:"feed_url,omitempty"`   // Passive RSS fallback feed

	// Persistence
	DatabaseURL  string `json:"database_url,omitempty"`  // PostgreSQL connection URL
	SnapshotPath string `json:"snapshot_path,omitempty"` // Diagnostics snapshot file

	// Acquisition behavior
	Headless         bool `json:"headless,omitempty"`           // Run the browser headless
	MaxAttempts      int  `json:"max_attempts,omitempty"`       // Active-extraction attempts per run
	AttemptTimeoutMS int  `json:"attempt_timeout_ms,omitempty"` // Per-attempt budget
	RateLimitPermits int  `json:"rate_limit_permits,omitempty"` // Client initializations per window
	RateLimitWindowS int  `json:"rate_limit_window_s,omitempty"`

	// Server
	Port    int  `json:"port,omitempty"`
	Verbose bool `json:"verbose,omitempty"`
}

// Defaults applied by ApplyDefaults.
const (
	DefaultSnapshotPath     = "diagnostics/acquisition.json"
	DefaultMaxAttempts      = 3
	DefaultAttemptTimeoutMS = 30000
	DefaultRateLimitPermits = 10
	DefaultRateLimitWindowS = 60
	DefaultPort             = 8080
)

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv fills unset fields from environment variables.
func (c *Config) FromEnv() {
	setString(&c.PortalURL, "TENDER_PORTAL_URL")
	setString(&c.FeedURL, "TENDER_FEED_URL")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.SnapshotPath, "TENDER_SNAPSHOT_PATH")
	setInt(&c.MaxAttempts, "TENDER_MAX_ATTEMPTS")
	setInt(&c.AttemptTimeoutMS, "TENDER_ATTEMPT_TIMEOUT_MS")
	setInt(&c.Port, "PORT")
}

// ApplyDefaults fills remaining zero values with the standard defaults.
func (c *Config) ApplyDefaults() {
	if c.SnapshotPath == "" {
		c.SnapshotPath = DefaultSnapshotPath
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.AttemptTimeoutMS == 0 {
		c.AttemptTimeoutMS = DefaultAttemptTimeoutMS
	}
	if c.RateLimitPermits == 0 {
		c.RateLimitPermits = DefaultRateLimitPermits
	}
	if c.RateLimitWindowS == 0 {
		c.RateLimitWindowS = DefaultRateLimitWindowS
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.MaxAttempts < 0 {
		return fmt.Errorf("config error: 'max_attempts' must be non-negative")
	}
	if c.AttemptTimeoutMS < 0 {
		return fmt.Errorf("config error: 'attempt_timeout_ms' must be non-negative")
	}
	if c.RateLimitPermits < 0 || c.RateLimitWindowS < 0 {
		return fmt.Errorf("config error: rate limit settings must be non-negative")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be a valid TCP port")
	}
	return nil
}

func setString(dst *string, key string) {
	if *dst == "" {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
}

func setInt(dst *int, key string) {
	if *dst == 0 {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
}
