package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"prayer-tracker/internal/shared/config"
)

// Config holds the application configuration.
type Config struct {
	APIKey            string `yaml:"api_key"`
	DBPath            string `yaml:"db_path"`
	Timezone          string `yaml:"timezone"`
	Port              string `yaml:"port"`
	RateLimit         int    `yaml:"rate_limit"`
	TickMillis        int    `yaml:"tick_ms"`
	MinSessionSeconds int64  `yaml:"min_session_seconds"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		DBPath:            "./prayer.db",
		Timezone:          "UTC",
		Port:              "7070",
		RateLimit:         100,
		TickMillis:        int(config.DefaultTickInterval / time.Millisecond),
		MinSessionSeconds: config.DefaultMinSessionSeconds,
	}
}

// LoadConfig loads configuration from an optional YAML file named by
// PRAYER_CONFIG, then environment variables. Environment values win.
func LoadConfig() (*Config, error) {
	return loadConfig(os.Getenv)
}

// LoadConfigWithFile is LoadConfig with the YAML file given explicitly
// instead of through PRAYER_CONFIG.
func LoadConfigWithFile(path string) (*Config, error) {
	return loadConfig(func(key string) string {
		if key == "PRAYER_CONFIG" {
			return path
		}
		return os.Getenv(key)
	})
}

func loadConfig(getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	if path := getenv("PRAYER_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	setString(&cfg.APIKey, getenv("PRAYER_API_KEY"))
	setString(&cfg.DBPath, getenv("PRAYER_DB_PATH"))
	setString(&cfg.Timezone, getenv("PRAYER_TZ"))
	setString(&cfg.Port, getenv("PRAYER_PORT"))

	if err := setInt(&cfg.RateLimit, "PRAYER_RATE_LIMIT", getenv("PRAYER_RATE_LIMIT")); err != nil {
		return nil, err
	}
	if err := setInt(&cfg.TickMillis, "PRAYER_TICK_MS", getenv("PRAYER_TICK_MS")); err != nil {
		return nil, err
	}
	minSeconds := int(cfg.MinSessionSeconds)
	if err := setInt(&minSeconds, "PRAYER_MIN_SESSION_SECONDS", getenv("PRAYER_MIN_SESSION_SECONDS")); err != nil {
		return nil, err
	}
	cfg.MinSessionSeconds = int64(minSeconds)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	rawData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file %s does not exist", path)
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(rawData, c); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}
	return nil
}

// Validate checks values shared by every command.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("PRAYER_RATE_LIMIT must be a positive integer")
	}
	if c.TickMillis <= 0 {
		return fmt.Errorf("PRAYER_TICK_MS must be a positive integer")
	}
	if c.MinSessionSeconds <= 0 {
		return fmt.Errorf("PRAYER_MIN_SESSION_SECONDS must be a positive integer")
	}
	return nil
}

// ValidateServe adds the checks needed before exposing the HTTP API.
func (c *Config) ValidateServe() error {
	if c.APIKey == "" {
		return fmt.Errorf("PRAYER_API_KEY is required")
	}
	if len(c.APIKey) < 32 {
		return fmt.Errorf("PRAYER_API_KEY must be at least 32 characters long")
	}
	if c.Port == "" {
		return fmt.Errorf("PRAYER_PORT must not be empty")
	}
	return nil
}

// TickInterval is the timer's publish cadence.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickMillis) * time.Millisecond
}

// Location returns the configured timezone. Call after Validate.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, name, v string) error {
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fmt.Errorf("%s must be a positive integer", name)
	}
	*dst = n
	return nil
}
