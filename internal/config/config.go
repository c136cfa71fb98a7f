package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigEnv names the optional YAML config file
const ConfigEnv = "COURSE_IMPORTER_CONFIG"

// Config holds all configuration for course-importer
type Config struct {
	API     APIConfig     `yaml:"api"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig holds LMS API configuration
type APIConfig struct {
	URL           string        `yaml:"url"`
	Token         string        `yaml:"token"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"`
	BackoffFactor time.Duration `yaml:"backoff_factor"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		API: APIConfig{
			Timeout:       120 * time.Second,
			MaxRetries:    3,
			BackoffFactor: time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path (or $COURSE_IMPORTER_CONFIG) and environment variables, in that order
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getEnv(ConfigEnv, "")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.API.URL = getEnv("LMS_API_URL", cfg.API.URL)
	cfg.API.Token = getEnv("LMS_API_TOKEN", cfg.API.Token)
	cfg.API.Timeout = getEnvAsDuration("LMS_TIMEOUT", cfg.API.Timeout)
	cfg.API.MaxRetries = getEnvAsInt("LMS_MAX_RETRIES", cfg.API.MaxRetries)
	cfg.API.BackoffFactor = getEnvAsDuration("LMS_BACKOFF_FACTOR", cfg.API.BackoffFactor)
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile overlays values from a YAML file
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file not found: %s", path)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	if c.API.Timeout <= 0 {
		errs = append(errs, fmt.Sprintf("timeout must be positive, got %s", c.API.Timeout))
	}
	if c.API.MaxRetries < 0 {
		errs = append(errs, fmt.Sprintf("max retries must be non-negative, got %d", c.API.MaxRetries))
	}
	if c.API.BackoffFactor < 0 {
		errs = append(errs, "backoff factor must be non-negative")
	}
	if c.API.URL != "" {
		u, err := url.Parse(c.API.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Sprintf("invalid API URL %q: must be http(s)://host", c.API.URL))
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log level %q", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid log format %q", c.Logging.Format))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// HasCredentials returns true if both the API URL and token are set
func (c *Config) HasCredentials() bool {
	return c.API.URL != "" && c.API.Token != ""
}

// String returns a representation safe for logging
func (c *Config) String() string {
	token := ""
	if c.API.Token != "" {
		token = "[MASKED]"
	}
	return fmt.Sprintf("Config{API: {URL: %q, Token: %q, Timeout: %s, MaxRetries: %d, BackoffFactor: %s}, Logging: {Level: %q, Format: %q}}",
		c.API.URL, token, c.API.Timeout, c.API.MaxRetries, c.API.BackoffFactor, c.Logging.Level, c.Logging.Format)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// bare numbers are seconds
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
