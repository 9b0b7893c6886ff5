package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all petshop client configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Remote storefront API
	API APIConfig `yaml:"api"`

	// Local persisted state (session token and role)
	Storage StorageConfig `yaml:"storage"`

	// Interaction timings and reconciliation policy
	UX UXConfig `yaml:"ux"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the REST backend.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// StorageConfig configures the local key/value store.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	// WatchSession reloads the session when another process changes the store.
	WatchSession bool `yaml:"watch_session"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "petshop",
		Version: "1.0.0",

		API: APIConfig{
			BaseURL: "http://localhost:8080/api",
			Timeout: "15s",
		},

		Storage: StorageConfig{
			DatabasePath: filepath.Join(".petshop", "state.db"),
			WatchSession: true,
		},

		UX: *DefaultUXConfig(),

		Logging: LoggingConfig{
			Level:     "info",
			Format:    "json",
			Directory: filepath.Join(".petshop", "logs"),
			DebugMode: false,
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Defaults still honour the environment
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if u := os.Getenv("PETSHOP_API_URL"); u != "" {
		c.API.BaseURL = u
	}
	if path := os.Getenv("PETSHOP_DB"); path != "" {
		c.Storage.DatabasePath = path
	}
	switch strings.ToLower(os.Getenv("PETSHOP_DEBUG")) {
	case "1", "true", "yes":
		c.Logging.DebugMode = true
		c.Logging.Level = "debug"
	}
}

// GetAPITimeout returns the per-request timeout as a duration.
func (c *Config) GetAPITimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url not configured (set PETSHOP_API_URL)")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api.base_url: %q", c.API.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported api.base_url scheme: %s", u.Scheme)
	}
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("storage.database_path not configured")
	}
	return c.UX.Validate()
}
