// Package config loads statcheck configuration from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all statcheck configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Text-classification collaborator
	LLM LLMConfig `yaml:"llm"`

	// Remote statistics API
	API APIConfig `yaml:"api"`

	// Table catalog store
	Catalog CatalogConfig `yaml:"catalog"`

	// Fetch cache
	Cache CacheConfig `yaml:"cache"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the classification collaborator.
type LLMConfig struct {
	Provider string `yaml:"provider"` // genai, gemini-rest
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// APIConfig configures the remote statistics API.
type APIConfig struct {
	BaseURL      string `yaml:"base_url"`
	Language     string `yaml:"language"`
	OutputFormat string `yaml:"output_format"`
	Timeout      string `yaml:"timeout"`
}

// CatalogConfig configures the sqlite table catalog.
type CatalogConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// CacheConfig configures the fetch cache.
type CacheConfig struct {
	DatabasePath string `yaml:"database_path"`
	TTL          string `yaml:"ttl"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Debug bool   `yaml:"debug"`
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "statcheck",
		Version: "1.0.0",

		LLM: LLMConfig{
			Provider: "genai",
			Model:    "gemini-2.0-flash",
			BaseURL:  "https://generativelanguage.googleapis.com/v1beta",
			Timeout:  "60s",
		},

		API: APIConfig{
			BaseURL:      "https://statistikdatabasen.scb.se/api/v2",
			Language:     "en",
			OutputFormat: "json-stat2",
			Timeout:      "30s",
		},

		Catalog: CatalogConfig{
			DatabasePath: "data/catalog.db",
		},

		Cache: CacheConfig{
			DatabasePath: "data/cache.db",
			TTL:          "24h",
		},

		Logging: LoggingConfig{
			Debug: false,
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
// Returns defaults if the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

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
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "genai"
		}
	}
	if url := os.Getenv("STATCHECK_API_URL"); url != "" {
		c.API.BaseURL = url
	}
	if path := os.Getenv("STATCHECK_CATALOG_DB"); path != "" {
		c.Catalog.DatabasePath = path
	}
	if path := os.Getenv("STATCHECK_CACHE_DB"); path != "" {
		c.Cache.DatabasePath = path
	}
}

// GetLLMTimeout returns the collaborator timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetAPITimeout returns the statistics API timeout as a duration.
func (c *Config) GetAPITimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetCacheTTL returns the fetch cache time-to-live as a duration.
func (c *Config) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}
