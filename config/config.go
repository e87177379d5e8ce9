// Package config provides configuration for nbtriage: the YAML service
// configuration loaded at startup and the in-memory session settings edited
// through the configuration dialog.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration.
type Config struct {
	Model   ModelConfig   `yaml:"model"`
	Watch   WatchConfig   `yaml:"watch"`
	NATS    NATSConfig    `yaml:"nats"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ModelConfig configures the completion endpoint.
type ModelConfig struct {
	// Name is the model to request (e.g. "gpt-4o-mini").
	Name string `yaml:"name"`
	// Endpoint is the OpenAI-compatible API base URL.
	Endpoint string `yaml:"endpoint"`
	// Timeout is the maximum time to wait for a completion.
	Timeout time.Duration `yaml:"timeout"`
}

// WatchConfig configures the notebook file watcher.
type WatchConfig struct {
	// Roots are the directories to watch for notebook documents.
	Roots []string `yaml:"roots"`
	// Patterns select notebook files under the roots (doublestar globs).
	Patterns []string `yaml:"patterns"`
	// Debounce is how long to wait for more changes before processing.
	Debounce time.Duration `yaml:"debounce"`
}

// NATSConfig configures the optional triage event publisher.
type NATSConfig struct {
	// URL is the NATS server URL (empty = event publishing disabled).
	URL string `yaml:"url"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics (empty = disabled).
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Name:     "gpt-4o-mini",
			Endpoint: "https://api.openai.com/v1",
			Timeout:  2 * time.Minute,
		},
		Watch: WatchConfig{
			Roots:    []string{"."},
			Patterns: []string{"**/*.ipynb"},
			Debounce: 200 * time.Millisecond,
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Model.Name == "" {
		return fmt.Errorf("model.name is required")
	}
	if c.Model.Endpoint == "" {
		return fmt.Errorf("model.endpoint is required")
	}
	if len(c.Watch.Roots) == 0 {
		return fmt.Errorf("watch.roots is required")
	}
	if len(c.Watch.Patterns) == 0 {
		return fmt.Errorf("watch.patterns is required")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file, layered over defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Model.Name != "" {
		c.Model.Name = other.Model.Name
	}
	if other.Model.Endpoint != "" {
		c.Model.Endpoint = other.Model.Endpoint
	}
	if other.Model.Timeout != 0 {
		c.Model.Timeout = other.Model.Timeout
	}

	if len(other.Watch.Roots) > 0 {
		c.Watch.Roots = other.Watch.Roots
	}
	if len(other.Watch.Patterns) > 0 {
		c.Watch.Patterns = other.Watch.Patterns
	}
	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}

	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.Metrics.Addr != "" {
		c.Metrics.Addr = other.Metrics.Addr
	}
}
