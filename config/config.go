// Package config loads orchestrator configuration from YAML or JSON.
package config

import (
	"fmt"
	"time"
)

const (
	DefaultMaxIterations    = 10
	DefaultMaxConcurrency   = 4
	DefaultExecutionTimeout = 30 * time.Second
)

// Config describes one orchestrator setup.
type Config struct {
	// Provider selects the LLM provider: "openai", "openai-completions",
	// or "groq".
	Provider string `yaml:"Provider,omitempty" json:"Provider,omitempty"`

	// Model overrides the provider's default model.
	Model string `yaml:"Model,omitempty" json:"Model,omitempty"`

	// SystemPrompt is prepended to the built-in operation instructions.
	SystemPrompt string `yaml:"SystemPrompt,omitempty" json:"SystemPrompt,omitempty"`

	// MaxIterations caps the reasoning loop per session.
	MaxIterations int `yaml:"MaxIterations,omitempty" json:"MaxIterations,omitempty"`

	// MaxConcurrency caps how many code executions run at once within
	// one iteration.
	MaxConcurrency int `yaml:"MaxConcurrency,omitempty" json:"MaxConcurrency,omitempty"`

	// ExecutionTimeout bounds each sandboxed code execution.
	ExecutionTimeout time.Duration `yaml:"ExecutionTimeout,omitempty" json:"ExecutionTimeout,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"LogLevel,omitempty" json:"LogLevel,omitempty"`

	// Vault configures result storage.
	Vault VaultConfig `yaml:"Vault,omitempty" json:"Vault,omitempty"`

	// Sessions configures session persistence.
	Sessions SessionsConfig `yaml:"Sessions,omitempty" json:"Sessions,omitempty"`
}

// VaultConfig configures the result vault.
type VaultConfig struct {
	// Dir enables file-backed storage when set; empty means in-memory.
	Dir string `yaml:"Dir,omitempty" json:"Dir,omitempty"`

	// PreviewLimit is the maximum preview length in runes.
	PreviewLimit int `yaml:"PreviewLimit,omitempty" json:"PreviewLimit,omitempty"`

	// StoreThreshold is the auto-store size threshold for strings.
	StoreThreshold int `yaml:"StoreThreshold,omitempty" json:"StoreThreshold,omitempty"`
}

// SessionsConfig configures session persistence.
type SessionsConfig struct {
	// Dir enables file-backed session storage when set; empty means
	// in-memory.
	Dir string `yaml:"Dir,omitempty" json:"Dir,omitempty"`
}

// ApplyDefaults fills unset fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.ExecutionTimeout <= 0 {
		c.ExecutionTimeout = DefaultExecutionTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate reports configuration mistakes a run would trip over later.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.LogLevel)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("max iterations must not be negative")
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max concurrency must not be negative")
	}
	return nil
}
