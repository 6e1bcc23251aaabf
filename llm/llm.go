// Package llm defines the minimal chat-completion surface the
// orchestration loop needs. Control flow between model and host rides
// inside message text as tagged operations, so providers only have to
// move text: there is no tool-calling protocol at this layer.
package llm

import (
	"context"

	"github.com/deepnoodle-ai/strand/slogger"
)

type LLM interface {
	// Name identifies the provider and model, e.g. "groq-llama-3.3-70b".
	Name() string

	// Generate a response from the LLM by passing messages.
	Generate(ctx context.Context, messages []*Message, opts ...GenerateOption) (*Response, error)
}

// GenerateOption is a function that configures the generation.
type GenerateOption func(*GenerateConfig)

// GenerateConfig holds configuration parameters for LLM generation.
type GenerateConfig struct {
	Model        string
	SystemPrompt string
	MaxTokens    *int
	Temperature  *float64
	Logger       slogger.Logger
}

// Apply the options to this config.
func (c *GenerateConfig) Apply(opts []GenerateOption) {
	for _, opt := range opts {
		opt(c)
	}
}

// WithModel sets the LLM model for the generation.
func WithModel(model string) GenerateOption {
	return func(config *GenerateConfig) {
		config.Model = model
	}
}

// WithSystemPrompt sets the system prompt.
func WithSystemPrompt(systemPrompt string) GenerateOption {
	return func(config *GenerateConfig) {
		config.SystemPrompt = systemPrompt
	}
}

// WithMaxTokens sets the max tokens.
func WithMaxTokens(maxTokens int) GenerateOption {
	return func(config *GenerateConfig) {
		config.MaxTokens = &maxTokens
	}
}

// WithTemperature sets the temperature.
func WithTemperature(temperature float64) GenerateOption {
	return func(config *GenerateConfig) {
		config.Temperature = &temperature
	}
}

// WithLogger sets the logger used during generation.
func WithLogger(logger slogger.Logger) GenerateOption {
	return func(config *GenerateConfig) {
		config.Logger = logger
	}
}
