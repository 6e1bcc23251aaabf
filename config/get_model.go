package config

import (
	"fmt"

	"github.com/deepnoodle-ai/strand/llm"
	"github.com/deepnoodle-ai/strand/llm/providers/groq"
	"github.com/deepnoodle-ai/strand/llm/providers/openai"
	"github.com/deepnoodle-ai/strand/llm/providers/openaicompletions"
)

var DefaultProvider = "openai"

// GetModel resolves a provider and model name to an LLM implementation.
func GetModel(providerName, modelName string) (llm.LLM, error) {
	if providerName == "" {
		providerName = DefaultProvider
	}

	switch providerName {
	case "openai":
		opts := []openai.Option{}
		if modelName != "" {
			opts = append(opts, openai.WithModel(modelName))
		}
		return openai.New(opts...), nil

	case "openai-completions":
		opts := []openaicompletions.Option{}
		if modelName != "" {
			opts = append(opts, openaicompletions.WithModel(modelName))
		}
		return openaicompletions.New(opts...), nil

	case "groq":
		opts := []groq.Option{}
		if modelName != "" {
			opts = append(opts, groq.WithModel(modelName))
		}
		return groq.New(opts...), nil

	default:
		return nil, fmt.Errorf("unsupported provider: %q", providerName)
	}
}
