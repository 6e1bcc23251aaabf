// Package groq implements an LLM provider for Groq's OpenAI-compatible
// API.
package groq

import (
	"fmt"
	"net/http"
	"os"

	"github.com/deepnoodle-ai/strand/llm"
	openaic "github.com/deepnoodle-ai/strand/llm/providers/openaicompletions"
)

var (
	DefaultModel     = "llama-3.3-70b-versatile"
	DefaultEndpoint  = "https://api.groq.com/openai/v1/chat/completions"
	DefaultMaxTokens = 4096
)

var _ llm.LLM = &Provider{}

type Provider struct {
	apiKey    string
	endpoint  string
	model     string
	maxTokens int
	client    *http.Client

	// Embedded OpenAI-compatible provider
	*openaic.Provider
}

// Option configures the Provider.
type Option func(*Provider)

// WithAPIKey sets the API key for the provider.
func WithAPIKey(apiKey string) Option {
	return func(p *Provider) { p.apiKey = apiKey }
}

// WithEndpoint sets the API endpoint URL.
func WithEndpoint(endpoint string) Option {
	return func(p *Provider) { p.endpoint = endpoint }
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(maxTokens int) Option {
	return func(p *Provider) { p.maxTokens = maxTokens }
}

// WithClient sets the HTTP client used for API requests.
func WithClient(client *http.Client) Option {
	return func(p *Provider) { p.client = client }
}

func New(opts ...Option) *Provider {
	p := &Provider{
		apiKey:   os.Getenv("GROQ_API_KEY"),
		endpoint: DefaultEndpoint,
		client:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.model == "" {
		p.model = DefaultModel
	}
	if p.maxTokens == 0 {
		p.maxTokens = DefaultMaxTokens
	}
	// Pass the options through to the wrapped OpenAI-compatible provider
	p.Provider = openaic.New(
		openaic.WithAPIKey(p.apiKey),
		openaic.WithClient(p.client),
		openaic.WithEndpoint(p.endpoint),
		openaic.WithMaxTokens(p.maxTokens),
		openaic.WithModel(p.model),
		openaic.WithSystemRole("system"),
	)
	return p
}

func (p *Provider) Name() string {
	return fmt.Sprintf("groq-%s", p.model)
}
