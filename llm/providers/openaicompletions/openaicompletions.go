// Package openaicompletions implements an LLM provider for any endpoint
// speaking the OpenAI chat completions protocol.
package openaicompletions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/deepnoodle-ai/strand/llm"
	"github.com/deepnoodle-ai/strand/llm/providers"
	"github.com/deepnoodle-ai/strand/retry"
)

var (
	DefaultModel      = "gpt-4o"
	DefaultEndpoint   = "https://api.openai.com/v1/chat/completions"
	DefaultMaxTokens  = 4096
	DefaultMaxRetries = 6
	DefaultBaseWait   = 2 * time.Second
	DefaultSystemRole = "system"
)

var _ llm.LLM = &Provider{}

type Provider struct {
	apiKey        string
	endpoint      string
	model         string
	maxTokens     int
	maxRetries    int
	retryBaseWait time.Duration
	systemRole    string
	client        *http.Client
}

func New(opts ...Option) *Provider {
	p := &Provider{
		apiKey:        os.Getenv("OPENAI_API_KEY"),
		endpoint:      DefaultEndpoint,
		model:         DefaultModel,
		maxTokens:     DefaultMaxTokens,
		maxRetries:    DefaultMaxRetries,
		retryBaseWait: DefaultBaseWait,
		systemRole:    DefaultSystemRole,
		client:        http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string {
	return fmt.Sprintf("openai-completions-%s", p.model)
}

func (p *Provider) Generate(ctx context.Context, messages []*llm.Message, opts ...llm.GenerateOption) (*llm.Response, error) {
	config := &llm.GenerateConfig{}
	config.Apply(opts)

	model := config.Model
	if model == "" {
		model = p.model
	}
	maxTokens := p.maxTokens
	if config.MaxTokens != nil {
		maxTokens = *config.MaxTokens
	}

	request := Request{
		Model:       model,
		MaxTokens:   &maxTokens,
		Temperature: config.Temperature,
		Messages:    p.convertMessages(config.SystemPrompt, messages),
	}
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	var result Response
	err = retry.Do(ctx, func() error {
		req, err := p.createRequest(ctx, body)
		if err != nil {
			return err
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return fmt.Errorf("error making request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode == http.StatusTooManyRequests && config.Logger != nil {
				config.Logger.Warn("rate limit exceeded",
					"status", resp.StatusCode, "body", string(body))
			}
			return providers.NewError(resp.StatusCode, string(body))
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("error decoding response: %w", err)
		}
		return nil
	}, retry.WithMaxRetries(p.maxRetries), retry.WithBaseWait(p.retryBaseWait))

	if err != nil {
		return nil, err
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("empty response from %s", p.endpoint)
	}
	choice := result.Choices[0]

	return llm.NewResponse(llm.ResponseOptions{
		ID:         result.ID,
		Model:      result.Model,
		StopReason: choice.FinishReason,
		Message:    llm.NewAssistantMessage(choice.Message.Content),
		Usage: llm.Usage{
			InputTokens:  result.Usage.PromptTokens,
			OutputTokens: result.Usage.CompletionTokens,
		},
	}), nil
}

func (p *Provider) convertMessages(systemPrompt string, messages []*llm.Message) []Message {
	out := make([]Message, 0, len(messages)+1)
	if systemPrompt != "" {
		out = append(out, Message{Role: p.systemRole, Content: systemPrompt})
	}
	for _, m := range messages {
		out = append(out, Message{Role: m.Role.String(), Content: m.Content})
	}
	return out
}

func (p *Provider) createRequest(ctx context.Context, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	return req, nil
}
