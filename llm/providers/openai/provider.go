// Package openai implements an LLM provider backed by the official
// OpenAI SDK and its Responses API.
package openai

import (
	"context"
	"fmt"

	"github.com/deepnoodle-ai/strand/llm"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

var (
	DefaultModel     = openai.ChatModelGPT4o
	DefaultMaxTokens = 4096
)

var _ llm.LLM = &Provider{}

type Provider struct {
	client    openai.Client
	model     openai.ChatModel
	maxTokens int
	options   []option.RequestOption
}

func New(opts ...Option) *Provider {
	p := &Provider{
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.client = openai.NewClient(p.options...)
	return p
}

func (p *Provider) Name() string {
	return fmt.Sprintf("openai-%s", p.model)
}

func (p *Provider) Generate(ctx context.Context, messages []*llm.Message, opts ...llm.GenerateOption) (*llm.Response, error) {
	config := &llm.GenerateConfig{}
	config.Apply(opts)

	params, err := p.buildRequestParams(config, messages)
	if err != nil {
		return nil, err
	}

	response, err := p.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	return convertResponse(response), nil
}

func (p *Provider) buildRequestParams(config *llm.GenerateConfig, messages []*llm.Message) (responses.ResponseNewParams, error) {
	if len(messages) == 0 {
		return responses.ResponseNewParams{}, fmt.Errorf("no messages provided")
	}

	input := make([]responses.ResponseInputItemUnionParam, 0, len(messages))
	for _, msg := range messages {
		input = append(input, responses.ResponseInputItemUnionParam{
			OfMessage: &responses.EasyInputMessageParam{
				Role: responses.EasyInputMessageRole(msg.Role),
				Content: responses.EasyInputMessageContentUnionParam{
					OfString: openai.String(msg.Content),
				},
			},
		})
	}

	model := p.model
	if config.Model != "" {
		model = openai.ChatModel(config.Model)
	}
	params := responses.ResponseNewParams{
		Model: model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: input,
		},
	}
	if config.SystemPrompt != "" {
		params.Instructions = openai.String(config.SystemPrompt)
	}
	if config.MaxTokens != nil && *config.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(*config.MaxTokens))
	} else if p.maxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(p.maxTokens))
	}
	if config.Temperature != nil {
		params.Temperature = openai.Float(*config.Temperature)
	}
	return params, nil
}

func convertResponse(response *responses.Response) *llm.Response {
	stopReason := "end_turn"
	if response.Status == "incomplete" {
		stopReason = string(response.IncompleteDetails.Reason)
	}
	return llm.NewResponse(llm.ResponseOptions{
		ID:         response.ID,
		Model:      string(response.Model),
		StopReason: stopReason,
		Message:    llm.NewAssistantMessage(response.OutputText()),
		Usage: llm.Usage{
			InputTokens:  int(response.Usage.InputTokens),
			OutputTokens: int(response.Usage.OutputTokens),
		},
	})
}
