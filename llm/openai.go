// OpenAI-compatible provider using the go-openai library.
//
// Information Hiding:
// - API endpoint and authentication
// - Chat Completions request shape
// - DeepSeek served through the same client with a different base URL

package llm

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

const deepseekBaseURL = "https://api.deepseek.com/v1"

// OpenAIProvider implements Provider for OpenAI and OpenAI-compatible APIs.
type OpenAIProvider struct {
	client      *openai.Client
	name        string
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIProvider creates an OpenAI provider. An empty baseURL uses the
// public OpenAI endpoint.
func NewOpenAIProvider(apiKey, baseURL, model string, maxTokens uint32, temperature float32) *OpenAIProvider {
	return newCompatibleProvider(ProviderOpenAI.String(), apiKey, baseURL, model, maxTokens, temperature)
}

// NewDeepSeekProvider creates a DeepSeek provider. An empty baseURL uses
// the public DeepSeek endpoint.
func NewDeepSeekProvider(apiKey, baseURL, model string, maxTokens uint32, temperature float32) *OpenAIProvider {
	if baseURL == "" {
		baseURL = deepseekBaseURL
	}
	return newCompatibleProvider(ProviderDeepSeek.String(), apiKey, baseURL, model, maxTokens, temperature)
}

func newCompatibleProvider(name, apiKey, baseURL, model string, maxTokens uint32, temperature float32) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(cfg),
		name:        name,
		model:       model,
		maxTokens:   int(maxTokens),
		temperature: temperature,
	}
}

func (p *OpenAIProvider) Name() string  { return p.name }
func (p *OpenAIProvider) Model() string { return p.model }

// Complete sends the prompt as a system and a user message.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt Prompt) (Completion, error) {
	var messages []openai.ChatCompletionMessage
	if prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: prompt.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt.User})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:               p.model,
		Messages:            messages,
		MaxCompletionTokens: p.maxTokens,
		Temperature:         p.temperature,
	})
	if err != nil {
		return Completion{}, p.wrapError(err)
	}

	var out Completion
	if len(resp.Choices) > 0 {
		out.Text = resp.Choices[0].Message.Content
		out.Truncated = resp.Choices[0].FinishReason == openai.FinishReasonLength
	}
	out.Usage = &TokenUsage{
		InputTokens:  uint32(resp.Usage.PromptTokens),
		OutputTokens: uint32(resp.Usage.CompletionTokens),
	}
	return out, nil
}

func (p *OpenAIProvider) wrapError(err error) error {
	pe := &ProviderError{Provider: p.name, Err: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		pe.StatusCode = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		pe.StatusCode = reqErr.HTTPStatusCode
	}
	return pe
}

var _ Provider = (*OpenAIProvider)(nil)
