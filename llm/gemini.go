// Google Gemini provider using the official google.golang.org/genai SDK.
//
// Information Hiding:
// - API authentication and client creation
// - System instruction passed through the generation config

package llm

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

// GeminiProvider implements Provider for Google Gemini.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
	initErr     error // returned on first use
}

// NewGeminiProvider creates a Gemini provider. If client initialization
// fails, the error is stored and returned on first use.
func NewGeminiProvider(apiKey, baseURL, model string, maxTokens uint32, temperature float32) *GeminiProvider {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	p := &GeminiProvider{
		model:       model,
		maxTokens:   int32(maxTokens),
		temperature: temperature,
	}

	client, err := genai.NewClient(context.Background(), cfg)
	if err != nil {
		p.initErr = &ProviderError{Provider: p.Name(), Err: err}
		return p
	}
	p.client = client
	return p
}

func (p *GeminiProvider) Name() string  { return ProviderGemini.String() }
func (p *GeminiProvider) Model() string { return p.model }

// Complete sends one user turn with the system prompt as system instruction.
func (p *GeminiProvider) Complete(ctx context.Context, prompt Prompt) (Completion, error) {
	if p.initErr != nil {
		return Completion{}, p.initErr
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.temperature),
		MaxOutputTokens: p.maxTokens,
	}
	if prompt.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}
	contents := []*genai.Content{genai.NewContentFromText(prompt.User, genai.RoleUser)}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		pe := &ProviderError{Provider: p.Name(), Err: err}
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			pe.StatusCode = apiErr.Code
		}
		return Completion{}, pe
	}

	out := Completion{Text: resp.Text()}
	if len(resp.Candidates) > 0 {
		out.Truncated = resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens
	}
	if resp.UsageMetadata != nil {
		out.Usage = &TokenUsage{
			InputTokens:  uint32(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: uint32(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

var _ Provider = (*GeminiProvider)(nil)
