// Package llm provides the text-generation backends behind the narrative
// writer. Every backend answers one prompt with one completion.
//
// Each provider implementation hides:
// - API client initialization and authentication
// - Prompt and completion format conversion
// - Mapping of SDK errors onto ProviderError

package llm

import (
	"context"
	"fmt"
)

// Provider turns a prompt into a completion.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the model requests are sent to.
	Model() string

	// Complete sends a single-turn request.
	Complete(ctx context.Context, prompt Prompt) (Completion, error)
}

// Prompt is a single-turn request: optional instructions plus the user
// content they apply to.
type Prompt struct {
	System string
	User   string
}

// Completion is a provider's answer to a Prompt.
type Completion struct {
	Text  string
	Usage *TokenUsage
	// Truncated is set when generation stopped at the token limit.
	Truncated bool
}

// TokenUsage contains token usage statistics.
type TokenUsage struct {
	InputTokens  uint32
	OutputTokens uint32
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() uint32 {
	return u.InputTokens + u.OutputTokens
}

// ProviderError is a failed request to a provider. StatusCode is zero when
// no HTTP response was received.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
