// Provider selection and construction.
//
//	p, err := llm.FromConfig(settings.LLM)
//
//	p, err := llm.ProviderAnthropic.
//	    Model(llm.ModelClaudeSonnet4).
//	    MaxTokens(2048).
//	    APIKey("sk-...")
//
// Information Hiding:
// - Per-provider names, aliases and default models kept in one table
// - Defaulting of model, token limit and temperature

package llm

import (
	"fmt"
	"strings"

	"github.com/richinex/seoscout/config"
)

// ProviderType identifies a supported backend.
type ProviderType int

const (
	ProviderOpenAI ProviderType = iota
	ProviderAnthropic
	ProviderDeepSeek
	ProviderGemini
)

// Default model identifiers.
const (
	ModelGPT41Mini     = "gpt-4.1-mini"
	ModelClaudeSonnet4 = "claude-sonnet-4-20250514"
	ModelDeepSeekChat  = "deepseek-chat"
	ModelGeminiFlash25 = "gemini-2.5-flash"
)

const (
	defaultMaxTokens   = 4096
	defaultTemperature = 0.7
)

// options are the resolved settings handed to a constructor.
type options struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   uint32
	temperature float32
}

type backend struct {
	name         string
	aliases      []string
	defaultModel string
	build        func(o options) Provider
}

var backends map[ProviderType]backend

// Populated in init: the build closures reach ProviderType.String, which
// reads backends, so a direct initializer would be an initialization cycle.
func init() {
	backends = map[ProviderType]backend{
		ProviderOpenAI: {
			name:         "openai",
			aliases:      []string{"gpt"},
			defaultModel: ModelGPT41Mini,
			build: func(o options) Provider {
				return NewOpenAIProvider(o.apiKey, o.baseURL, o.model, o.maxTokens, o.temperature)
			},
		},
		ProviderAnthropic: {
			name:         "anthropic",
			aliases:      []string{"claude"},
			defaultModel: ModelClaudeSonnet4,
			build: func(o options) Provider {
				return NewAnthropicProvider(o.apiKey, o.baseURL, o.model, o.maxTokens, o.temperature)
			},
		},
		ProviderDeepSeek: {
			name:         "deepseek",
			defaultModel: ModelDeepSeekChat,
			build: func(o options) Provider {
				return NewDeepSeekProvider(o.apiKey, o.baseURL, o.model, o.maxTokens, o.temperature)
			},
		},
		ProviderGemini: {
			name:         "gemini",
			aliases:      []string{"google"},
			defaultModel: ModelGeminiFlash25,
			build: func(o options) Provider {
				return NewGeminiProvider(o.apiKey, o.baseURL, o.model, o.maxTokens, o.temperature)
			},
		},
	}
}

func (p ProviderType) String() string {
	if b, ok := backends[p]; ok {
		return b.name
	}
	return "unknown"
}

// DefaultModel returns the model used when none is configured.
func (p ProviderType) DefaultModel() string {
	return backends[p].defaultModel
}

// ParseProviderType resolves a provider name or alias, ignoring case and
// surrounding space.
func ParseProviderType(s string) (ProviderType, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for t, b := range backends {
		if b.name == want {
			return t, nil
		}
		for _, alias := range b.aliases {
			if alias == want {
				return t, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown provider: %s", s)
}

// Model starts configuring this provider with a specific model.
func (p ProviderType) Model(model string) *ProviderBuilder {
	return NewProviderBuilder(p).Model(model)
}

// APIKey builds this provider with default settings.
func (p ProviderType) APIKey(key string) (Provider, error) {
	return NewProviderBuilder(p).APIKey(key)
}

// ProviderBuilder collects settings before a provider is built. Unset
// values fall back to the provider's defaults.
type ProviderBuilder struct {
	kind        ProviderType
	opts        options
	temperature *float32
}

func NewProviderBuilder(kind ProviderType) *ProviderBuilder {
	return &ProviderBuilder{kind: kind}
}

func (b *ProviderBuilder) Model(model string) *ProviderBuilder {
	b.opts.model = model
	return b
}

// BaseURL points the provider at a different API endpoint.
func (b *ProviderBuilder) BaseURL(url string) *ProviderBuilder {
	b.opts.baseURL = url
	return b
}

func (b *ProviderBuilder) MaxTokens(tokens uint32) *ProviderBuilder {
	b.opts.maxTokens = tokens
	return b
}

func (b *ProviderBuilder) Temperature(temp float32) *ProviderBuilder {
	b.temperature = &temp
	return b
}

// APIKey builds the provider. An empty key is rejected.
func (b *ProviderBuilder) APIKey(key string) (Provider, error) {
	be, ok := backends[b.kind]
	if !ok {
		return nil, fmt.Errorf("unknown provider type: %d", int(b.kind))
	}
	if key == "" {
		return nil, fmt.Errorf("%s: API key is empty", be.name)
	}

	o := b.opts
	o.apiKey = key
	if o.model == "" {
		o.model = be.defaultModel
	}
	if o.maxTokens == 0 {
		o.maxTokens = defaultMaxTokens
	}
	o.temperature = defaultTemperature
	if b.temperature != nil {
		o.temperature = *b.temperature
	}
	return be.build(o), nil
}

// FromConfig builds the provider described by cfg.
func FromConfig(cfg config.LLMConfig) (Provider, error) {
	kind, err := ParseProviderType(cfg.Provider)
	if err != nil {
		return nil, err
	}
	return NewProviderBuilder(kind).
		Model(cfg.Model).
		MaxTokens(cfg.MaxTokens).
		Temperature(float32(cfg.Temperature)).
		APIKey(cfg.APIKey)
}
