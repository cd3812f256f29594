// Package config provides application settings loaded once at startup.
//
// Settings are created via Load() which handles:
// - Optional YAML overlay file for non-secret defaults
// - Environment variable parsing with validation
// - Default value application
//
// Validate() enforces the required credentials. Nothing outside this
// package reads the environment; fetchers and providers receive the
// relevant sub-struct in their constructors.

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default endpoints for the external APIs.
const (
	DefaultSearchEndpoint = "http://api.scrapingdog.com/google"
	DefaultAuditEndpoint  = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"
)

// Settings holds all application configuration.
type Settings struct {
	Search    SearchConfig
	Audit     AuditConfig
	LLM       LLMConfig
	HTTP      HTTPConfig
	Store     StoreConfig
	Log       LogConfig
	Narrative bool
}

// SearchConfig configures the search-results fetcher.
type SearchConfig struct {
	APIKey   string
	Endpoint string
	Country  string
	Language string
}

// AuditConfig configures the page-performance audit fetcher.
type AuditConfig struct {
	APIKey     string
	Endpoint   string
	Strategy   string
	Categories []string
	Locale     string
}

// LLMConfig holds text-generation provider configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	APIKey      string
	MaxTokens   uint32
	Temperature float64
}

// HTTPConfig holds outbound HTTP settings shared by the fetchers.
type HTTPConfig struct {
	TimeoutSecs uint64
}

// StoreConfig locates the run history database.
type StoreConfig struct {
	Path string
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string
	Format string
}

// ConfigError reports a missing or malformed configuration value.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Key, e.Reason)
}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
}

// Supported providers and their configuration.
var providers = map[string]providerInfo{
	"openai":    {"OPENAI_MODEL", "gpt-4.1-mini", "OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_MODEL", "claude-sonnet-4-20250514", "ANTHROPIC_API_KEY"},
	"deepseek":  {"DEEPSEEK_MODEL", "deepseek-chat", "DEEPSEEK_API_KEY"},
	"gemini":    {"GEMINI_MODEL", "gemini-2.5-flash", "GEMINI_API_KEY"},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
}

// Defaults returns settings with every non-secret default applied.
func Defaults() Settings {
	return Settings{
		Search: SearchConfig{
			Endpoint: DefaultSearchEndpoint,
			Country:  "us",
			Language: "en",
		},
		Audit: AuditConfig{
			Endpoint:   DefaultAuditEndpoint,
			Strategy:   "mobile",
			Categories: []string{"performance", "accessibility", "seo"},
			Locale:     "en",
		},
		LLM: LLMConfig{
			Provider:    "openai",
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		HTTP:      HTTPConfig{TimeoutSecs: 30},
		Store:     StoreConfig{Path: ".seoscout/seoscout.db"},
		Log:       LogConfig{Level: "info", Format: "text"},
		Narrative: true,
	}
}

// Load builds settings from defaults, the optional YAML file at path and
// the environment, in that order of precedence (environment wins).
// It does not check credentials; call Validate once flags are applied.
func Load(path string) (Settings, error) {
	settings := Defaults()

	if path != "" {
		if err := applyFile(&settings, path); err != nil {
			return Settings{}, err
		}
	}

	if err := applyEnv(&settings); err != nil {
		return Settings{}, err
	}

	return settings, nil
}

// Validate checks that every credential required by the enabled
// components is present. The first missing value is reported.
func (s Settings) Validate() error {
	if s.Search.APIKey == "" {
		return &ConfigError{Key: "SCRAPINGDOG_API_KEY", Reason: "environment variable not set"}
	}
	if s.Audit.APIKey == "" {
		return &ConfigError{Key: "GOOGLE_API_KEY", Reason: "environment variable not set"}
	}
	switch s.Audit.Strategy {
	case "mobile", "desktop":
	default:
		return &ConfigError{Key: "AUDIT_STRATEGY", Reason: fmt.Sprintf("must be mobile or desktop, got %q", s.Audit.Strategy)}
	}
	if s.Narrative {
		info, err := getProviderInfo(s.LLM.Provider)
		if err != nil {
			return &ConfigError{Key: "LLM_PROVIDER", Reason: err.Error()}
		}
		if s.LLM.APIKey == "" {
			return &ConfigError{Key: info.apiKeyEnv, Reason: "environment variable not set"}
		}
	}
	return nil
}

// fileSettings mirrors the YAML overlay. Secrets are never read from it.
type fileSettings struct {
	Search struct {
		Endpoint string `yaml:"endpoint"`
		Country  string `yaml:"country"`
		Language string `yaml:"language"`
	} `yaml:"search"`
	Audit struct {
		Endpoint   string   `yaml:"endpoint"`
		Strategy   string   `yaml:"strategy"`
		Categories []string `yaml:"categories"`
		Locale     string   `yaml:"locale"`
	} `yaml:"audit"`
	LLM struct {
		Provider    string   `yaml:"provider"`
		Model       string   `yaml:"model"`
		MaxTokens   uint32   `yaml:"max_tokens"`
		Temperature *float64 `yaml:"temperature"`
	} `yaml:"llm"`
	HTTP struct {
		TimeoutSecs uint64 `yaml:"timeout_secs"`
	} `yaml:"http"`
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Narrative *bool `yaml:"narrative"`
}

func applyFile(s *Settings, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var f fileSettings
	if err := yaml.Unmarshal(data, &f); err != nil {
		return &ConfigError{Key: path, Reason: fmt.Sprintf("invalid YAML: %v", err)}
	}

	setString(&s.Search.Endpoint, f.Search.Endpoint)
	setString(&s.Search.Country, f.Search.Country)
	setString(&s.Search.Language, f.Search.Language)
	setString(&s.Audit.Endpoint, f.Audit.Endpoint)
	setString(&s.Audit.Strategy, f.Audit.Strategy)
	setString(&s.Audit.Locale, f.Audit.Locale)
	if len(f.Audit.Categories) > 0 {
		s.Audit.Categories = f.Audit.Categories
	}
	setString(&s.LLM.Provider, f.LLM.Provider)
	setString(&s.LLM.Model, f.LLM.Model)
	if f.LLM.MaxTokens > 0 {
		s.LLM.MaxTokens = f.LLM.MaxTokens
	}
	if f.LLM.Temperature != nil {
		s.LLM.Temperature = *f.LLM.Temperature
	}
	if f.HTTP.TimeoutSecs > 0 {
		s.HTTP.TimeoutSecs = f.HTTP.TimeoutSecs
	}
	setString(&s.Store.Path, f.Store.Path)
	setString(&s.Log.Level, f.Log.Level)
	setString(&s.Log.Format, f.Log.Format)
	if f.Narrative != nil {
		s.Narrative = *f.Narrative
	}
	return nil
}

func applyEnv(s *Settings) error {
	s.Search.APIKey = os.Getenv("SCRAPINGDOG_API_KEY")
	setString(&s.Search.Endpoint, os.Getenv("SCRAPINGDOG_ENDPOINT"))
	setString(&s.Search.Country, os.Getenv("SERP_COUNTRY"))
	setString(&s.Search.Language, os.Getenv("SERP_LANGUAGE"))

	s.Audit.APIKey = os.Getenv("GOOGLE_API_KEY")
	setString(&s.Audit.Endpoint, os.Getenv("PAGESPEED_ENDPOINT"))
	setString(&s.Audit.Strategy, os.Getenv("AUDIT_STRATEGY"))
	setString(&s.Audit.Locale, os.Getenv("AUDIT_LOCALE"))
	if cats := splitList(os.Getenv("AUDIT_CATEGORIES")); len(cats) > 0 {
		s.Audit.Categories = cats
	}

	setString(&s.LLM.Provider, os.Getenv("LLM_PROVIDER"))
	s.LLM.Provider = NormalizeProvider(s.LLM.Provider)
	if info, ok := providers[s.LLM.Provider]; ok {
		setString(&s.LLM.Model, os.Getenv(info.modelEnv))
		if s.LLM.Model == "" {
			s.LLM.Model = info.defaultModel
		}
		s.LLM.APIKey = os.Getenv(info.apiKeyEnv)
	}

	maxTokens, err := getEnvUint32("LLM_MAX_TOKENS", s.LLM.MaxTokens)
	if err != nil {
		return err
	}
	s.LLM.MaxTokens = maxTokens

	temperature, err := getEnvFloat64("LLM_TEMPERATURE", s.LLM.Temperature)
	if err != nil {
		return err
	}
	s.LLM.Temperature = temperature

	timeout, err := getEnvUint64("HTTP_TIMEOUT_SECS", s.HTTP.TimeoutSecs)
	if err != nil {
		return err
	}
	s.HTTP.TimeoutSecs = timeout

	setString(&s.Store.Path, os.Getenv("SEOSCOUT_DB"))
	setString(&s.Log.Level, os.Getenv("LOG_LEVEL"))
	setString(&s.Log.Format, os.Getenv("LOG_FORMAT"))

	narrative, err := getEnvBool("SEOSCOUT_NARRATIVE", s.Narrative)
	if err != nil {
		return err
	}
	s.Narrative = narrative
	return nil
}

// UseProvider switches the text-generation provider, re-resolving its
// model and API key from the environment.
func (s *Settings) UseProvider(provider string) error {
	provider = NormalizeProvider(provider)
	info, err := getProviderInfo(provider)
	if err != nil {
		return &ConfigError{Key: "LLM_PROVIDER", Reason: err.Error()}
	}
	s.LLM.Provider = provider
	s.LLM.Model = os.Getenv(info.modelEnv)
	if s.LLM.Model == "" {
		s.LLM.Model = info.defaultModel
	}
	s.LLM.APIKey = os.Getenv(info.apiKeyEnv)
	return nil
}

// NormalizeProvider converts provider aliases to canonical names.
func NormalizeProvider(provider string) string {
	provider = strings.ToLower(provider)
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, fmt.Errorf("unknown provider: %q", provider)
	}
	return info, nil
}

// SupportedProviders returns the list of supported provider names.
func SupportedProviders() []string {
	result := make([]string, 0, len(providers))
	for name := range providers {
		result = append(result, name)
	}
	return result
}

// IsConfigError reports whether err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func setString(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}

func splitList(val string) []string {
	if strings.TrimSpace(val) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Environment variable helpers with proper error handling

func getEnvUint64(key string, defaultVal uint64) (uint64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, &ConfigError{Key: key, Reason: fmt.Sprintf("invalid value %q: %v", val, err)}
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, &ConfigError{Key: key, Reason: fmt.Sprintf("invalid value %q: %v", val, err)}
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, &ConfigError{Key: key, Reason: fmt.Sprintf("invalid value %q: %v", val, err)}
	}
	return f, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, &ConfigError{Key: key, Reason: fmt.Sprintf("invalid value %q: %v", val, err)}
	}
	return b, nil
}
