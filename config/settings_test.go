package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// clearEnv blanks every variable Load reads so tests don't see the host environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SCRAPINGDOG_API_KEY", "SCRAPINGDOG_ENDPOINT", "SERP_COUNTRY", "SERP_LANGUAGE",
		"GOOGLE_API_KEY", "PAGESPEED_ENDPOINT", "AUDIT_STRATEGY", "AUDIT_CATEGORIES", "AUDIT_LOCALE",
		"LLM_PROVIDER", "LLM_MAX_TOKENS", "LLM_TEMPERATURE", "HTTP_TIMEOUT_SECS",
		"SEOSCOUT_DB", "LOG_LEVEL", "LOG_FORMAT", "SEOSCOUT_NARRATIVE",
		"OPENAI_API_KEY", "OPENAI_MODEL", "ANTHROPIC_API_KEY", "ANTHROPIC_MODEL",
		"DEEPSEEK_API_KEY", "DEEPSEEK_MODEL", "GEMINI_API_KEY", "GEMINI_MODEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	settings, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if settings.Search.Country != "us" || settings.Search.Language != "en" {
		t.Errorf("unexpected search defaults: %+v", settings.Search)
	}
	if settings.Audit.Strategy != "mobile" || settings.Audit.Locale != "en" {
		t.Errorf("unexpected audit defaults: %+v", settings.Audit)
	}
	want := []string{"performance", "accessibility", "seo"}
	if diff := cmp.Diff(want, settings.Audit.Categories); diff != "" {
		t.Errorf("default categories mismatch (-want +got):\n%s", diff)
	}
	if settings.LLM.Provider != "openai" || settings.LLM.Model != "gpt-4.1-mini" {
		t.Errorf("unexpected LLM defaults: %+v", settings.LLM)
	}
	if settings.HTTP.TimeoutSecs != 30 {
		t.Errorf("expected 30s timeout, got %d", settings.HTTP.TimeoutSecs)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCRAPINGDOG_API_KEY", "serp-key")
	t.Setenv("GOOGLE_API_KEY", "google-key")
	t.Setenv("SERP_COUNTRY", "de")
	t.Setenv("AUDIT_CATEGORIES", "performance, seo ,pwa")
	t.Setenv("LLM_PROVIDER", "claude")
	t.Setenv("ANTHROPIC_API_KEY", "ant-key")

	settings, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if settings.Search.APIKey != "serp-key" || settings.Audit.APIKey != "google-key" {
		t.Errorf("credentials not loaded: %+v %+v", settings.Search, settings.Audit)
	}
	if settings.Search.Country != "de" {
		t.Errorf("expected country 'de', got %q", settings.Search.Country)
	}
	if diff := cmp.Diff([]string{"performance", "seo", "pwa"}, settings.Audit.Categories); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
	if settings.LLM.Provider != "anthropic" {
		t.Errorf("expected provider 'anthropic' (normalized from 'claude'), got %q", settings.LLM.Provider)
	}
	if settings.LLM.APIKey != "ant-key" {
		t.Errorf("expected anthropic key, got %q", settings.LLM.APIKey)
	}
	if err := settings.Validate(); err != nil {
		t.Errorf("expected valid settings, got %v", err)
	}
}

func TestValidateMissingCredentials(t *testing.T) {
	clearEnv(t)

	settings, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = settings.Validate()
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if ce.Key != "SCRAPINGDOG_API_KEY" {
		t.Errorf("expected first missing key SCRAPINGDOG_API_KEY, got %q", ce.Key)
	}

	settings.Search.APIKey = "x"
	settings.Audit.APIKey = "y"
	err = settings.Validate()
	if !errors.As(err, &ce) || ce.Key != "OPENAI_API_KEY" {
		t.Errorf("expected missing OPENAI_API_KEY, got %v", err)
	}

	settings.Narrative = false
	if err := settings.Validate(); err != nil {
		t.Errorf("LLM key should not be required without narrative: %v", err)
	}
}

func TestValidateRejectsUnknownStrategy(t *testing.T) {
	settings := Defaults()
	settings.Search.APIKey = "x"
	settings.Audit.APIKey = "y"
	settings.Narrative = false
	settings.Audit.Strategy = "tablet"

	if !IsConfigError(settings.Validate()) {
		t.Error("expected ConfigError for unknown strategy")
	}
}

func TestLoadWithInvalidEnvVar(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_MAX_TOKENS", "not-a-number")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error for invalid LLM_MAX_TOKENS")
	}
	if !IsConfigError(err) {
		t.Errorf("expected ConfigError, got %T", err)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUDIT_LOCALE", "fr")

	path := filepath.Join(t.TempDir(), "seoscout.yaml")
	data := []byte(`
search:
  country: gb
audit:
  strategy: desktop
  locale: de
  categories: [seo]
llm:
  provider: gemini
http:
  timeout_secs: 5
narrative: false
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	settings, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if settings.Search.Country != "gb" {
		t.Errorf("expected country from file, got %q", settings.Search.Country)
	}
	if settings.Audit.Strategy != "desktop" {
		t.Errorf("expected strategy from file, got %q", settings.Audit.Strategy)
	}
	if settings.Audit.Locale != "fr" {
		t.Errorf("environment should override file, got locale %q", settings.Audit.Locale)
	}
	if settings.LLM.Provider != "gemini" || settings.LLM.Model != "gemini-2.5-flash" {
		t.Errorf("unexpected LLM settings: %+v", settings.LLM)
	}
	if settings.HTTP.TimeoutSecs != 5 {
		t.Errorf("expected timeout 5, got %d", settings.HTTP.TimeoutSecs)
	}
	if settings.Narrative {
		t.Error("expected narrative disabled by file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("search: [unclosed"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); !IsConfigError(err) {
		t.Errorf("expected ConfigError for invalid YAML, got %v", err)
	}
}

func TestUseProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEEPSEEK_API_KEY", "ds-key")

	settings := Defaults()
	if err := settings.UseProvider("deepseek"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.APIKey != "ds-key" || settings.LLM.Model != "deepseek-chat" {
		t.Errorf("unexpected LLM settings: %+v", settings.LLM)
	}

	if err := settings.UseProvider("unknown_provider"); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestSupportedProviders(t *testing.T) {
	if got := len(SupportedProviders()); got != 4 {
		t.Errorf("expected 4 providers, got %d", got)
	}
}
