// Package tools provides the external data fetchers used by pipeline stages.
//
// Information Hiding:
// - HTTP request construction and credentials hidden behind Fetcher
// - Response decoding and reshaping internalized per fetcher
// - Registry implementation details hidden from consumers
package tools

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ToolParameter defines a parameter schema for a fetcher.
type ToolParameter struct {
	Name        string `json:"name"`
	ParamType   string `json:"param_type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Default     string `json:"default,omitempty"`
}

// ToolMetadata describes what a fetcher does and how to use it.
type ToolMetadata struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
}

// String returns a string representation of the tool metadata.
func (m ToolMetadata) String() string {
	return fmt.Sprintf("%s: %s", m.Name, m.Description)
}

// QueryParams holds every option a fetcher may recognize. Each fetcher
// reads only its own options and applies its documented defaults to the
// ones left empty.
type QueryParams struct {
	URL        string   `json:"url" validate:"required"`
	Query      string   `json:"query,omitempty"`
	Country    string   `json:"country,omitempty"`
	Language   string   `json:"language,omitempty"`
	Strategy   string   `json:"strategy,omitempty" validate:"omitempty,oneof=mobile desktop"`
	Categories []string `json:"categories,omitempty" validate:"omitempty,dive,oneof=performance accessibility best-practices seo pwa"`
	Locale     string   `json:"locale,omitempty"`
}

// FetchResult is the reshaped payload of one external read.
// Concrete types are *SearchResult and *AuditResult.
type FetchResult interface {
	// Source returns the name of the fetcher that produced the result.
	Source() string
}

// Fetcher performs exactly one external read per call and reshapes the
// response. Implementations never retry and never cache.
type Fetcher interface {
	// Metadata returns fetcher metadata (name, description, parameters).
	Metadata() ToolMetadata

	// Fetch issues one outbound request. Failures are *TransportError,
	// *SchemaError, or wrap ErrInvalidQuery.
	Fetch(ctx context.Context, params QueryParams) (FetchResult, error)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateParams rejects parameters that no fetcher could send.
func ValidateParams(params QueryParams) error {
	if err := validate.Struct(params); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return nil
}
