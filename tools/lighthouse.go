// Audit fetcher backed by the Google PageSpeed Insights (Lighthouse) API.

package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"

	"github.com/richinex/seoscout/config"
)

// AuditFetcherName is the registry name of the audit fetcher.
const AuditFetcherName = "lighthouse"

// Score keys of AuditResult.Scores.
const (
	ScorePerformance   = "performance"
	ScoreAccessibility = "accessibility"
	ScoreBestPractices = "bestPractices"
	ScoreSEO           = "seo"
	ScorePWA           = "pwa"
)

// ScoreKeys lists every score key in report order.
var ScoreKeys = []string{ScorePerformance, ScoreAccessibility, ScoreBestPractices, ScoreSEO, ScorePWA}

// categoryScoreKeys maps Lighthouse category ids to score keys.
var categoryScoreKeys = map[string]string{
	"performance":    ScorePerformance,
	"accessibility":  ScoreAccessibility,
	"best-practices": ScoreBestPractices,
	"seo":            ScoreSEO,
	"pwa":            ScorePWA,
}

// DefaultCategories are requested when the caller names none.
var DefaultCategories = []string{"performance", "accessibility", "seo"}

// notAvailable is reported for loading-experience fields the API omits.
const notAvailable = "N/A"

// Issue is a failing or partially passing audit check.
type Issue struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Score        float64 `json:"score"`
	DisplayValue string  `json:"displayValue,omitempty"`
}

// LoadingExperience summarizes field data for the page.
type LoadingExperience struct {
	FirstContentfulPaint string `json:"firstContentfulPaint"`
	FirstInputDelay      string `json:"firstInputDelay"`
	OverallCategory      string `json:"overallCategory"`
}

// AuditResult is the reshaped audit payload.
type AuditResult struct {
	URL               string             `json:"url"`
	LoadingExperience LoadingExperience  `json:"loadingExperience"`
	Scores            map[string]float64 `json:"scores"`
	Issues            []Issue            `json:"audits"`
}

// Source returns the fetcher name.
func (*AuditResult) Source() string { return AuditFetcherName }

type metricCategory struct {
	Category string `json:"category"`
}

type lighthouseResponse struct {
	ID                string `json:"id"`
	LoadingExperience *struct {
		Metrics struct {
			FirstContentfulPaint *metricCategory `json:"FIRST_CONTENTFUL_PAINT_MS"`
			FirstInputDelay      *metricCategory `json:"FIRST_INPUT_DELAY_MS"`
		} `json:"metrics"`
		OverallCategory string `json:"overall_category"`
	} `json:"loadingExperience"`
	LighthouseResult *struct {
		Categories map[string]*struct {
			Score *float64 `json:"score"`
		} `json:"categories"`
		Audits json.RawMessage `json:"audits"`
	} `json:"lighthouseResult"`
}

type rawAudit struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Score        *float64 `json:"score"`
	DisplayValue string   `json:"displayValue"`
}

// AuditFetcher runs a Lighthouse audit through PageSpeed Insights.
type AuditFetcher struct {
	cfg  config.AuditConfig
	http *HTTPClient
}

// NewAuditFetcher creates an audit fetcher. Empty fields of cfg fall back
// to strategy "mobile", the default categories and locale "en".
func NewAuditFetcher(cfg config.AuditConfig, client *HTTPClient) *AuditFetcher {
	if cfg.Endpoint == "" {
		cfg.Endpoint = config.DefaultAuditEndpoint
	}
	if cfg.Strategy == "" {
		cfg.Strategy = "mobile"
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = DefaultCategories
	}
	if cfg.Locale == "" {
		cfg.Locale = "en"
	}
	return &AuditFetcher{cfg: cfg, http: client}
}

// Metadata returns the fetcher metadata.
func (f *AuditFetcher) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        AuditFetcherName,
		Description: "Run a Lighthouse audit using the Google PageSpeed Insights API",
		Parameters: []ToolParameter{
			{Name: "url", ParamType: "string", Description: "The URL to audit", Required: true},
			{Name: "strategy", ParamType: "string", Description: "mobile or desktop", Default: f.cfg.Strategy},
			{Name: "categories", ParamType: "array", Description: "Lighthouse categories to run", Default: fmt.Sprint(f.cfg.Categories)},
			{Name: "locale", ParamType: "string", Description: "Locale for result strings", Default: f.cfg.Locale},
		},
	}
}

// Fetch runs one audit and reshapes the scores and failing checks.
func (f *AuditFetcher) Fetch(ctx context.Context, params QueryParams) (FetchResult, error) {
	if err := ValidateParams(params); err != nil {
		return nil, err
	}

	strategy := params.Strategy
	if strategy == "" {
		strategy = f.cfg.Strategy
	}
	categories := params.Categories
	if len(categories) == 0 {
		categories = f.cfg.Categories
	}
	locale := params.Locale
	if locale == "" {
		locale = f.cfg.Locale
	}

	values := url.Values{}
	values.Set("url", params.URL)
	values.Set("key", f.cfg.APIKey)
	values.Set("strategy", strategy)
	for _, category := range categories {
		values.Add("category", category)
	}
	values.Set("locale", locale)

	body, err := f.http.Get(ctx, f.cfg.Endpoint, values)
	if err != nil {
		return nil, err
	}

	result, err := ParseAuditResponse(body)
	if err != nil {
		var se *SchemaError
		if errors.As(err, &se) {
			se.Endpoint = f.cfg.Endpoint
		}
		return nil, err
	}
	return result, nil
}

// ParseAuditResponse decodes a raw PageSpeed payload. Missing categories
// score 0; audits with a null score or a score of 1 are dropped and the
// rest are ordered worst first, keeping payload order on ties.
// A body without a lighthouseResult object is a *SchemaError.
func ParseAuditResponse(body []byte) (*AuditResult, error) {
	var raw lighthouseResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &SchemaError{Body: string(body), Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	if raw.LighthouseResult == nil {
		return nil, &SchemaError{Field: "lighthouseResult", Body: string(body)}
	}

	result := &AuditResult{
		URL: raw.ID,
		LoadingExperience: LoadingExperience{
			FirstContentfulPaint: notAvailable,
			FirstInputDelay:      notAvailable,
			OverallCategory:      notAvailable,
		},
		Scores: make(map[string]float64, len(ScoreKeys)),
		Issues: []Issue{},
	}

	if le := raw.LoadingExperience; le != nil {
		if m := le.Metrics.FirstContentfulPaint; m != nil && m.Category != "" {
			result.LoadingExperience.FirstContentfulPaint = m.Category
		}
		if m := le.Metrics.FirstInputDelay; m != nil && m.Category != "" {
			result.LoadingExperience.FirstInputDelay = m.Category
		}
		if le.OverallCategory != "" {
			result.LoadingExperience.OverallCategory = le.OverallCategory
		}
	}

	for _, key := range ScoreKeys {
		result.Scores[key] = 0
	}
	for category, c := range raw.LighthouseResult.Categories {
		key, known := categoryScoreKeys[category]
		if !known || c == nil || c.Score == nil {
			continue
		}
		result.Scores[key] = *c.Score
	}

	issues, err := decodeIssues(raw.LighthouseResult.Audits)
	if err != nil {
		return nil, &SchemaError{Field: "lighthouseResult.audits", Body: string(body), Err: err}
	}
	result.Issues = issues
	return result, nil
}

// decodeIssues walks the audits object in payload order, which a Go map
// would lose, keeping only checks that are scored and not yet passing.
func decodeIssues(raw json.RawMessage) ([]Issue, error) {
	issues := []Issue{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return issues, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		id, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected audit id, got %v", tok)
		}

		var a rawAudit
		if err := dec.Decode(&a); err != nil {
			return nil, fmt.Errorf("audit %q: %w", id, err)
		}
		if a.Score == nil || *a.Score >= 1 {
			continue
		}
		issues = append(issues, Issue{
			ID:           id,
			Title:        a.Title,
			Description:  a.Description,
			Score:        *a.Score,
			DisplayValue: a.DisplayValue,
		})
	}

	SortIssues(issues)
	return issues, nil
}

// SortIssues orders issues ascending by score, stable on ties.
func SortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Score < issues[j].Score
	})
}

// Verify AuditFetcher implements Fetcher
var _ Fetcher = (*AuditFetcher)(nil)
