// Search-results fetcher backed by the Scrapingdog Google SERP API.

package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/richinex/seoscout/config"
)

// SearchFetcherName is the registry name of the search-results fetcher.
const SearchFetcherName = "serp_keywords"

// OrganicResult is one entry of the search results list.
type OrganicResult struct {
	Title         string `json:"title"`
	DisplayedLink string `json:"displayed_link"`
	Snippet       string `json:"snippet"`
	Link          string `json:"link"`
	Rank          int    `json:"rank"`
}

// RelatedQuestion is one "people also ask" entry.
type RelatedQuestion struct {
	Question string `json:"question"`
	ID       string `json:"id"`
	Rank     int    `json:"rank"`
	Answers  string `json:"answers"`
}

// MenuItem is a search vertical link (images, news, ...).
type MenuItem struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Position int    `json:"position"`
}

// SearchInformation echoes how the engine interpreted the query.
type SearchInformation struct {
	QueryDisplayed      string `json:"query_displayed"`
	OrganicResultsState string `json:"organic_results_state,omitempty"`
}

// Pagination carries the raw page links of the results page.
type Pagination struct {
	PageNo map[string]any `json:"page_no,omitempty"`
}

// SearchResult is the reshaped search-results payload.
type SearchResult struct {
	Query             string            `json:"query"`
	Keywords          []string          `json:"keywords"`
	Results           []OrganicResult   `json:"search_results"`
	RelatedQuestions  []RelatedQuestion `json:"related_questions"`
	MenuItems         []MenuItem        `json:"menu_items,omitempty"`
	SearchInformation SearchInformation `json:"search_information"`
	Pagination        Pagination        `json:"pagination"`
}

// Source returns the fetcher name.
func (*SearchResult) Source() string { return SearchFetcherName }

type serpResponse struct {
	SearchInformation SearchInformation `json:"search_information"`
	MenuItems         []MenuItem        `json:"menu_items"`
	OrganicResults    json.RawMessage   `json:"organic_results"`
	Pagination        Pagination        `json:"pagination"`
	PeopleAlsoAsk     []RelatedQuestion `json:"people_also_ask"`
}

// SearchFetcher gets keywords and search results for a site.
type SearchFetcher struct {
	cfg  config.SearchConfig
	http *HTTPClient
}

// NewSearchFetcher creates a search fetcher. Empty Country and Language
// in cfg fall back to "us" and "en".
func NewSearchFetcher(cfg config.SearchConfig, client *HTTPClient) *SearchFetcher {
	if cfg.Endpoint == "" {
		cfg.Endpoint = config.DefaultSearchEndpoint
	}
	if cfg.Country == "" {
		cfg.Country = "us"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	return &SearchFetcher{cfg: cfg, http: client}
}

// Metadata returns the fetcher metadata.
func (f *SearchFetcher) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        SearchFetcherName,
		Description: "Get keywords and search results from the Google SERP API",
		Parameters: []ToolParameter{
			{Name: "url", ParamType: "string", Description: "The URL to analyze", Required: true},
			{Name: "query", ParamType: "string", Description: "A specific query to search for", Default: "site:<url>"},
			{Name: "country", ParamType: "string", Description: "The country to search in", Default: f.cfg.Country},
			{Name: "language", ParamType: "string", Description: "The language to search in", Default: f.cfg.Language},
		},
	}
}

// SearchQuery returns the query sent for params: the explicit query when
// given, otherwise site:<url>.
func SearchQuery(params QueryParams) string {
	if params.Query != "" {
		return params.Query
	}
	return "site:" + params.URL
}

// Fetch runs one search and extracts keyword candidates from the results.
func (f *SearchFetcher) Fetch(ctx context.Context, params QueryParams) (FetchResult, error) {
	if err := ValidateParams(params); err != nil {
		return nil, err
	}

	country := params.Country
	if country == "" {
		country = f.cfg.Country
	}
	language := params.Language
	if language == "" {
		language = f.cfg.Language
	}
	query := SearchQuery(params)

	values := url.Values{}
	values.Set("api_key", f.cfg.APIKey)
	values.Set("query", query)
	values.Set("country", country)
	values.Set("language", language)

	body, err := f.http.Get(ctx, f.cfg.Endpoint, values)
	if err != nil {
		return nil, err
	}

	result, err := ParseSearchResponse(body)
	if err != nil {
		var se *SchemaError
		if errors.As(err, &se) {
			se.Endpoint = f.cfg.Endpoint
		}
		return nil, err
	}
	result.Query = query
	return result, nil
}

// ParseSearchResponse decodes a raw search payload and derives the keyword
// set. A body without an organic_results list is a *SchemaError.
func ParseSearchResponse(body []byte) (*SearchResult, error) {
	var raw serpResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &SchemaError{Body: string(body), Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	trimmed := bytes.TrimSpace(raw.OrganicResults)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || trimmed[0] != '[' {
		return nil, &SchemaError{Field: "organic_results", Body: string(body)}
	}

	var results []OrganicResult
	if err := json.Unmarshal(trimmed, &results); err != nil {
		return nil, &SchemaError{Field: "organic_results", Body: string(body), Err: err}
	}

	related := raw.PeopleAlsoAsk
	if related == nil {
		related = []RelatedQuestion{}
	}

	return &SearchResult{
		Keywords:          ExtractKeywords(results),
		Results:           results,
		RelatedQuestions:  related,
		MenuItems:         raw.MenuItems,
		SearchInformation: raw.SearchInformation,
		Pagination:        raw.Pagination,
	}, nil
}

// Verify SearchFetcher implements Fetcher
var _ Fetcher = (*SearchFetcher)(nil)
