package tools

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/richinex/seoscout/config"
)

const auditPayload = `{
	"id": "https://example.com/",
	"loadingExperience": {
		"metrics": {
			"FIRST_CONTENTFUL_PAINT_MS": {"percentile": 1800, "category": "FAST"}
		},
		"overall_category": "AVERAGE"
	},
	"lighthouseResult": {
		"categories": {
			"performance": {"score": 0.42},
			"seo": {"score": 1.0}
		},
		"audits": {
			"zeta-check": {"title": "Zeta", "description": "z", "score": 0.5},
			"render-blocking": {"title": "Render blocking", "description": "r", "score": 0.1, "displayValue": "1.2 s"},
			"passing": {"title": "Passing", "description": "p", "score": 1},
			"informative": {"title": "Info", "description": "i", "score": null},
			"alpha-check": {"title": "Alpha", "description": "a", "score": 0.5},
			"unsized-images": {"title": "Unsized", "description": "u", "score": 0}
		}
	}
}`

func TestAuditFetcherQueryParameters(t *testing.T) {
	var seen url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.Query()
		w.Write([]byte(auditPayload))
	}))
	defer srv.Close()

	f := NewAuditFetcher(config.AuditConfig{APIKey: "google-key", Endpoint: srv.URL}, NewHTTPClient(5))
	if _, err := f.Fetch(context.Background(), QueryParams{URL: "https://example.com"}); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if seen.Get("url") != "https://example.com" || seen.Get("key") != "google-key" {
		t.Errorf("unexpected url/key params: %v", seen)
	}
	if seen.Get("strategy") != "mobile" || seen.Get("locale") != "en" {
		t.Errorf("expected default strategy and locale, got %v", seen)
	}
	if diff := cmp.Diff([]string{"performance", "accessibility", "seo"}, seen["category"]); diff != "" {
		t.Errorf("category params mismatch (-want +got):\n%s", diff)
	}
}

func TestAuditFetcherOverrides(t *testing.T) {
	var seen url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.Query()
		w.Write([]byte(auditPayload))
	}))
	defer srv.Close()

	f := NewAuditFetcher(config.AuditConfig{APIKey: "k", Endpoint: srv.URL}, NewHTTPClient(5))
	params := QueryParams{URL: "https://example.com", Strategy: "desktop", Categories: []string{"best-practices", "pwa"}, Locale: "de"}
	if _, err := f.Fetch(context.Background(), params); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if seen.Get("strategy") != "desktop" || seen.Get("locale") != "de" {
		t.Errorf("overrides not applied: %v", seen)
	}
	if diff := cmp.Diff([]string{"best-practices", "pwa"}, seen["category"]); diff != "" {
		t.Errorf("category params mismatch (-want +got):\n%s", diff)
	}
}

func TestAuditFetcherRejectsUnknownStrategy(t *testing.T) {
	f := NewAuditFetcher(config.AuditConfig{APIKey: "k", Endpoint: "http://127.0.0.1:1"}, NewHTTPClient(1))

	_, err := f.Fetch(context.Background(), QueryParams{URL: "https://example.com", Strategy: "tablet"})
	if !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery for strategy, got %v", err)
	}

	_, err = f.Fetch(context.Background(), QueryParams{URL: "https://example.com", Categories: []string{"speed"}})
	if !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery for category, got %v", err)
	}
}

func TestAuditFetcherServerErrorIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewAuditFetcher(config.AuditConfig{APIKey: "k", Endpoint: srv.URL}, NewHTTPClient(5))
	_, err := f.Fetch(context.Background(), QueryParams{URL: "https://example.com"})

	var te *TransportError
	if !errors.As(err, &te) || te.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected TransportError with status 500, got %v", err)
	}
}

func TestParseAuditResponseScores(t *testing.T) {
	res, err := ParseAuditResponse([]byte(auditPayload))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	want := map[string]float64{
		ScorePerformance:   0.42,
		ScoreAccessibility: 0,
		ScoreBestPractices: 0,
		ScoreSEO:           1.0,
		ScorePWA:           0,
	}
	if diff := cmp.Diff(want, res.Scores); diff != "" {
		t.Errorf("scores mismatch (-want +got):\n%s", diff)
	}
	if res.URL != "https://example.com/" {
		t.Errorf("expected audited URL from id, got %q", res.URL)
	}
	wantLE := LoadingExperience{FirstContentfulPaint: "FAST", FirstInputDelay: "N/A", OverallCategory: "AVERAGE"}
	if diff := cmp.Diff(wantLE, res.LoadingExperience); diff != "" {
		t.Errorf("loading experience mismatch (-want +got):\n%s", diff)
	}
}

func TestParseAuditResponseIssuesSortedStable(t *testing.T) {
	res, err := ParseAuditResponse([]byte(auditPayload))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	var ids []string
	for _, issue := range res.Issues {
		ids = append(ids, issue.ID)
	}
	// zeta-check precedes alpha-check in the payload; the tie keeps that order.
	want := []string{"unsized-images", "render-blocking", "zeta-check", "alpha-check"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("issue order mismatch (-want +got):\n%s", diff)
	}

	for i := 1; i < len(res.Issues); i++ {
		if res.Issues[i].Score < res.Issues[i-1].Score {
			t.Errorf("issues not non-decreasing at %d: %v", i, res.Issues)
		}
	}
	if res.Issues[1].DisplayValue != "1.2 s" {
		t.Errorf("displayValue not carried: %+v", res.Issues[1])
	}
}

func TestParseAuditResponseMissingLighthouseResult(t *testing.T) {
	body := `{"id": "https://example.com/", "loadingExperience": {}}`
	_, err := ParseAuditResponse([]byte(body))

	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if se.Field != "lighthouseResult" || se.Body != body {
		t.Errorf("unexpected schema error: %+v", se)
	}
}

func TestParseAuditResponseNoAudits(t *testing.T) {
	res, err := ParseAuditResponse([]byte(`{"lighthouseResult": {"categories": {}}}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if res.Issues == nil || len(res.Issues) != 0 {
		t.Errorf("expected empty issue list, got %#v", res.Issues)
	}
	if res.LoadingExperience.OverallCategory != "N/A" {
		t.Errorf("expected N/A overall category, got %q", res.LoadingExperience.OverallCategory)
	}
}

func TestParseAuditResponseMalformedAudits(t *testing.T) {
	_, err := ParseAuditResponse([]byte(`{"lighthouseResult": {"audits": [1, 2]}}`))
	if !IsSchemaError(err) {
		t.Errorf("expected SchemaError for non-object audits, got %v", err)
	}
}
