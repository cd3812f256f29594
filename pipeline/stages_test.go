package pipeline

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/richinex/seoscout/config"
	"github.com/richinex/seoscout/tools"
)

func TestStandardStagesOrder(t *testing.T) {
	registry, err := tools.WithDefaults(config.Defaults(), nil)
	if err != nil {
		t.Fatalf("registry failed: %v", err)
	}

	stages, err := StandardStages(registry)
	if err != nil {
		t.Fatalf("StandardStages failed: %v", err)
	}

	var names []string
	for _, s := range stages {
		names = append(names, s.Name)
	}
	if diff := cmp.Diff([]string{StageKeywordResearch, StageTechnicalAudit, StageSummary}, names); diff != "" {
		t.Errorf("stage names mismatch (-want +got):\n%s", diff)
	}
	if stages[0].Merge.Mode(FieldKeywords) != Union {
		t.Error("keyword research should union keywords")
	}
	if stages[2].Fetcher != nil {
		t.Error("summary stage must not perform I/O")
	}
}

func TestStandardStagesMissingFetcher(t *testing.T) {
	if _, err := StandardStages(tools.NewRegistry()); err == nil {
		t.Error("expected error when fetchers are not registered")
	}
}

func TestAuditStageIgnoresQueryOverride(t *testing.T) {
	registry, _ := tools.WithDefaults(config.Defaults(), nil)
	stages, _ := StandardStages(registry)

	params := stages[1].Params(NewContext("https://example.com").WithQuery("bread"))
	if diff := cmp.Diff(tools.QueryParams{URL: "https://example.com"}, params); diff != "" {
		t.Errorf("audit params mismatch (-want +got):\n%s", diff)
	}
}

func TestScoreLabel(t *testing.T) {
	cases := map[float64]string{
		0:    LabelPoor,
		0.49: LabelPoor,
		0.5:  LabelNeedsImprovement,
		0.89: LabelNeedsImprovement,
		0.9:  LabelGood,
		1:    LabelGood,
	}
	for score, want := range cases {
		if got := ScoreLabel(score); got != want {
			t.Errorf("ScoreLabel(%v) = %q, want %q", score, got, want)
		}
	}
}

func TestDeriveFindings(t *testing.T) {
	c := NewContext("example.com")
	c.merge(Fragment{
		Keywords:    []string{"bakery", "shop"},
		AuditScores: map[string]float64{"performance": 0.42, "seo": 0.95},
		AuditIssues: []tools.Issue{
			{ID: "a", Title: "Unsized images", Score: 0},
			{ID: "b", Title: "Render blocking", Score: 0.1, DisplayValue: "1.2 s"},
		},
		Fields: []Field{FieldKeywords, FieldAuditScores, FieldAuditIssues},
	}, nil)

	want := []string{
		"Found 2 distinct keywords (e.g. bakery, shop)",
		"performance score 42/100 (poor)",
		"seo score 95/100 (good)",
		"Issue: Unsized images (score 0.00)",
		"Issue: Render blocking (score 0.10, 1.2 s)",
	}
	if diff := cmp.Diff(want, DeriveFindings(c)); diff != "" {
		t.Errorf("findings mismatch (-want +got):\n%s", diff)
	}
}

func TestDeriveFindingsEmptyContext(t *testing.T) {
	if got := DeriveFindings(NewContext("example.com")); len(got) != 0 {
		t.Errorf("expected no findings, got %v", got)
	}

	c := NewContext("example.com")
	c.merge(Fragment{Fields: []Field{FieldKeywords}}, nil)
	if diff := cmp.Diff([]string{"No keywords found in search results"}, DeriveFindings(c)); diff != "" {
		t.Errorf("findings mismatch (-want +got):\n%s", diff)
	}
}

func TestSummaryStageWritesFindings(t *testing.T) {
	c := NewContext("example.com")
	c.merge(Fragment{AuditScores: map[string]float64{"performance": 0.3}, Fields: []Field{FieldAuditScores}}, nil)

	if err := NewExecutor().Run(context.Background(), SummaryStage(), c); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !c.Has(FieldFindings) || len(c.Findings) != 1 {
		t.Errorf("expected one finding, got %v", c.Findings)
	}
}
