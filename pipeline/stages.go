package pipeline

import (
	"fmt"
	"math"
	"strings"

	"github.com/richinex/seoscout/tools"
)

// Standard stage names, in execution order.
const (
	StageKeywordResearch = "keyword_research"
	StageTechnicalAudit  = "technical_audit"
	StageSummary         = "summary"
)

// Score labels.
const (
	LabelPoor             = "poor"
	LabelNeedsImprovement = "needs improvement"
	LabelGood             = "good"
)

const (
	sampleKeywords = 5
	findingIssues  = 3
)

// StandardStages returns keyword_research, technical_audit and summary,
// wired to the search and audit fetchers in registry.
func StandardStages(registry *tools.Registry) ([]Stage, error) {
	search, err := registry.Lookup(tools.SearchFetcherName)
	if err != nil {
		return nil, err
	}
	audit, err := registry.Lookup(tools.AuditFetcherName)
	if err != nil {
		return nil, err
	}

	return []Stage{
		{
			Name:    StageKeywordResearch,
			Fetcher: search,
			Merge:   MergeStrategy{FieldKeywords: Union},
		},
		{
			Name:    StageTechnicalAudit,
			Fetcher: audit,
			Params: func(c *Context) tools.QueryParams {
				return tools.QueryParams{URL: c.Target}
			},
		},
		SummaryStage(),
	}, nil
}

// SummaryStage derives findings from the fields earlier stages wrote.
// It performs no I/O.
func SummaryStage() Stage {
	return Stage{
		Name: StageSummary,
		Derive: func(c *Context) (Fragment, error) {
			return Fragment{Findings: DeriveFindings(c), Fields: []Field{FieldFindings}}, nil
		},
	}
}

// ScoreLabel grades a score in [0,1].
func ScoreLabel(score float64) string {
	switch {
	case score < 0.5:
		return LabelPoor
	case score < 0.9:
		return LabelNeedsImprovement
	default:
		return LabelGood
	}
}

// DeriveFindings lists key findings from keywords, audit scores and audit
// issues. Fields no stage wrote contribute nothing.
func DeriveFindings(c *Context) []string {
	findings := []string{}

	if c.Has(FieldKeywords) || len(c.Keywords) > 0 {
		if len(c.Keywords) == 0 {
			findings = append(findings, "No keywords found in search results")
		} else {
			sorted := c.Keywords.Sorted()
			sample := sorted[:min(sampleKeywords, len(sorted))]
			findings = append(findings, fmt.Sprintf("Found %d distinct keywords (e.g. %s)",
				len(sorted), strings.Join(sample, ", ")))
		}
	}

	for _, key := range tools.ScoreKeys {
		score, ok := c.AuditScores[key]
		if !ok {
			continue
		}
		findings = append(findings, fmt.Sprintf("%s score %d/100 (%s)",
			key, int(math.Round(score*100)), ScoreLabel(score)))
	}

	for _, issue := range c.AuditIssues[:min(findingIssues, len(c.AuditIssues))] {
		line := fmt.Sprintf("Issue: %s (score %.2f)", issue.Title, issue.Score)
		if issue.DisplayValue != "" {
			line = fmt.Sprintf("Issue: %s (score %.2f, %s)", issue.Title, issue.Score, issue.DisplayValue)
		}
		findings = append(findings, line)
	}

	return findings
}
