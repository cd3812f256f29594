// Package report turns a terminal pipeline Context into a structured
// summary and renders it as markdown.
//
// Information Hiding:
// - Finding derivation and issue ranking hidden behind Summarize
// - Markdown layout hidden behind Markdown
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/richinex/seoscout/pipeline"
	"github.com/richinex/seoscout/tools"
)

// Status marks how the run that produced a Report terminated.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
)

// MaxTopIssues caps Report.TopIssues.
const MaxTopIssues = 10

// Report is the structured summary of one run.
type Report struct {
	Target            string                   `json:"target"`
	Status            Status                   `json:"status"`
	FailedStage       string                   `json:"failedStage,omitempty"`
	Error             string                   `json:"error,omitempty"`
	Keywords          []string                 `json:"keywords"`
	Scores            map[string]float64       `json:"scores,omitempty"`
	TopIssues         []tools.Issue            `json:"topIssues"`
	RelatedQuestions  []tools.RelatedQuestion  `json:"relatedQuestions"`
	LoadingExperience *tools.LoadingExperience `json:"loadingExperience,omitempty"`
	Findings          []string                 `json:"findings"`
}

// Completed reports whether every stage ran.
func (r Report) Completed() bool {
	return r.Status == StatusCompleted
}

// Summarize builds a Report from c and the error Execute returned, if any.
// It performs no I/O and does not modify c.
func Summarize(c *pipeline.Context, runErr error) Report {
	r := Report{
		Target:           c.Target,
		Status:           StatusCompleted,
		Keywords:         c.Keywords.Sorted(),
		TopIssues:        topIssues(c.AuditIssues),
		RelatedQuestions: append([]tools.RelatedQuestion{}, c.RelatedQuestions...),
	}

	if runErr != nil {
		r.Status = StatusPartial
		r.Error = runErr.Error()
		if pe, ok := pipeline.AsPipelineError(runErr); ok {
			r.FailedStage = pe.StageName
			r.Error = pe.Err.Error()
		}
	}

	if c.Has(pipeline.FieldAuditScores) || len(c.AuditScores) > 0 {
		r.Scores = make(map[string]float64, len(c.AuditScores))
		for k, v := range c.AuditScores {
			r.Scores[k] = v
		}
	}
	if c.LoadingExperience != nil {
		le := *c.LoadingExperience
		r.LoadingExperience = &le
	}

	if c.Has(pipeline.FieldFindings) {
		r.Findings = append([]string{}, c.Findings...)
	} else {
		r.Findings = pipeline.DeriveFindings(c)
	}
	return r
}

// topIssues returns up to MaxTopIssues issues, worst first, without
// reordering the input.
func topIssues(issues []tools.Issue) []tools.Issue {
	out := append([]tools.Issue{}, issues...)
	tools.SortIssues(out)
	return out[:min(MaxTopIssues, len(out))]
}

// Markdown renders r as a markdown document.
func Markdown(r Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# SEO report: %s\n\n", r.Target)
	if r.Completed() {
		b.WriteString("**Status:** completed\n\n")
	} else {
		fmt.Fprintf(&b, "**Status:** partial (stopped at `%s`)\n\n", r.FailedStage)
		if r.Error != "" {
			fmt.Fprintf(&b, "> %s\n\n", firstLine(r.Error))
		}
	}

	b.WriteString("## Key findings\n\n")
	if len(r.Findings) == 0 {
		b.WriteString("_No findings._\n\n")
	}
	for _, f := range r.Findings {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	if len(r.Findings) > 0 {
		b.WriteString("\n")
	}

	if r.Scores != nil {
		b.WriteString("## Scores\n\n| Category | Score | Rating |\n|---|---|---|\n")
		for _, key := range scoreKeys(r.Scores) {
			score := r.Scores[key]
			fmt.Fprintf(&b, "| %s | %.0f | %s |\n", key, score*100, pipeline.ScoreLabel(score))
		}
		b.WriteString("\n")
	}

	if r.LoadingExperience != nil {
		le := r.LoadingExperience
		fmt.Fprintf(&b, "## Loading experience\n\n- First contentful paint: %s\n- First input delay: %s\n- Overall: %s\n\n",
			le.FirstContentfulPaint, le.FirstInputDelay, le.OverallCategory)
	}

	if len(r.TopIssues) > 0 {
		b.WriteString("## Top issues\n\n")
		for i, issue := range r.TopIssues {
			fmt.Fprintf(&b, "%d. **%s** (score %.2f", i+1, issue.Title, issue.Score)
			if issue.DisplayValue != "" {
				fmt.Fprintf(&b, ", %s", issue.DisplayValue)
			}
			b.WriteString(")\n")
		}
		b.WriteString("\n")
	}

	if len(r.Keywords) > 0 {
		fmt.Fprintf(&b, "## Keywords (%d)\n\n%s\n\n", len(r.Keywords), strings.Join(r.Keywords, ", "))
	}

	if len(r.RelatedQuestions) > 0 {
		b.WriteString("## People also ask\n\n")
		for _, q := range r.RelatedQuestions {
			fmt.Fprintf(&b, "- %s\n", q.Question)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// scoreKeys orders known keys first, then any others alphabetically.
func scoreKeys(scores map[string]float64) []string {
	keys := make([]string, 0, len(scores))
	known := map[string]bool{}
	for _, k := range tools.ScoreKeys {
		known[k] = true
		if _, ok := scores[k]; ok {
			keys = append(keys, k)
		}
	}
	var extra []string
	for k := range scores {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
