// Analysis service shared by the CLI commands and the HTTP API.
//
// Information Hiding:
// - Pipeline, report, narrative, and history wiring hidden
// - Batch concurrency hidden
// - Run record encoding hidden

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/richinex/seoscout/config"
	"github.com/richinex/seoscout/llm"
	"github.com/richinex/seoscout/logging"
	"github.com/richinex/seoscout/pipeline"
	"github.com/richinex/seoscout/report"
	"github.com/richinex/seoscout/storage"
	"github.com/richinex/seoscout/tools"
)

// Outcome is the result of analyzing one target.
type Outcome struct {
	Run       storage.Run
	Report    report.Report
	Narrative string
	// Err is the pipeline failure, nil when every stage completed.
	Err error
	// NarrativeErr is set when the narrative writer failed. It never
	// changes Report.Status.
	NarrativeErr error
}

// Analyzer runs the standard pipeline for a target, summarizes the final
// Context, and records the run.
type Analyzer struct {
	pipeline *pipeline.Pipeline
	store    storage.RunStore
	writer   *report.Writer
	logger   *slog.Logger
	now      func() time.Time
}

// NewAnalyzer creates an analyzer. store and writer may be nil.
func NewAnalyzer(p *pipeline.Pipeline, store storage.RunStore, writer *report.Writer) *Analyzer {
	return &Analyzer{
		pipeline: p,
		store:    store,
		writer:   writer,
		logger:   logging.New("analyzer"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// BuildAnalyzer wires the standard pipeline, the narrative writer (when
// enabled) and store from settings.
func BuildAnalyzer(settings config.Settings, store storage.RunStore) (*Analyzer, error) {
	registry, err := tools.WithDefaults(settings, tools.NewHTTPClient(settings.HTTP.TimeoutSecs))
	if err != nil {
		return nil, err
	}
	stages, err := pipeline.StandardStages(registry)
	if err != nil {
		return nil, err
	}
	p, err := pipeline.New(stages)
	if err != nil {
		return nil, err
	}

	var writer *report.Writer
	if settings.Narrative {
		provider, err := llm.FromConfig(settings.LLM)
		if err != nil {
			return nil, fmt.Errorf("narrative provider: %w", err)
		}
		writer = report.NewWriter(provider)
	}

	return NewAnalyzer(p, store, writer), nil
}

// Analyze runs the pipeline for target. Pipeline failures are reported in
// Outcome.Err; the returned error is reserved for failures to record the run.
func (a *Analyzer) Analyze(ctx context.Context, target, query string) (Outcome, error) {
	started := a.now()
	c, runErr := a.pipeline.Execute(ctx, pipeline.NewContext(target).WithQuery(query))
	rep := report.Summarize(c, runErr)

	out := Outcome{Report: rep, Err: runErr}

	if a.writer != nil {
		narrative, err := a.writer.Write(ctx, rep)
		if err != nil {
			a.logger.Warn("narrative failed", slog.String("target", target), slog.Any("error", err))
			out.NarrativeErr = err
		}
		out.Narrative = narrative
	}

	run, err := newRun(target, query, c, rep, out.Narrative, started, a.now())
	if err != nil {
		return out, err
	}
	out.Run = run

	if a.store != nil {
		if err := a.store.Save(ctx, run); err != nil {
			return out, fmt.Errorf("record run: %w", err)
		}
	}

	a.logger.Info("analysis finished",
		slog.String("run_id", run.ID),
		slog.String("target", target),
		slog.String("status", run.Status))
	return out, nil
}

// AnalyzeBatch analyzes every target with up to parallel pipelines at once.
// Each target gets its own Context. Outcomes are returned in target order.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, targets []string, query string, parallel int) ([]Outcome, error) {
	outcomes := make([]Outcome, len(targets))

	g, gCtx := errgroup.WithContext(ctx)
	if parallel < 1 {
		parallel = 1
	}
	g.SetLimit(parallel)

	for i, target := range targets {
		g.Go(func() error {
			out, err := a.Analyze(gCtx, target, query)
			outcomes[i] = out
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func newRun(target, query string, c *pipeline.Context, rep report.Report, narrative string, started, finished time.Time) (storage.Run, error) {
	contextJSON, err := json.Marshal(c)
	if err != nil {
		return storage.Run{}, fmt.Errorf("encode context: %w", err)
	}
	reportJSON, err := json.Marshal(rep)
	if err != nil {
		return storage.Run{}, fmt.Errorf("encode report: %w", err)
	}

	return storage.Run{
		ID:          storage.NewRunID(),
		Target:      target,
		Query:       query,
		Status:      string(rep.Status),
		FailedStage: rep.FailedStage,
		Error:       rep.Error,
		Context:     contextJSON,
		Report:      reportJSON,
		Narrative:   narrative,
		StartedAt:   started,
		FinishedAt:  finished,
	}, nil
}
