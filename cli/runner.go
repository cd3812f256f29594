// Command execution for CLI commands.
//
// Information Hiding:
// - Settings resolution from file, environment, and flags hidden
// - Store selection hidden
// - Output formatting hidden

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/richinex/seoscout/config"
	"github.com/richinex/seoscout/logging"
	"github.com/richinex/seoscout/pipeline"
	"github.com/richinex/seoscout/report"
	"github.com/richinex/seoscout/storage"
	"github.com/richinex/seoscout/tools"
)

// Output formats for analyze and show.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// ErrPartialRun is returned by Analyze when at least one target stopped
// before its last stage. The reports have already been written.
var ErrPartialRun = errors.New("one or more runs stopped early")

// Options holds CLI execution options.
type Options struct {
	ConfigPath  string
	Provider    string
	Query       string
	Parallel    int
	NoNarrative bool
	NoHistory   bool
	Format      string
	Verbose     bool
}

// DefaultOptions returns default CLI options.
func DefaultOptions() Options {
	return Options{
		Parallel: 1,
		Format:   FormatMarkdown,
	}
}

// LoadSettings resolves settings from the config file, the environment and
// opts, then initializes logging. Credentials are checked only when
// requireKeys is set.
func LoadSettings(opts Options, requireKeys bool) (config.Settings, error) {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Settings{}, err
	}

	if opts.Provider != "" {
		if err := settings.UseProvider(opts.Provider); err != nil {
			return config.Settings{}, err
		}
	}
	if opts.NoNarrative {
		settings.Narrative = false
	}
	if opts.Verbose {
		settings.Log.Level = "debug"
	}

	level, err := logging.ParseLevel(settings.Log.Level)
	if err != nil {
		return config.Settings{}, &config.ConfigError{Key: "LOG_LEVEL", Reason: err.Error()}
	}
	logging.Init(level, settings.Log.Format)

	if requireKeys {
		if err := settings.Validate(); err != nil {
			return config.Settings{}, err
		}
	}
	return settings, nil
}

func openStore(settings config.Settings, opts Options) (storage.RunStore, error) {
	if opts.NoHistory {
		return storage.NewInMemoryStore(), nil
	}
	store, err := storage.OpenSqlite(settings.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// OpenAnalyzer resolves settings, opens the run store and wires an
// Analyzer. The caller closes the store.
func OpenAnalyzer(opts Options) (*Analyzer, storage.RunStore, error) {
	settings, err := LoadSettings(opts, true)
	if err != nil {
		return nil, nil, err
	}
	store, err := openStore(settings, opts)
	if err != nil {
		return nil, nil, err
	}
	analyzer, err := BuildAnalyzer(settings, store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return analyzer, store, nil
}

// Analyze runs the pipeline for each target and writes one report per
// target to out.
func Analyze(ctx context.Context, out io.Writer, targets []string, opts Options) error {
	if len(targets) == 0 {
		return errors.New("at least one target is required")
	}

	analyzer, store, err := OpenAnalyzer(opts)
	if err != nil {
		return err
	}
	defer store.Close()

	outcomes, err := analyzer.AnalyzeBatch(ctx, targets, opts.Query, opts.Parallel)
	if err != nil {
		return err
	}

	partial := false
	for i, o := range outcomes {
		if i > 0 && opts.Format != FormatJSON {
			fmt.Fprintln(out, "\n---")
		}
		if err := writeOutcome(out, o, opts.Format); err != nil {
			return err
		}
		if o.Err != nil {
			partial = true
		}
	}

	if partial {
		return ErrPartialRun
	}
	return nil
}

func writeOutcome(out io.Writer, o Outcome, format string) error {
	if format == FormatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			RunID     string        `json:"runId"`
			Report    report.Report `json:"report"`
			Narrative string        `json:"narrative,omitempty"`
		}{o.Run.ID, o.Report, o.Narrative})
	}

	fmt.Fprint(out, report.Markdown(o.Report))
	if o.Narrative != "" {
		fmt.Fprintf(out, "\n%s\n", o.Narrative)
	}
	if o.NarrativeErr != nil {
		fmt.Fprintf(out, "\n_Narrative unavailable: %v_\n", o.NarrativeErr)
	}
	fmt.Fprintf(out, "\nRun ID: %s\n", o.Run.ID)
	return nil
}

// History lists recorded runs, newest first.
func History(ctx context.Context, out io.Writer, limit int, opts Options) error {
	settings, err := LoadSettings(opts, false)
	if err != nil {
		return err
	}
	store, err := openStore(settings, opts)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tTARGET\tSTATUS\tDURATION")
	for _, r := range runs {
		status := r.Status
		if r.FailedStage != "" {
			status = fmt.Sprintf("%s (%s)", r.Status, r.FailedStage)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Target, status, r.Duration().Round(time.Millisecond))
	}
	return tw.Flush()
}

// Show prints one recorded run.
func Show(ctx context.Context, out io.Writer, id string, opts Options) error {
	settings, err := LoadSettings(opts, false)
	if err != nil {
		return err
	}
	store, err := openStore(settings, opts)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("run %s: %w", id, err)
	}
	return writeRun(out, run, opts.Format)
}

func writeRun(out io.Writer, run storage.Run, format string) error {
	if format == FormatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	var rep report.Report
	if err := json.Unmarshal(run.Report, &rep); err != nil {
		return fmt.Errorf("decode report of run %s: %w", run.ID, err)
	}
	fmt.Fprint(out, report.Markdown(rep))
	if run.Narrative != "" {
		fmt.Fprintf(out, "\n%s\n", run.Narrative)
	}

	var c pipeline.Context
	if err := json.Unmarshal(run.Context, &c); err == nil && len(c.Log) > 0 {
		fmt.Fprintf(out, "\n## Stage log\n\n")
		for _, line := range c.Log {
			fmt.Fprintf(out, "    %s\n", line)
		}
	}
	fmt.Fprintf(out, "\nRun ID: %s\n", run.ID)
	return nil
}

// ListTools lists the available fetchers.
func ListTools(out io.Writer, verbose bool) error {
	registry, err := tools.WithDefaults(config.Defaults(), nil)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintln(out, registry.Description())
		return nil
	}

	fmt.Fprintln(out, "Available fetchers:")
	fmt.Fprintln(out)
	for _, meta := range registry.List() {
		fmt.Fprintf(out, "  %s\n    %s\n\n", meta.Name, meta.Description)
	}
	fmt.Fprintf(out, "Pipeline stages: %s\n", strings.Join([]string{
		pipeline.StageKeywordResearch, pipeline.StageTechnicalAudit, pipeline.StageSummary,
	}, " -> "))
	return nil
}
