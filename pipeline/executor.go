// Stage execution.
//
// Information Hiding:
// - Parameter derivation, fetch, and merge sequencing hidden
// - Log line formatting hidden
// - Partial-merge prevention hidden

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/richinex/seoscout/logging"
	"github.com/richinex/seoscout/tools"
)

// Stage is one named step of a pipeline. A stage with a Fetcher calls it
// with parameters derived from the Context and merges the result. A stage
// without one runs Derive instead. A stage with neither is a no-op.
type Stage struct {
	Name    string
	Fetcher tools.Fetcher
	// Params derives fetcher parameters from the Context. Nil means
	// QueryParams{URL: c.Target, Query: c.Query}.
	Params func(c *Context) tools.QueryParams
	Merge  MergeStrategy
	// Derive computes a fragment from the Context alone.
	Derive func(c *Context) (Fragment, error)
}

// DefaultParams derives the parameters every fetcher accepts from c.
func DefaultParams(c *Context) tools.QueryParams {
	return tools.QueryParams{URL: c.Target, Query: c.Query}
}

// Executor runs a single stage against a Context.
type Executor struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewExecutor creates an executor that timestamps log lines in UTC.
func NewExecutor() *Executor {
	return &Executor{
		logger: logging.New("executor"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the log timestamp source.
func (e *Executor) WithClock(now func() time.Time) *Executor {
	e.now = now
	return e
}

// Run executes stage against c. Exactly one log line is appended to c per
// call, whether the stage succeeds or fails. On failure c holds no part of
// the stage's output. The returned error is the fetcher's or merge's own
// error, unwrapped.
func (e *Executor) Run(ctx context.Context, stage Stage, c *Context) (err error) {
	if c.Sealed() {
		return ErrContextSealed
	}

	start := e.now()
	e.logger.Info("stage started", slog.String("stage", stage.Name))
	defer func() {
		c.appendLog(logLine(start, stage.Name, err))
		e.logger.Info("stage finished",
			slog.String("stage", stage.Name),
			slog.Duration("elapsed", e.now().Sub(start)),
			slog.Bool("success", err == nil))
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	frag, err := e.produce(ctx, stage, c)
	if err != nil {
		return err
	}
	// A cancellation that lands after the fetch still fails the stage.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.merge(frag, stage.Merge); err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	return nil
}

func (e *Executor) produce(ctx context.Context, stage Stage, c *Context) (Fragment, error) {
	switch {
	case stage.Fetcher != nil:
		params := DefaultParams(c)
		if stage.Params != nil {
			params = stage.Params(c)
		}
		e.logger.Debug("stage fetching",
			slog.String("stage", stage.Name),
			slog.String("fetcher", stage.Fetcher.Metadata().Name),
			slog.String("url", params.URL))

		result, err := stage.Fetcher.Fetch(ctx, params)
		if err != nil {
			return Fragment{}, err
		}
		return FragmentFromResult(result)

	case stage.Derive != nil:
		return stage.Derive(c)

	default:
		return Fragment{}, nil
	}
}

// logLine renders "<RFC3339 timestamp> <stage> success" or
// "<RFC3339 timestamp> <stage> failure (<kind>)".
func logLine(at time.Time, stage string, err error) string {
	ts := at.Format(time.RFC3339)
	if err == nil {
		return fmt.Sprintf("%s %s success", ts, stage)
	}
	return fmt.Sprintf("%s %s failure (%s)", ts, stage, ErrorKind(err))
}

// ErrorKind classifies a stage error for logs and reports.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, tools.ErrInvalidQuery):
		return "invalid_query"
	case tools.IsTransportError(err):
		return "transport"
	case tools.IsSchemaError(err):
		return "schema"
	case errors.Is(err, ErrContextSealed):
		return "sealed"
	default:
		return "error"
	}
}
