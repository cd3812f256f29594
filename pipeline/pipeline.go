// Pipeline orchestration.
//
// Runs stages strictly in declared order against one Context and moves
// through Pending -> Running(i) -> Completed | Failed(i, err).
//
// Information Hiding:
// - State transition bookkeeping hidden
// - Context sealing hidden
// - Failure short-circuit hidden

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/richinex/seoscout/logging"
)

// State is the coarse phase of a pipeline run.
type State int

const (
	StatePending State = iota
	StateRunning
	StateCompleted
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateRunning:
		return "Running"
	case StateCompleted:
		return "Completed"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Status is a State plus the stage index it refers to. StageIndex is only
// meaningful for Running and Failed; Err only for Failed.
type Status struct {
	State      State
	StageIndex int
	Err        error
}

// String renders the status as Pending, Running(i), Completed or Failed(i, err).
func (s Status) String() string {
	switch s.State {
	case StateRunning:
		return fmt.Sprintf("Running(%d)", s.StageIndex)
	case StateFailed:
		return fmt.Sprintf("Failed(%d, %v)", s.StageIndex, s.Err)
	default:
		return s.State.String()
	}
}

// Terminal reports whether no further transitions can follow.
func (s Status) Terminal() bool {
	return s.State == StateCompleted || s.State == StateFailed
}

// Observer is notified of every state transition in order.
type Observer func(from, to Status)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver registers a transition observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		p.observer = o
	}
}

// WithExecutor replaces the stage executor.
func WithExecutor(e *Executor) Option {
	return func(p *Pipeline) {
		p.executor = e
	}
}

// Pipeline is a fixed, ordered list of stages. Stage order never changes
// after construction. A Pipeline may run many Contexts, one at a time or
// concurrently, since each run owns its own state.
type Pipeline struct {
	stages   []Stage
	executor *Executor
	observer Observer
	logger   *slog.Logger
}

// New builds a pipeline from stages. Names must be non-empty and unique.
func New(stages []Stage, opts ...Option) (*Pipeline, error) {
	if len(stages) == 0 {
		return nil, errors.New("pipeline needs at least one stage")
	}

	seen := make(map[string]bool, len(stages))
	for i, s := range stages {
		if s.Name == "" {
			return nil, fmt.Errorf("stage %d has no name", i)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("duplicate stage name %q", s.Name)
		}
		seen[s.Name] = true
	}

	p := &Pipeline{
		stages: append([]Stage(nil), stages...),
		logger: logging.New("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.executor == nil {
		p.executor = NewExecutor()
	}
	return p, nil
}

// StageNames returns stage names in execution order.
func (p *Pipeline) StageNames() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}

// run tracks one Execute call's status.
type run struct {
	status   Status
	observer Observer
}

func (r *run) transition(to Status) {
	from := r.status
	r.status = to
	if r.observer != nil {
		r.observer(from, to)
	}
}

// Execute runs every stage in order against c. It stops at the first
// failing stage and returns c together with a *PipelineError naming that
// stage; fields written by earlier stages stay in c. On success it returns
// c and nil. Either way c is sealed on return.
func (p *Pipeline) Execute(ctx context.Context, c *Context) (*Context, error) {
	if c == nil {
		return nil, errors.New("nil context")
	}
	if c.Sealed() {
		return c, ErrContextSealed
	}
	defer c.seal()

	r := &run{status: Status{State: StatePending}, observer: p.observer}
	p.logger.Info("pipeline started",
		slog.String("target", c.Target),
		slog.Int("stages", len(p.stages)))

	for i, stage := range p.stages {
		r.transition(Status{State: StateRunning, StageIndex: i})

		if err := p.executor.Run(ctx, stage, c); err != nil {
			r.transition(Status{State: StateFailed, StageIndex: i, Err: err})
			p.logger.Error("pipeline failed",
				slog.String("target", c.Target),
				slog.String("stage", stage.Name),
				slog.Int("index", i),
				slog.String("kind", ErrorKind(err)),
				slog.Any("error", err))
			return c, &PipelineError{StageIndex: i, StageName: stage.Name, Err: err, Context: c}
		}
	}

	r.transition(Status{State: StateCompleted})
	p.logger.Info("pipeline completed", slog.String("target", c.Target))
	return c, nil
}
