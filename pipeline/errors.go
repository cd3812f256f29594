package pipeline

import (
	"errors"
	"fmt"
)

// PipelineError reports the stage that stopped a run. Context holds every
// field merged before the failure.
type PipelineError struct {
	StageIndex int
	StageName  string
	Err        error
	Context    *Context
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("stage %d (%s) failed: %v", e.StageIndex, e.StageName, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// AsPipelineError extracts a *PipelineError from err.
func AsPipelineError(err error) (*PipelineError, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
