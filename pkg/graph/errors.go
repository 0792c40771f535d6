package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidConfig     = errors.New("invalid graph config")
	ErrEmptyName         = errors.New("stage name must not be empty")
	ErrNilStage          = errors.New("stage must not be nil")
	ErrUnknownStage      = errors.New("unknown stage")
	ErrNoEntryPoint      = errors.New("entry point not set")
	ErrDuplicateRouter   = errors.New("stage already has a router")
	ErrDuplicateField    = errors.New("field already declared")
	ErrReservedField     = errors.New("field is reserved")
	ErrUndeclaredTarget  = errors.New("router target not declared")
	ErrConflictingUpdate = errors.New("conflicting replace updates in one step")
	ErrFieldType         = errors.New("field type mismatch")
	ErrStagePanic        = errors.New("stage panicked")
	ErrStepLimit         = errors.New("step limit exceeded")
)

// DuplicateStageError is returned by AddStage when the name is taken.
type DuplicateStageError struct {
	Name string
}

func (e *DuplicateStageError) Error() string {
	return fmt.Sprintf("stage %q already registered", e.Name)
}

// CycleError reports a path that revisits a stage.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "cycle detected: " + strings.Join(e.Path, " -> ")
}

// StageError wraps the failure of one stage invocation. Input is the view
// the branch received, which lets callers recover the work item.
type StageError struct {
	Stage  string
	Branch int
	Input  State
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s (branch %d): %v", e.Stage, e.Branch, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// RunError is returned when a run completed but one or more branches failed.
type RunError struct {
	Graph    string
	Failures []*StageError
}

func (e *RunError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf(
		"graph %s: %d stage(s) failed: %s",
		e.Graph, len(e.Failures), strings.Join(msgs, "; "),
	)
}

func (e *RunError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// TimeoutError is returned when the run context ends before the graph
// drains. Branches still running are abandoned; Completed lists the stage
// invocations that finished successfully before the deadline.
type TimeoutError struct {
	Graph     string
	Completed []string
	Pending   []string
	Failures  []*StageError
	Err       error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf(
		"graph %s: %v after %d completed stage(s), %d pending",
		e.Graph, e.Err, len(e.Completed), len(e.Pending),
	)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}
