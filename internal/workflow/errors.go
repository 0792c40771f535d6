// Package workflow implements the document validation pipeline: page
// rendering, segmentation, mark and logo diagnosis, per-unit validation
// fanned out over a stage graph, and verdict aggregation.
package workflow

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/JaimeStill/attest/internal/verdict"
	"github.com/JaimeStill/attest/pkg/graph"
)

// Sentinel errors for workflow operations.
var (
	ErrEmptyDocument = errors.New("document is empty")
	ErrInvalidPerson = errors.New("person must not be empty")
	ErrUnsupported   = errors.New("unsupported document type")
	ErrRenderFailed  = errors.New("failed to render page images")
	ErrMarksFailed   = errors.New("mark detection failed")
	ErrSegmentation  = errors.New("segmentation failed")
	ErrExtraction    = errors.New("extraction failed")
	ErrJudgment      = errors.New("judgment failed")
	ErrLogoFailed    = errors.New("logo inspection failed")
	ErrMissingState  = errors.New("missing pipeline state")
)

// PipelineError is returned when a run did not complete cleanly. Failures
// lists every failed stage. Units holds the verdicts of branches that
// completed plus a failed verdict for each branch that did not.
type PipelineError struct {
	RunID    uuid.UUID
	Failures []*graph.StageError
	Units    []verdict.UnitVerdict
	Err      error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline %s: %v", e.RunID, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func newPipelineError(runID uuid.UUID, s graph.State, err error) *PipelineError {
	pe := &PipelineError{RunID: runID, Err: err}

	var runErr *graph.RunError
	var timeoutErr *graph.TimeoutError
	switch {
	case errors.As(err, &runErr):
		pe.Failures = runErr.Failures
	case errors.As(err, &timeoutErr):
		pe.Failures = timeoutErr.Failures
	}

	pe.Units = collectUnits(s)
	if timeoutErr != nil {
		pe.Units = abandonedUnits(s, pe.Units, timeoutErr.Err)
	}
	return pe
}

// abandonedUnits adds a missing verdict for every dispatched unit whose
// branch had not settled when the run timed out.
func abandonedUnits(s graph.State, settled []verdict.UnitVerdict, cause error) []verdict.UnitVerdict {
	if _, ok := graph.Value[verdict.ArtifactFinding](s, KeyFinding); !ok {
		return settled
	}

	units, _ := graph.Value[[]Unit](s, KeyUnits)
	out := settled
	for _, u := range units {
		if slices.ContainsFunc(settled, func(v verdict.UnitVerdict) bool { return v.Unit == u.Ordinal }) {
			continue
		}
		out = append(out, verdict.Missing(u.Ordinal, cause))
	}

	slices.SortFunc(out, func(a, b verdict.UnitVerdict) int {
		return cmp.Compare(a.Unit, b.Unit)
	})
	return out
}
