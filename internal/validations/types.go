package validations

import (
	"fmt"
	"time"

	"github.com/JaimeStill/attest/internal/verdict"
	"github.com/JaimeStill/attest/internal/workflow"
	"github.com/JaimeStill/attest/pkg/rules"
)

// ValidateCommand is a submitted document and the person it is asserted for.
type ValidateCommand struct {
	Document workflow.Document
	Person   string
}

// StoredCommand validates a document already held in blob storage.
type StoredCommand struct {
	Key           string `json:"key"`
	Person        string `json:"person"`
	Organization  string `json:"organization,omitempty"`
	ReferenceDate string `json:"reference_date,omitempty"`
}

// Result is a report plus how it was obtained. Cached results carry the
// run id of the run that produced them.
type Result struct {
	*workflow.Report
	Cached     bool   `json:"cached"`
	ArchiveKey string `json:"archive_key,omitempty"`
}

// Failure is the response body for a run that did not complete cleanly.
type Failure struct {
	Error    string                `json:"error"`
	RunID    string                `json:"run_id"`
	Failures []StageFailure        `json:"failures,omitempty"`
	Units    []verdict.UnitVerdict `json:"units,omitempty"`
}

// StageFailure names a failed stage and the fan-out branch it ran in.
type StageFailure struct {
	Stage  string `json:"stage"`
	Branch int    `json:"branch"`
	Error  string `json:"error"`
}

// NewFailure builds the response body for a pipeline error.
func NewFailure(pe *workflow.PipelineError) Failure {
	f := Failure{
		Error: pe.Error(),
		RunID: pe.RunID.String(),
		Units: pe.Units,
	}
	for _, se := range pe.Failures {
		f.Failures = append(f.Failures, StageFailure{
			Stage:  se.Stage,
			Branch: se.Branch,
			Error:  se.Err.Error(),
		})
	}
	return f
}

func parseReferenceDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := rules.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: reference_date: %w", ErrInvalidRequest, err)
	}
	return t, nil
}
