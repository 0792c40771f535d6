// Package validations exposes the document validation pipeline over HTTP.
// It adds the verdict cache, report archiving and validation metrics
// around workflow.Execute.
package validations

import (
	"context"

	"github.com/JaimeStill/attest/internal/workflow"
)

// System defines the public contract for validation operations.
type System interface {
	Handler(maxUploadSize int64) *Handler

	Validate(ctx context.Context, cmd ValidateCommand) (*Result, error)
	ValidateStored(ctx context.Context, cmd StoredCommand) (*Result, error)
	DetectMarks(ctx context.Context, doc workflow.Document) (*workflow.MarksReport, error)
}
