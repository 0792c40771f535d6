package workflow

import (
	"context"
	"time"

	"github.com/JaimeStill/attest/internal/verdict"
)

// Segmenter splits a document into ordered units.
// It must return at least one unit for any non-empty document.
type Segmenter interface {
	Segment(ctx context.Context, doc Document, pages []Page) ([]Unit, error)
}

// Extractor pulls structured facts from one unit.
type Extractor interface {
	Extract(ctx context.Context, unit Unit, organization, person string) (Facts, error)
}

// LogoInspector judges whether the issuer logo on the rendered pages
// belongs to the expected organization.
type LogoInspector interface {
	InspectLogo(ctx context.Context, pages []Page, organization string) (verdict.LogoInspection, error)
}

// UnitReview is everything a judge sees for one unit.
type UnitReview struct {
	Unit          Unit
	Facts         Facts
	Finding       verdict.ArtifactFinding
	Person        string
	ReferenceDate time.Time
}

// Judge renders per-unit and document-level judgments.
type Judge interface {
	JudgeUnit(ctx context.Context, r UnitReview) (verdict.UnitVerdict, error)
	JudgeDocument(ctx context.Context, units []verdict.UnitVerdict, finding verdict.ArtifactFinding) (verdict.FinalVerdict, error)
}
