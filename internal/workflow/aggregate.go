package workflow

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/JaimeStill/attest/internal/verdict"
	"github.com/JaimeStill/attest/pkg/graph"
)

// AggregateStage produces the final verdict once every unit branch has
// settled. Branches that failed count as units failing every criterion.
// The judge's document review is attached but never overrides the
// aggregated verdict.
func AggregateStage(rt *Runtime) graph.Stage {
	return graph.StageFunc(func(ctx context.Context, s graph.State) (graph.Update, error) {
		finding, err := value[verdict.ArtifactFinding](s, KeyFinding)
		if err != nil {
			return nil, fmt.Errorf("aggregate: %w", err)
		}

		units := collectUnits(s)
		final := verdict.Aggregate(finding, units)

		review, err := rt.Judge.JudgeDocument(ctx, units, finding)
		if err != nil {
			return nil, fmt.Errorf("aggregate: %w: %w", ErrJudgment, err)
		}

		final.Review = &verdict.Review{
			Verdict: review.Verdict,
			Reason:  review.Reason,
			Agrees:  review.Verdict == final.Verdict,
		}
		if !final.Review.Agrees {
			rt.Logger.WarnContext(
				ctx, "document review disagrees with aggregated verdict",
				"verdict", final.Verdict,
				"review", review.Verdict,
			)
		}

		rt.Logger.InfoContext(
			ctx, "aggregate stage complete",
			"unit_count", len(units),
			"verdict", final.Verdict,
			"classification", final.Classification,
		)

		return graph.Update{KeyVerdict: final}, nil
	})
}

// collectUnits returns the completed unit verdicts plus a failed verdict
// for every unit branch that errored, ordered by unit.
func collectUnits(s graph.State) []verdict.UnitVerdict {
	units, _ := graph.Value[[]verdict.UnitVerdict](s, KeyUnitVerdicts)
	out := slices.Clone(units)

	for _, f := range graph.Failures(s) {
		if f.Stage != StageValidateUnit {
			continue
		}
		u, ok := graph.Value[Unit](f.Input, KeyUnit)
		if !ok {
			continue
		}

		cause := f.Err
		var inner *graph.StageError
		if errors.As(cause, &inner) {
			cause = inner.Err
		}
		out = append(out, verdict.Missing(u.Ordinal, cause))
	}

	slices.SortFunc(out, func(a, b verdict.UnitVerdict) int {
		return cmp.Compare(a.Unit, b.Unit)
	})
	return out
}
