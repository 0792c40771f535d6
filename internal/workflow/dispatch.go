package workflow

import (
	"context"
	"fmt"

	"github.com/JaimeStill/attest/internal/verdict"
	"github.com/JaimeStill/attest/pkg/graph"
)

// DispatchStage joins the mark and logo diagnoses into the document
// finding. It is deferred, so it runs once both have settled. When an
// upstream stage already failed it records nothing and the run ends
// without fanning out.
func DispatchStage(rt *Runtime) graph.Stage {
	return graph.StageFunc(func(ctx context.Context, s graph.State) (graph.Update, error) {
		if failures := graph.Failures(s); len(failures) > 0 {
			rt.Logger.WarnContext(
				ctx, "dispatch skipped after upstream failure",
				"failures", len(failures),
			)
			return graph.Update{}, nil
		}

		diagnosis, err := value[[]verdict.PageMarks](s, KeyPageMarks)
		if err != nil {
			return nil, fmt.Errorf("dispatch: %w", err)
		}

		logo, err := value[verdict.LogoInspection](s, KeyLogo)
		if err != nil {
			return nil, fmt.Errorf("dispatch: %w", err)
		}

		finding := verdict.NewFinding(diagnosis, logo)

		units, _ := graph.Value[[]Unit](s, KeyUnits)
		rt.Logger.InfoContext(
			ctx, "dispatch stage complete",
			"marks", finding.Count,
			"logo_match", finding.Logo.Match,
			"unit_count", len(units),
		)

		return graph.Update{KeyFinding: finding}, nil
	})
}

// routeUnits fans out one validate_unit branch per unit, each seeing only
// its unit and the document-wide inputs it needs, and schedules the
// deferred aggregate.
func routeUnits(s graph.State) []graph.Send {
	if _, ok := graph.Value[verdict.ArtifactFinding](s, KeyFinding); !ok {
		return nil
	}

	units, _ := graph.Value[[]Unit](s, KeyUnits)
	base := s.Pick(KeyPerson, KeyReferenceDate, KeyOrganization, KeyFinding)

	sends := make([]graph.Send, 0, len(units)+1)
	for _, u := range units {
		sends = append(sends, graph.Send{
			Stage: StageValidateUnit,
			State: base.Set(KeyUnit, u),
		})
	}
	return append(sends, graph.To(StageAggregate))
}
