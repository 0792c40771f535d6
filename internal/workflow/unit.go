package workflow

import (
	"context"
	"fmt"

	"github.com/JaimeStill/attest/internal/verdict"
	"github.com/JaimeStill/attest/pkg/graph"
)

// ExtractStage pulls facts from the branch's unit.
func ExtractStage(rt *Runtime) graph.Stage {
	return graph.StageFunc(func(ctx context.Context, s graph.State) (graph.Update, error) {
		unit, err := value[Unit](s, KeyUnit)
		if err != nil {
			return nil, fmt.Errorf("extract: %w", err)
		}

		org, _ := graph.Value[string](s, KeyOrganization)
		person, _ := graph.Value[string](s, KeyPerson)

		facts, err := rt.Extractor.Extract(ctx, unit, org, person)
		if err != nil {
			return nil, fmt.Errorf("extract: unit %d: %w: %w", unit.Ordinal, ErrExtraction, err)
		}

		rt.Logger.InfoContext(
			ctx, "extract stage complete",
			"unit", unit.Ordinal,
			"insured_found", facts.Insured != nil,
		)

		return graph.Update{KeyFacts: facts}, nil
	})
}

// CheckStage applies the deterministic rules to the extracted facts.
func CheckStage(rt *Runtime) graph.Stage {
	return graph.StageFunc(func(ctx context.Context, s graph.State) (graph.Update, error) {
		unit, err := value[Unit](s, KeyUnit)
		if err != nil {
			return nil, fmt.Errorf("check: %w", err)
		}

		facts, err := value[Facts](s, KeyFacts)
		if err != nil {
			return nil, fmt.Errorf("check: %w", err)
		}

		person, _ := graph.Value[string](s, KeyPerson)
		check := CheckFacts(facts, person, referenceDate(s), rt.Matcher)

		rt.Logger.InfoContext(
			ctx, "check stage complete",
			"unit", unit.Ordinal,
			"validity", check.Checks.Validity,
			"policy", check.Checks.Policy,
			"person", check.Checks.Person,
		)

		return graph.Update{KeyRuleCheck: check}, nil
	})
}

// JudgeStage reconciles the judge's unit verdict with the rule check.
// Each criterion passes only when both agree it passes.
func JudgeStage(rt *Runtime) graph.Stage {
	return graph.StageFunc(func(ctx context.Context, s graph.State) (graph.Update, error) {
		unit, err := value[Unit](s, KeyUnit)
		if err != nil {
			return nil, fmt.Errorf("judge: %w", err)
		}

		facts, err := value[Facts](s, KeyFacts)
		if err != nil {
			return nil, fmt.Errorf("judge: %w", err)
		}

		check, err := value[RuleCheck](s, KeyRuleCheck)
		if err != nil {
			return nil, fmt.Errorf("judge: %w", err)
		}

		finding, _ := graph.Value[verdict.ArtifactFinding](s, KeyFinding)
		person, _ := graph.Value[string](s, KeyPerson)

		judged, err := rt.Judge.JudgeUnit(ctx, UnitReview{
			Unit:          unit,
			Facts:         facts,
			Finding:       finding,
			Person:        person,
			ReferenceDate: referenceDate(s),
		})
		if err != nil {
			return nil, fmt.Errorf("judge: unit %d: %w: %w", unit.Ordinal, ErrJudgment, err)
		}

		checks := judged.Checks.And(check.Checks)
		reason := check.Reason()
		var review string
		if judged.Checks != check.Checks {
			review = judged.Reason
			rt.Logger.WarnContext(
				ctx, "judge disagrees with rule check",
				"unit", unit.Ordinal,
				"judge", judged.Checks,
				"rules", check.Checks,
			)
			if checks != check.Checks && review != "" {
				reason += "; review: " + review
			}
		}

		v := verdict.UnitVerdict{
			Unit:   unit.Ordinal,
			Pass:   checks.All(),
			Reason: reason,
			Checks: checks,
		}

		rt.Logger.InfoContext(
			ctx, "judge stage complete",
			"unit", unit.Ordinal,
			"pass", v.Pass,
		)

		return graph.Update{
			KeyUnitVerdict: v,
			KeyObservation: Observation{
				Unit:    unit.Ordinal,
				Facts:   facts,
				Verdict: v,
				Review:  review,
			},
		}, nil
	})
}

func buildUnitGraph(rt *Runtime) (*graph.Graph, error) {
	g, err := graph.New(graph.DefaultConfig("attest-unit"), observerOption(rt))
	if err != nil {
		return nil, err
	}

	if err := g.AddStage(StageExtract, ExtractStage(rt)); err != nil {
		return nil, err
	}

	if err := g.AddStage(StageCheck, CheckStage(rt)); err != nil {
		return nil, err
	}

	if err := g.AddStage(StageJudge, JudgeStage(rt)); err != nil {
		return nil, err
	}

	// extract → check → judge
	if err := g.AddEdge(StageExtract, StageCheck); err != nil {
		return nil, err
	}

	if err := g.AddEdge(StageCheck, StageJudge); err != nil {
		return nil, err
	}

	if err := g.SetEntryPoint(StageExtract); err != nil {
		return nil, err
	}

	return g, nil
}

// projectUnit carries the branch verdict and observation back to the
// document graph, where both are appended.
func projectUnit(s graph.State) (graph.Update, error) {
	v, err := value[verdict.UnitVerdict](s, KeyUnitVerdict)
	if err != nil {
		return nil, err
	}

	obs, err := value[Observation](s, KeyObservation)
	if err != nil {
		return nil, err
	}

	return graph.Update{
		KeyUnitVerdicts: v,
		KeyObservations: obs,
	}, nil
}
