package agents

import (
	"context"

	"github.com/JaimeStill/attest/internal/prompts"
	"github.com/JaimeStill/attest/internal/verdict"
	"github.com/JaimeStill/attest/internal/workflow"
	"github.com/JaimeStill/attest/pkg/rules"
)

type unitJudgment struct {
	Validity bool   `json:"validity"`
	Policy   bool   `json:"policy"`
	Person   bool   `json:"person"`
	Reason   string `json:"reason"`
}

type documentJudgment struct {
	Verdict bool   `json:"verdict"`
	Reason  string `json:"reason"`
}

// JudgeUnit asks the model for the three unit criteria given the unit text
// and its extracted facts.
func (a *Agents) JudgeUnit(ctx context.Context, r workflow.UnitReview) (verdict.UnitVerdict, error) {
	data := map[string]any{
		"asserted_person": r.Person,
		"reference_date":  r.ReferenceDate.Format(rules.DateLayout),
		"facts":           r.Facts,
	}

	resp, err := ask[unitJudgment](ctx, a, prompts.StageJudgeUnit, data, r.Unit.Text, nil)
	if err != nil {
		return verdict.UnitVerdict{}, err
	}

	checks := verdict.UnitChecks{
		Validity: resp.Validity,
		Policy:   resp.Policy,
		Person:   resp.Person,
	}

	return verdict.UnitVerdict{
		Unit:   r.Unit.Ordinal,
		Pass:   checks.All(),
		Reason: resp.Reason,
		Checks: checks,
	}, nil
}

// JudgeDocument asks for an overall review of the unit outcomes and the
// artifact diagnosis.
func (a *Agents) JudgeDocument(ctx context.Context, units []verdict.UnitVerdict, finding verdict.ArtifactFinding) (verdict.FinalVerdict, error) {
	data := map[string]any{
		"units":            units,
		"signature_count":  finding.Count,
		"pages_with_marks": verdict.Summarize(finding.Pages).PagesWithMarks,
		"logo":             finding.Logo,
	}

	resp, err := ask[documentJudgment](ctx, a, prompts.StageJudgeDocument, data, "", nil)
	if err != nil {
		return verdict.FinalVerdict{}, err
	}

	class := verdict.Invalid
	if resp.Verdict {
		class = verdict.Valid
	}

	return verdict.FinalVerdict{
		Verdict:        resp.Verdict,
		Classification: class,
		Reason:         resp.Reason,
	}, nil
}
