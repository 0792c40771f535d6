package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JaimeStill/attest/internal/verdict"
	"github.com/JaimeStill/attest/pkg/rules"
)

// RuleCheck is the deterministic evaluation of one unit's facts.
type RuleCheck struct {
	Checks  verdict.UnitChecks `json:"checks"`
	Reasons []string           `json:"reasons"`
}

// Reason joins the failure reasons, or confirms that every check passed.
func (c RuleCheck) Reason() string {
	if len(c.Reasons) == 0 {
		return "all checks passed"
	}
	return strings.Join(c.Reasons, "; ")
}

// CheckFacts applies the validity, policy and person rules to f.
// A missing issuance date falls back to the start of the validity period.
func CheckFacts(f Facts, person string, reference time.Time, m rules.Matcher) RuleCheck {
	var c RuleCheck

	if reason := checkValidity(f, reference); reason != "" {
		c.Reasons = append(c.Reasons, reason)
	} else {
		c.Checks.Validity = true
	}

	if policyNumber(f) == "" {
		c.Reasons = append(c.Reasons, "policy number not found")
	} else {
		c.Checks.Policy = true
	}

	switch {
	case f.Insured == nil || strings.TrimSpace(f.Insured.Name) == "":
		c.Reasons = append(c.Reasons, fmt.Sprintf("insured person %s is not listed", person))
	case !m.Match(person, f.Insured.Name):
		c.Reasons = append(c.Reasons, fmt.Sprintf("listed insured %q does not match %s", f.Insured.Name, person))
	default:
		c.Checks.Person = true
	}

	return c
}

func checkValidity(f Facts, reference time.Time) string {
	end, reason := parseFact("validity end date", f.ValidityEnd)
	if reason != "" {
		return reason
	}

	issuedField, issued := "issuance date", f.IssuanceDate
	if deref(issued) == "" {
		issuedField, issued = "validity start date", f.ValidityStart
	}
	issuance, reason := parseFact(issuedField, issued)
	if reason != "" {
		return reason
	}

	if !rules.IssuanceWithinValidity(issuance, end) {
		return fmt.Sprintf(
			"issued on %s after validity ended on %s",
			issuance.Format(rules.DateLayout), end.Format(rules.DateLayout),
		)
	}
	if !rules.NotExpired(end, reference) {
		return fmt.Sprintf(
			"validity ended on %s before reference date %s",
			end.Format(rules.DateLayout), rules.Day(reference).Format(rules.DateLayout),
		)
	}
	return ""
}

func parseFact(field string, v *string) (time.Time, string) {
	s := deref(v)
	if s == "" {
		return time.Time{}, field + " not found"
	}
	t, err := rules.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Sprintf("%s %q is not a recognized date", field, s)
	}
	return t, ""
}

func policyNumber(f Facts) string {
	if p := deref(f.PolicyNumber); rules.PolicyPresent(p) {
		return p
	}
	if f.Insured != nil {
		if p := deref(f.Insured.PolicyNumber); rules.PolicyPresent(p) {
			return p
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// RuleJudge is the deterministic Judge. Unit judgments are the rule
// checks themselves and document judgments are the aggregated verdict.
type RuleJudge struct {
	Matcher rules.Matcher
}

func (j RuleJudge) JudgeUnit(_ context.Context, r UnitReview) (verdict.UnitVerdict, error) {
	c := CheckFacts(r.Facts, r.Person, r.ReferenceDate, j.Matcher)
	return verdict.UnitVerdict{
		Unit:   r.Unit.Ordinal,
		Pass:   c.Checks.All(),
		Reason: c.Reason(),
		Checks: c.Checks,
	}, nil
}

func (j RuleJudge) JudgeDocument(_ context.Context, units []verdict.UnitVerdict, finding verdict.ArtifactFinding) (verdict.FinalVerdict, error) {
	return verdict.Aggregate(finding, units), nil
}
