// Package verdict combines per-unit outcomes and the document-wide artifact
// diagnosis into one final verdict.
package verdict

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Aggregate produces the document verdict. The artifact check (at least one
// mark and a positive logo judgment) is evaluated document-wide; validity,
// policy and person are rolled up across units with an existential OR.
// The result does not depend on the order of units.
func Aggregate(finding ArtifactFinding, units []UnitVerdict) FinalVerdict {
	ordered := slices.Clone(units)
	slices.SortStableFunc(ordered, func(a, b UnitVerdict) int {
		return cmp.Compare(a.Unit, b.Unit)
	})

	d := Details{
		Signature: finding.Count > 0,
		Logo:      finding.Logo.Match,
	}
	for _, u := range ordered {
		d.Validity = d.Validity || u.Checks.Validity
		d.Policy = d.Policy || u.Checks.Policy
		d.Person = d.Person || u.Checks.Person
	}

	v := FinalVerdict{
		Details: d,
		Failed:  failed(d),
	}

	if !d.Signature || !d.Logo {
		v.Classification = Observed
		v.Reason = artifactReason(finding)
		return v
	}

	if len(ordered) == 0 {
		v.Classification = Invalid
		v.Reason = "no document units were produced for validation"
		return v
	}

	if len(v.Failed) > 0 {
		v.Classification = Invalid
		v.Reason = criteriaReason(v.Failed, ordered)
		return v
	}

	v.Verdict = true
	v.Classification = Valid
	v.Reason = "signature and logo verified; validity, policy and insured person confirmed"
	return v
}

// Missing is the verdict for a unit whose branch produced no contribution.
// Every criterion fails and the reason names the upstream failure.
func Missing(unit int, cause error) UnitVerdict {
	reason := "upstream failure"
	if cause != nil {
		reason = fmt.Sprintf("%s: %v", reason, cause)
	}
	return UnitVerdict{
		Unit:    unit,
		Reason:  reason,
		Missing: true,
	}
}

func failed(d Details) []Criterion {
	out := []Criterion{}
	if !d.Logo {
		out = append(out, CriterionLogo)
	}
	if !d.Signature {
		out = append(out, CriterionSignature)
	}
	if !d.Validity {
		out = append(out, CriterionValidity)
	}
	if !d.Policy {
		out = append(out, CriterionPolicy)
	}
	if !d.Person {
		out = append(out, CriterionPerson)
	}
	return out
}

func artifactReason(f ArtifactFinding) string {
	var parts []string
	if f.Count == 0 {
		parts = append(parts, "no signature or handwritten mark was detected")
	}
	if !f.Logo.Match {
		msg := "issuer logo does not match the identified organization"
		if f.Logo.Reason != "" {
			msg += ": " + f.Logo.Reason
		}
		parts = append(parts, msg)
	}
	return "observed: " + strings.Join(parts, "; ")
}

func criteriaReason(criteria []Criterion, units []UnitVerdict) string {
	var parts []string
	for _, c := range criteria {
		var reasons []string
		for _, u := range units {
			if !criterionOf(u.Checks, c) && u.Reason != "" {
				reasons = append(reasons, fmt.Sprintf("unit %d: %s", u.Unit, u.Reason))
			}
		}
		part := fmt.Sprintf("%s check failed", c)
		if len(reasons) > 0 {
			part += " (" + strings.Join(reasons, "; ") + ")"
		}
		parts = append(parts, part)
	}
	return "invalid: " + strings.Join(parts, "; ")
}

func criterionOf(c UnitChecks, name Criterion) bool {
	switch name {
	case CriterionValidity:
		return c.Validity
	case CriterionPolicy:
		return c.Policy
	case CriterionPerson:
		return c.Person
	}
	return false
}
