package agents

import (
	"context"
	"strings"

	"github.com/JaimeStill/attest/internal/prompts"
	"github.com/JaimeStill/attest/internal/workflow"
)

// Extract reads the facts of one unit. The unit text is the user turn; the
// unit's page image, when known, is attached so printed values can be
// checked against the scan.
func (a *Agents) Extract(ctx context.Context, unit workflow.Unit, organization, person string) (workflow.Facts, error) {
	var images []Image
	if unit.Image != "" {
		img, err := loadImage(unit.Image)
		if err != nil {
			return workflow.Facts{}, err
		}
		images = append(images, img)
	}

	data := map[string]any{
		"asserted_person":       person,
		"expected_organization": organization,
		"unit":                  unit.Ordinal,
	}

	facts, err := ask[workflow.Facts](ctx, a, prompts.StageExtract, data, unit.Text, images)
	if err != nil {
		return workflow.Facts{}, err
	}

	return normalizeFacts(facts), nil
}

// normalizeFacts turns blank strings into absent values, and drops an
// insured record that carries no name.
func normalizeFacts(f workflow.Facts) workflow.Facts {
	for _, p := range []**string{&f.ValidityStart, &f.ValidityEnd, &f.IssuanceDate, &f.PolicyNumber, &f.Organization} {
		*p = blankToNil(*p)
	}

	if f.Insured != nil {
		f.Insured.Name = strings.TrimSpace(f.Insured.Name)
		f.Insured.PolicyNumber = blankToNil(f.Insured.PolicyNumber)
		f.Insured.Organization = blankToNil(f.Insured.Organization)
		if f.Insured.Name == "" {
			f.Insured = nil
		}
	}

	return f
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" || strings.EqualFold(v, "null") {
		return nil
	}
	return &v
}
