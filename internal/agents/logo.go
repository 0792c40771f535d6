package agents

import (
	"context"
	"fmt"

	"github.com/JaimeStill/attest/internal/prompts"
	"github.com/JaimeStill/attest/internal/verdict"
	"github.com/JaimeStill/attest/internal/workflow"
)

// logoPages is how many leading pages are shown for logo inspection.
// Letterheads sit on the first pages.
const logoPages = 2

type logoResponse struct {
	Present bool   `json:"present"`
	Match   bool   `json:"match"`
	Reason  string `json:"reason"`
}

// InspectLogo asks whether the letterhead belongs to organization. A
// match without a visible logo is not accepted.
func (a *Agents) InspectLogo(ctx context.Context, pages []workflow.Page, organization string) (verdict.LogoInspection, error) {
	if len(pages) == 0 {
		return verdict.LogoInspection{Reason: "no pages to inspect"}, nil
	}

	images, err := loadPages(pages[:min(len(pages), logoPages)])
	if err != nil {
		return verdict.LogoInspection{}, err
	}

	data := map[string]any{"expected_organization": organization}

	resp, err := ask[logoResponse](ctx, a, prompts.StageLogo, data, "", images)
	if err != nil {
		return verdict.LogoInspection{}, err
	}

	reason := resp.Reason
	if !resp.Present && reason == "" {
		reason = fmt.Sprintf("no logo found for %s", organization)
	}

	return verdict.LogoInspection{
		Match:  resp.Present && resp.Match,
		Reason: reason,
	}, nil
}
