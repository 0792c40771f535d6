package workflow

import (
	"context"
	"fmt"

	"github.com/JaimeStill/attest/internal/verdict"
	"github.com/JaimeStill/attest/pkg/graph"
)

// LogoStage asks the logo inspector whether the issuer branding matches
// the identified organization. An unidentified organization never matches.
func LogoStage(rt *Runtime) graph.Stage {
	return graph.StageFunc(func(ctx context.Context, s graph.State) (graph.Update, error) {
		pages, err := value[[]Page](s, KeyPages)
		if err != nil {
			return nil, fmt.Errorf("logo: %w", err)
		}

		org, _ := graph.Value[string](s, KeyOrganization)

		inspection := verdict.LogoInspection{
			Reason: "issuing organization could not be identified",
		}
		if org != "" {
			inspection, err = rt.Logo.InspectLogo(ctx, pages, org)
			if err != nil {
				return nil, fmt.Errorf("logo: %w: %w", ErrLogoFailed, err)
			}
		}

		rt.Logger.InfoContext(
			ctx, "logo stage complete",
			"organization", org,
			"match", inspection.Match,
		)

		return graph.Update{KeyLogo: inspection}, nil
	})
}
