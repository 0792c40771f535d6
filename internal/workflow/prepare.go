package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JaimeStill/attest/pkg/graph"
)

// PrepareStage renders the document into page images and identifies the
// issuing organization from the declared value or the file name.
func PrepareStage(rt *Runtime) graph.Stage {
	return graph.StageFunc(func(ctx context.Context, s graph.State) (graph.Update, error) {
		doc, err := value[Document](s, KeyDocument)
		if err != nil {
			return nil, fmt.Errorf("prepare: %w", err)
		}

		tempDir, err := value[string](s, KeyTempDir)
		if err != nil {
			return nil, fmt.Errorf("prepare: %w", err)
		}

		pages, err := rt.Renderer.Render(ctx, doc, tempDir)
		if err != nil {
			return nil, fmt.Errorf("prepare: %w", err)
		}

		org := strings.ToUpper(strings.TrimSpace(doc.Organization))
		if org == "" {
			org = IdentifyFilename(rt.Organizations, doc.Filename)
		}

		rt.Logger.InfoContext(
			ctx, "prepare stage complete",
			"filename", doc.Filename,
			"page_count", len(pages),
			"organization", org,
		)

		return graph.Update{
			KeyPages:        pages,
			KeyOrganization: org,
		}, nil
	})
}

func value[T any](s graph.State, key string) (T, error) {
	v, ok := graph.Value[T](s, key)
	if !ok {
		return v, fmt.Errorf("%w: %s", ErrMissingState, key)
	}
	return v, nil
}

func referenceDate(s graph.State) time.Time {
	t, _ := graph.Value[time.Time](s, KeyReferenceDate)
	return t
}
