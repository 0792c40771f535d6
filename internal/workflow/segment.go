package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/JaimeStill/attest/pkg/graph"
)

// SegmentStage splits the document into units. Ordinals are assigned in
// the order the segmenter returns them. When the organization is still
// unknown, it is identified from the unit text.
func SegmentStage(rt *Runtime) graph.Stage {
	return graph.StageFunc(func(ctx context.Context, s graph.State) (graph.Update, error) {
		doc, err := value[Document](s, KeyDocument)
		if err != nil {
			return nil, fmt.Errorf("segment: %w", err)
		}

		pages, err := value[[]Page](s, KeyPages)
		if err != nil {
			return nil, fmt.Errorf("segment: %w", err)
		}

		units, err := segmentUnits(ctx, rt, doc, pages)
		if err != nil {
			return nil, fmt.Errorf("segment: %w", err)
		}

		update := graph.Update{KeyUnits: units}

		org, _ := graph.Value[string](s, KeyOrganization)
		if org == "" {
			texts := make([]string, len(units))
			for i, u := range units {
				texts[i] = u.Text
			}
			if org = Identify(rt.Organizations, strings.Join(texts, "\n")); org != "" {
				update[KeyOrganization] = org
			}
		}

		rt.Logger.InfoContext(
			ctx, "segment stage complete",
			"unit_count", len(units),
			"organization", org,
		)

		return update, nil
	})
}

func segmentUnits(ctx context.Context, rt *Runtime, doc Document, pages []Page) ([]Unit, error) {
	units, err := rt.Segmenter.Segment(ctx, doc, pages)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSegmentation, err)
	}

	if len(units) == 0 {
		return nil, fmt.Errorf("%w: no units produced", ErrSegmentation)
	}

	out := make([]Unit, len(units))
	for i, u := range units {
		u.Ordinal = i + 1
		if u.Image == "" {
			u.Image = firstPageImage(pages, u.Pages)
		}
		out[i] = u
	}
	return out, nil
}

// firstPageImage returns the image of the first listed page that was
// rendered. Page numbers outside the document are ignored.
func firstPageImage(pages []Page, numbers []int) string {
	for _, n := range numbers {
		for _, p := range pages {
			if p.Number == n {
				return p.ImagePath
			}
		}
	}
	return ""
}
