package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/JaimeStill/attest/internal/prompts"
	"github.com/JaimeStill/attest/internal/workflow"
)

type segmentResponse struct {
	Units []workflow.Unit `json:"units"`
}

// Segment sends every page image and asks for the document's units in
// reading order. Units without text are dropped, and page references
// outside the document are discarded.
func (a *Agents) Segment(ctx context.Context, doc workflow.Document, pages []workflow.Page) ([]workflow.Unit, error) {
	images, err := loadPages(pages)
	if err != nil {
		return nil, err
	}

	data := map[string]any{
		"filename":   doc.Filename,
		"page_count": len(pages),
	}

	resp, err := ask[segmentResponse](ctx, a, prompts.StageSegment, data, "", images)
	if err != nil {
		return nil, err
	}

	units := make([]workflow.Unit, 0, len(resp.Units))
	for _, u := range resp.Units {
		u.Text = strings.TrimSpace(u.Text)
		if u.Text == "" {
			continue
		}
		u.Pages = validPages(u.Pages, len(pages))
		units = append(units, u)
	}

	if len(units) == 0 && len(resp.Units) > 0 {
		return nil, fmt.Errorf("segment response: all %d units were empty", len(resp.Units))
	}

	return units, nil
}

func validPages(numbers []int, count int) []int {
	out := numbers[:0:0]
	for _, n := range numbers {
		if n >= 1 && n <= count {
			out = append(out, n)
		}
	}
	return out
}
