package workflow

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/tiff"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/attest/internal/verdict"
	"github.com/JaimeStill/attest/pkg/graph"
	"github.com/JaimeStill/attest/pkg/marks"
)

// MarksStage runs the mark detector over every rendered page.
func MarksStage(rt *Runtime) graph.Stage {
	return graph.StageFunc(func(ctx context.Context, s graph.State) (graph.Update, error) {
		pages, err := value[[]Page](s, KeyPages)
		if err != nil {
			return nil, fmt.Errorf("marks: %w", err)
		}

		diagnosis, err := DetectPages(ctx, rt.Detector, pages)
		if err != nil {
			return nil, fmt.Errorf("marks: %w", err)
		}

		summary := verdict.Summarize(diagnosis)
		rt.Logger.InfoContext(
			ctx, "marks stage complete",
			"page_count", len(pages),
			"total_marks", summary.TotalMarks,
		)

		return graph.Update{KeyPageMarks: diagnosis}, nil
	})
}

// DetectPages decodes each page image and detects candidate marks with
// bounded concurrency. Results are ordered by page. A nil detector uses
// the default options.
func DetectPages(ctx context.Context, d *marks.Detector, pages []Page) ([]verdict.PageMarks, error) {
	if d == nil {
		d = marks.New(marks.DefaultOptions())
	}

	out := make([]verdict.PageMarks, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(len(pages)))

	for i, p := range pages {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			img, err := decodePage(p.ImagePath)
			if err != nil {
				return fmt.Errorf("page %d: %w", p.Number, err)
			}

			regions := d.Detect(img)
			out[i] = verdict.PageMarks{
				Page:    p.Number,
				Count:   len(regions),
				Regions: regions,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMarksFailed, err)
	}

	return out, nil
}

func decodePage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
