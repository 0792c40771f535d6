package workflow

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/JaimeStill/document-context/pkg/config"
	"github.com/JaimeStill/document-context/pkg/document"
	"github.com/JaimeStill/document-context/pkg/image"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"
)

const sourcePDF = "source.pdf"

// Renderer turns a document into page images under dir.
type Renderer interface {
	Render(ctx context.Context, doc Document, dir string) ([]Page, error)
}

// PageRenderer renders PDFs through ImageMagick at DPI. Image uploads are
// written through unchanged as a single page.
type PageRenderer struct {
	DPI int
}

// NewPageRenderer returns a PageRenderer, defaulting to 300 DPI.
func NewPageRenderer(dpi int) *PageRenderer {
	if dpi <= 0 {
		dpi = 300
	}
	return &PageRenderer{DPI: dpi}
}

func (r *PageRenderer) Render(ctx context.Context, doc Document, dir string) ([]Page, error) {
	switch ct := ContentType(doc); ct {
	case "application/pdf":
		return r.renderPDF(ctx, doc.Data, dir)
	case "image/png", "image/jpeg", "image/tiff":
		path := filepath.Join(dir, "page-1"+imageExt[ct])
		if err := os.WriteFile(path, doc.Data, 0600); err != nil {
			return nil, fmt.Errorf("%w: write page 1 image: %w", ErrRenderFailed, err)
		}
		return []Page{{Number: 1, ImagePath: path}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, ct)
	}
}

var imageExt = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/tiff": ".tif",
}

// ContentType resolves the media type of doc from its declared type, its
// content, and finally its file extension.
func ContentType(doc Document) string {
	ct := strings.TrimSpace(doc.ContentType)
	if ct != "" && ct != "application/octet-stream" {
		ct, _, _ = strings.Cut(ct, ";")
		return strings.ToLower(strings.TrimSpace(ct))
	}

	if sniffed := http.DetectContentType(doc.Data); sniffed != "application/octet-stream" {
		sniffed, _, _ = strings.Cut(sniffed, ";")
		return sniffed
	}

	switch strings.ToLower(filepath.Ext(doc.Filename)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tif", ".tiff":
		return "image/tiff"
	}
	return "application/octet-stream"
}

func (r *PageRenderer) renderPDF(ctx context.Context, data []byte, dir string) ([]Page, error) {
	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: read pdf: %w", ErrRenderFailed, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: pdf has no pages", ErrRenderFailed)
	}

	pdfPath := filepath.Join(dir, sourcePDF)
	if err := os.WriteFile(pdfPath, data, 0600); err != nil {
		return nil, fmt.Errorf("%w: write temp pdf: %w", ErrRenderFailed, err)
	}

	pdfDoc, err := document.OpenPDF(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %w", ErrRenderFailed, err)
	}
	defer pdfDoc.Close()

	cfg := config.DefaultImageConfig()
	cfg.Format = "png"
	cfg.DPI = r.DPI

	renderer, err := image.NewImageMagickRenderer(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: create renderer: %w", ErrRenderFailed, err)
	}

	allPages, err := pdfDoc.ExtractAllPages()
	if err != nil {
		return nil, fmt.Errorf("%w: extract pages: %w", ErrRenderFailed, err)
	}

	pages := make([]Page, len(allPages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(len(allPages)))

	for i, page := range allPages {
		pageNum := i + 1
		imgPath := filepath.Join(dir, fmt.Sprintf("page-%d.png", pageNum))
		pages[i] = Page{Number: pageNum, ImagePath: imgPath}

		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			data, err := page.ToImage(renderer, nil)
			if err != nil {
				return fmt.Errorf("render page %d: %w", pageNum, err)
			}

			if err := os.WriteFile(imgPath, data, 0600); err != nil {
				return fmt.Errorf("write page %d image: %w", pageNum, err)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}

	return pages, nil
}
