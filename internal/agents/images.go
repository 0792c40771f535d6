package agents

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"net/http"
	"os"

	_ "golang.org/x/image/tiff"

	"github.com/JaimeStill/attest/internal/workflow"
)

// loadImage reads a page image. Formats the model does not accept inline
// (TIFF scans) are re-encoded as PNG.
func loadImage(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("read image: %w", err)
	}

	switch mime := http.DetectContentType(data); mime {
	case "image/png", "image/jpeg", "image/webp":
		return Image{MIMEType: mime, Data: data}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("decode image %s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Image{}, fmt.Errorf("encode png: %w", err)
	}
	return Image{MIMEType: "image/png", Data: buf.Bytes()}, nil
}

func loadPages(pages []workflow.Page) ([]Image, error) {
	images := make([]Image, 0, len(pages))
	for _, p := range pages {
		img, err := loadImage(p.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", p.Number, err)
		}
		images = append(images, img)
	}
	return images, nil
}
