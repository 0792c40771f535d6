package marks

import (
	"image"
	"image/color"
)

// Binary is a foreground mask. Ink pixels are true.
type Binary struct {
	Width  int
	Height int
	Pix    []bool
}

// At reports whether (x, y) is foreground. Out-of-range points are background.
func (b *Binary) At(x, y int) bool {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return false
	}
	return b.Pix[y*b.Width+x]
}

// Count returns the number of foreground pixels inside r, clipped to the mask.
func (b *Binary) Count(r Rect) int {
	n := 0
	for y := max(r.Top, 0); y < min(r.Bottom(), b.Height); y++ {
		row := b.Pix[y*b.Width : (y+1)*b.Width]
		for x := max(r.Left, 0); x < min(r.Right(), b.Width); x++ {
			if row[x] {
				n++
			}
		}
	}
	return n
}

// Grayscale reduces img to 8-bit luma values in row-major order.
func Grayscale(img image.Image) (gray []uint8, width, height int) {
	bounds := img.Bounds()
	width, height = bounds.Dx(), bounds.Dy()
	gray = make([]uint8, width*height)

	if g, ok := img.(*image.Gray); ok {
		for y := range height {
			off := g.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(gray[y*width:(y+1)*width], g.Pix[off:off+width])
		}
		return gray, width, height
	}

	for y := range height {
		for x := range width {
			c := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			gray[y*width+x] = c.Y
		}
	}
	return gray, width, height
}

// OtsuThreshold picks the level that maximizes between-class variance.
// Ties resolve to the lowest level, so a uniform image yields 0.
func OtsuThreshold(gray []uint8) uint8 {
	var hist [256]int
	for _, v := range gray {
		hist[v]++
	}

	total := float64(len(gray))
	if total == 0 {
		return 0
	}

	var sum float64
	for i, n := range hist {
		sum += float64(i * n)
	}

	var (
		sumBack    float64
		weightBack float64
		best       float64
		threshold  int
	)

	for t := range 256 {
		weightBack += float64(hist[t])
		if weightBack == 0 {
			continue
		}
		weightFore := total - weightBack
		if weightFore == 0 {
			break
		}

		sumBack += float64(t * hist[t])
		meanBack := sumBack / weightBack
		meanFore := (sum - sumBack) / weightFore

		between := weightBack * weightFore * (meanBack - meanFore) * (meanBack - meanFore)
		if between > best {
			best = between
			threshold = t
		}
	}

	return uint8(threshold)
}

// Binarize thresholds img with Otsu's method and inverts the result so that
// dark ink is foreground.
func Binarize(img image.Image) *Binary {
	gray, width, height := Grayscale(img)
	threshold := OtsuThreshold(gray)

	pix := make([]bool, len(gray))
	for i, v := range gray {
		pix[i] = v <= threshold
	}

	// A uniform page has no separable classes; treat it as blank.
	if uniform(gray) {
		clear(pix)
	}

	return &Binary{Width: width, Height: height, Pix: pix}
}

func uniform(gray []uint8) bool {
	for _, v := range gray[min(1, len(gray)):] {
		if v != gray[0] {
			return false
		}
	}
	return true
}
