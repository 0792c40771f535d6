// Package marks locates candidate handwritten regions, such as signatures
// and initials, on a rendered page image. Detection is purely geometric:
// the page is binarized, split into connected components, and components
// that look like text, rule lines or dense printed graphics are discarded
// before nearby survivors are merged.
package marks

import (
	"image"
	"math"
	"slices"
)

// Options tunes the component filters. Factors are multiples of the
// page's median component area or of the derived stroke width.
type Options struct {
	MinAreaFactor  float64
	MaxAreaFactor  float64
	RuleThickness  float64
	RuleLength     float64
	MaxInkRatio    float64
	NearnessFactor float64
}

// DefaultOptions returns the calibrated filter constants.
func DefaultOptions() Options {
	return Options{
		MinAreaFactor:  4,
		MaxAreaFactor:  50,
		RuleThickness:  5,
		RuleLength:     30,
		MaxInkRatio:    0.30,
		NearnessFactor: 4,
	}
}

// Detector finds mark regions. The zero value is not usable; call New.
type Detector struct {
	opts Options
}

// New creates a Detector.
func New(opts Options) *Detector {
	return &Detector{opts: opts}
}

// Detect returns merged candidate regions in img, ordered by top then left.
// An empty result means no marks were found.
func (d *Detector) Detect(img image.Image) []Rect {
	rects, _ := d.analyze(Binarize(img))
	return rects
}

// Stats describes the intermediate measurements of one detection.
type Stats struct {
	Components  int     `json:"components"`
	MedianArea  float64 `json:"median_area"`
	StrokeWidth int     `json:"stroke_width"`
	Candidates  int     `json:"candidates"`
}

// Analyze is Detect with the intermediate measurements attached.
func (d *Detector) Analyze(img image.Image) ([]Rect, Stats) {
	return d.analyze(Binarize(img))
}

func (d *Detector) analyze(b *Binary) ([]Rect, Stats) {
	comps := Components(b)
	stats := Stats{Components: len(comps)}
	if len(comps) == 0 {
		return []Rect{}, stats
	}

	median := medianArea(comps)
	stroke := int(math.Sqrt(median))
	stats.MedianArea = median
	stats.StrokeWidth = stroke

	minArea := d.opts.MinAreaFactor * median
	maxArea := d.opts.MaxAreaFactor * median
	thin := d.opts.RuleThickness * float64(stroke)
	long := d.opts.RuleLength * float64(stroke)

	var candidates []Rect
	for _, c := range comps {
		area := float64(c.Area)
		if area < minArea || area > maxArea {
			continue
		}

		w, h := float64(c.Bounds.Width), float64(c.Bounds.Height)
		if (h < thin && w > long) || (w < thin && h > long) {
			continue
		}

		ratio := float64(b.Count(c.Bounds)) / float64(c.Bounds.Area())
		if ratio > d.opts.MaxInkRatio {
			continue
		}

		candidates = append(candidates, c.Bounds)
	}

	stats.Candidates = len(candidates)
	if len(candidates) == 0 {
		return []Rect{}, stats
	}

	nearness := int(d.opts.NearnessFactor * float64(stroke))
	return Merge(candidates, nearness), stats
}

func medianArea(comps []Component) float64 {
	areas := make([]int, len(comps))
	for i, c := range comps {
		areas[i] = c.Area
	}
	slices.Sort(areas)

	mid := len(areas) / 2
	if len(areas)%2 == 1 {
		return float64(areas[mid])
	}
	return float64(areas[mid-1]+areas[mid]) / 2
}
