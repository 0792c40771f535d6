package marks

import (
	"cmp"
	"slices"
)

// Rect is an axis-aligned box in pixel coordinates.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Right is the exclusive right edge.
func (r Rect) Right() int { return r.Left + r.Width }

// Bottom is the exclusive bottom edge.
func (r Rect) Bottom() int { return r.Top + r.Height }

// Area is width times height.
func (r Rect) Area() int { return r.Width * r.Height }

// Union returns the smallest box containing r and o.
func (r Rect) Union(o Rect) Rect {
	left, top := min(r.Left, o.Left), min(r.Top, o.Top)
	right, bottom := max(r.Right(), o.Right()), max(r.Bottom(), o.Bottom())
	return Rect{Left: left, Top: top, Width: right - left, Height: bottom - top}
}

// Near reports whether o lies within n pixels of r, counting overlap.
// The test expands r on every side, so elongated boxes that share a
// border region are near even when their centers are far apart.
func (r Rect) Near(o Rect, n int) bool {
	return !(r.Right() < o.Left-n ||
		r.Left > o.Right()+n ||
		r.Bottom() < o.Top-n ||
		r.Top > o.Bottom()+n)
}

// Merge repeatedly unions boxes within nearness of each other until no pair
// is near. The result is ordered by top, then left.
func Merge(rects []Rect, nearness int) []Rect {
	out := slices.Clone(rects)

	for merged := true; merged; {
		merged = false
		for i := 0; i < len(out) && !merged; i++ {
			for j := i + 1; j < len(out); j++ {
				if out[i].Near(out[j], nearness) {
					out[i] = out[i].Union(out[j])
					out = slices.Delete(out, j, j+1)
					merged = true
					break
				}
			}
		}
	}

	slices.SortFunc(out, func(a, b Rect) int {
		return cmp.Or(cmp.Compare(a.Top, b.Top), cmp.Compare(a.Left, b.Left))
	})
	return out
}
