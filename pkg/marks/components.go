package marks

// Component is one 8-connected foreground region.
type Component struct {
	Area   int
	Bounds Rect
}

// Components labels the 8-connected foreground regions of b in row-major
// discovery order.
func Components(b *Binary) []Component {
	seen := make([]bool, len(b.Pix))
	var comps []Component
	var stack []int

	for start, on := range b.Pix {
		if !on || seen[start] {
			continue
		}

		seen[start] = true
		stack = append(stack[:0], start)

		sx, sy := start%b.Width, start/b.Width
		minX, minY, maxX, maxY := sx, sy, sx, sy
		area := 0

		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			area++

			x, y := p%b.Width, p/b.Width
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if !b.At(nx, ny) {
						continue
					}
					n := ny*b.Width + nx
					if !seen[n] {
						seen[n] = true
						stack = append(stack, n)
					}
				}
			}
		}

		comps = append(comps, Component{
			Area: area,
			Bounds: Rect{
				Left:   minX,
				Top:    minY,
				Width:  maxX - minX + 1,
				Height: maxY - minY + 1,
			},
		})
	}

	return comps
}
