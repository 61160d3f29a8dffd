package detection

import (
	"image"

	"github.com/ironsheep/docscan-mcp/internal/imaging"
)

// component is a group of 8-connected ink pixels. Bounds is in mask
// coordinates with an exclusive max corner.
type component struct {
	Bounds image.Rectangle
	Pixels int
}

// findComponents groups the ink pixels of mask into 8-connected components.
// Components are returned in scan order of their first pixel.
func findComponents(mask *imaging.Mask) []component {
	visited := make([]bool, len(mask.Bits))
	var comps []component

	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			i := y*mask.Width + x
			if mask.Bits[i] && !visited[i] {
				comps = append(comps, floodFill(mask, visited, x, y))
			}
		}
	}
	return comps
}

// floodFill collects the component containing (startX, startY).
//
// Uses an explicit stack rather than recursion; a scanned page can hold
// components with hundreds of thousands of pixels.
func floodFill(mask *imaging.Mask, visited []bool, startX, startY int) component {
	stack := []image.Point{{X: startX, Y: startY}}
	minX, minY := startX, startY
	maxX, maxY := startX, startY
	n := 0

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= mask.Width || p.Y < 0 || p.Y >= mask.Height {
			continue
		}
		i := p.Y*mask.Width + p.X
		if visited[i] || !mask.Bits[i] {
			continue
		}
		visited[i] = true
		n++

		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, image.Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}

	return component{
		Bounds: image.Rect(minX, minY, maxX+1, maxY+1),
		Pixels: n,
	}
}

// dropNested removes every component whose bounds lie inside the bounds of
// another component in comps. Only outermost components remain.
func dropNested(comps []component) []component {
	out := make([]component, 0, len(comps))
	for i, c := range comps {
		nested := false
		for j, o := range comps {
			if i == j || c.Bounds == o.Bounds {
				continue
			}
			if c.Bounds.In(o.Bounds) {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, c)
		}
	}
	return out
}
