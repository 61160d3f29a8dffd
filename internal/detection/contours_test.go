package detection

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/docscan-mcp/internal/imaging"
)

// newPage returns a white page.
func newPage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

// fillRect paints r with c.
func fillRect(img draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// drawSquare draws a 1px black square outline covering size x size pixels
// with its top-left corner at (x, y).
func drawSquare(img draw.Image, x, y, size int) {
	for i := 0; i < size; i++ {
		img.Set(x+i, y, color.Black)
		img.Set(x+i, y+size-1, color.Black)
		img.Set(x, y+i, color.Black)
		img.Set(x+size-1, y+i, color.Black)
	}
}

func TestFindComponents(t *testing.T) {
	m := imaging.NewMask(20, 10)
	// Diagonal run: one 8-connected component.
	for i := 0; i < 4; i++ {
		m.Set(i, i, true)
	}
	// Separate 3x2 block.
	for y := 5; y < 7; y++ {
		for x := 10; x < 13; x++ {
			m.Set(x, y, true)
		}
	}

	comps := findComponents(m)
	require.Len(t, comps, 2)

	assert.Equal(t, image.Rect(0, 0, 4, 4), comps[0].Bounds)
	assert.Equal(t, 4, comps[0].Pixels)
	assert.Equal(t, image.Rect(10, 5, 13, 7), comps[1].Bounds)
	assert.Equal(t, 6, comps[1].Pixels)
}

func TestFindComponents_Empty(t *testing.T) {
	assert.Empty(t, findComponents(imaging.NewMask(5, 5)))
	assert.Empty(t, findComponents(imaging.NewMask(0, 0)))
}

func TestDropNested(t *testing.T) {
	comps := []component{
		{Bounds: image.Rect(0, 0, 50, 50)},
		{Bounds: image.Rect(10, 10, 20, 20)},
		{Bounds: image.Rect(60, 0, 80, 20)},
	}

	got := dropNested(comps)
	require.Len(t, got, 2)
	assert.Equal(t, image.Rect(0, 0, 50, 50), got[0].Bounds)
	assert.Equal(t, image.Rect(60, 0, 80, 20), got[1].Bounds)
}
