package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMask_CountAndRatio(t *testing.T) {
	m := NewMask(10, 10)
	m.Set(1, 1, true)
	m.Set(2, 1, true)
	m.Set(50, 50, true) // ignored

	assert.True(t, m.At(1, 1))
	assert.False(t, m.At(-1, 0))
	assert.False(t, m.At(50, 50))

	assert.Equal(t, 2, m.Count(image.Rect(0, 0, 10, 10)))
	assert.Equal(t, 1, m.Count(image.Rect(2, 0, 20, 20)))
	assert.InDelta(t, 0.5, m.Ratio(image.Rect(1, 1, 5, 2)), 1e-9)
	assert.Equal(t, 0.0, m.Ratio(image.Rect(20, 20, 30, 30)))
}

func TestGrayscale(t *testing.T) {
	img := solidImage(3, 2, color.White)
	img.Set(0, 0, color.Black)
	sub := img.SubImage(image.Rect(0, 0, 3, 2))

	g := Grayscale(sub)
	assert.Equal(t, image.Rect(0, 0, 3, 2), g.Bounds())
	assert.Equal(t, uint8(0), g.GrayAt(0, 0).Y)
	assert.GreaterOrEqual(t, g.GrayAt(2, 1).Y, uint8(254))
}

func TestInkMask(t *testing.T) {
	img := solidImage(4, 1, color.White)
	img.Set(0, 0, color.Black)
	img.Set(1, 0, color.Gray{Y: 100})
	img.Set(2, 0, color.Gray{Y: 200})

	m := InkMask(img, 180)
	assert.Equal(t, []bool{true, true, false, false}, m.Bits)
}

func TestInkMask_OffsetBounds(t *testing.T) {
	img := solidImage(20, 20, color.White)
	img.Set(12, 12, color.Black)

	m := InkMask(img.SubImage(image.Rect(10, 10, 20, 20)), 128)
	assert.Equal(t, 10, m.Width)
	assert.True(t, m.At(2, 2))
	assert.Equal(t, 1, m.Count(image.Rect(0, 0, 10, 10)))
}

func TestAdaptiveMask(t *testing.T) {
	img := solidImage(60, 60, color.White)
	// Thin line on a white page is ink.
	draw.Draw(img, image.Rect(5, 5, 55, 6), image.NewUniform(color.Black), image.Point{}, draw.Src)

	m := AdaptiveMask(img, 31, 5)
	assert.Equal(t, 50, m.Count(image.Rect(0, 0, 60, 60)))
	assert.True(t, m.At(30, 5))
	assert.False(t, m.At(30, 6))
}

func TestAdaptiveMask_UniformIsBlank(t *testing.T) {
	for _, c := range []color.Color{color.White, color.Black, color.Gray{Y: 128}} {
		m := AdaptiveMask(solidImage(40, 40, c), 31, 5)
		assert.Zero(t, m.Count(image.Rect(0, 0, 40, 40)))
	}
}

func TestAdaptiveMask_Empty(t *testing.T) {
	m := AdaptiveMask(image.NewRGBA(image.Rectangle{}), 31, 5)
	assert.Equal(t, 0, m.Width)
	assert.Empty(t, m.Bits)
}
