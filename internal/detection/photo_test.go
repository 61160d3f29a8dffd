package detection

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	pigo "github.com/esimov/pigo/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/docscan-mcp/internal/fusion"
)

var skinTone = color.RGBA{R: 224, G: 172, B: 105, A: 255}

func newPhotoDetector(t *testing.T) *PhotoDetector {
	t.Helper()
	d, err := NewPhotoDetector(DefaultPhotoConfig())
	require.NoError(t, err)
	return d
}

func TestPhotoDetector_Detect(t *testing.T) {
	tests := []struct {
		name  string
		draw  func(img *image.RGBA)
		found bool
		zone  *fusion.Rect
	}{
		{
			name:  "colour portrait",
			draw:  func(img *image.RGBA) { fillRect(img, image.Rect(20, 20, 100, 120), skinTone) },
			found: true,
			zone:  &fusion.Rect{X: 20, Y: 20, W: 80, H: 100},
		},
		{
			name: "grayscale portrait",
			draw: func(img *image.RGBA) {
				for y := 0; y < 100; y++ {
					fillRect(img, image.Rect(150, 50+y, 230, 51+y), color.Gray{Y: uint8(80 + y)})
				}
			},
			found: true,
			zone:  &fusion.Rect{X: 150, Y: 50, W: 80, H: 100},
		},
		{
			name:  "solid black block",
			draw:  func(img *image.RGBA) { fillRect(img, image.Rect(20, 20, 100, 120), color.Black) },
			found: false,
		},
		{
			name:  "saturated blue block",
			draw:  func(img *image.RGBA) { fillRect(img, image.Rect(20, 20, 100, 120), color.RGBA{B: 200, A: 255}) },
			found: false,
		},
		{
			name:  "landscape block",
			draw:  func(img *image.RGBA) { fillRect(img, image.Rect(20, 20, 220, 80), skinTone) },
			found: false,
		},
		{
			name:  "too small",
			draw:  func(img *image.RGBA) { fillRect(img, image.Rect(20, 20, 60, 70), skinTone) },
			found: false,
		},
		{
			name:  "blank page",
			draw:  func(img *image.RGBA) {},
			found: false,
		},
	}

	d := newPhotoDetector(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := newPage(300, 200)
			tt.draw(page)

			res, err := d.Detect(context.Background(), page)
			require.NoError(t, err)
			assert.Equal(t, tt.found, res.Found)
			assert.Equal(t, tt.zone, res.Zone)
		})
	}
}

func TestPhotoDetector_PicksBestBlock(t *testing.T) {
	d := newPhotoDetector(t)

	page := newPage(300, 200)
	fillRect(page, image.Rect(20, 20, 100, 120), color.Black)
	fillRect(page, image.Rect(180, 40, 260, 150), skinTone)

	res, err := d.Detect(context.Background(), page)
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, &fusion.Rect{X: 180, Y: 40, W: 80, H: 110}, res.Zone)
}

func TestPhotoDetector_IgnoresPageBackground(t *testing.T) {
	tests := []struct {
		name  string
		paper color.Color
	}{
		{"manila paper", color.RGBA{R: 235, G: 215, B: 180, A: 255}},
		{"dim grayscale scan", color.Gray{Y: 195}},
	}

	d := newPhotoDetector(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := image.NewRGBA(image.Rect(0, 0, 600, 850))
			fillRect(page, page.Bounds(), tt.paper)
			for y := 100; y < 800; y += 40 {
				fillRect(page, image.Rect(60, y, 540, y+3), color.Black)
			}

			res, err := d.Detect(context.Background(), page)
			require.NoError(t, err)
			assert.False(t, res.Found)
			assert.Nil(t, res.Zone)
		})
	}
}

func TestPhotoDetector_RejectsOversizedBlock(t *testing.T) {
	d := newPhotoDetector(t)

	page := newPage(300, 200)
	fillRect(page, image.Rect(10, 5, 200, 195), skinTone)

	res, err := d.Detect(context.Background(), page)
	require.NoError(t, err)
	assert.False(t, res.Found)
}

func TestTouchesBorder(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)
	assert.False(t, touchesBorder(image.Rect(10, 10, 90, 90), bounds))
	assert.True(t, touchesBorder(image.Rect(0, 10, 90, 90), bounds))
	assert.True(t, touchesBorder(image.Rect(10, 10, 100, 90), bounds))
	assert.True(t, touchesBorder(bounds, bounds))
}

func TestBestFace(t *testing.T) {
	bounds := image.Rect(100, 50, 400, 450)
	dets := []pigo.Detection{
		{Row: 100, Col: 100, Scale: 60, Q: 3},
		{Row: 200, Col: 150, Scale: 80, Q: 9.5},
		{Row: 50, Col: 50, Scale: 40, Q: 6},
	}

	r, ok := bestFace(dets, 5, bounds)
	require.True(t, ok)
	assert.Equal(t, image.Rect(210, 210, 290, 290), r)

	_, ok = bestFace(dets, 10, bounds)
	assert.False(t, ok)

	_, ok = bestFace(nil, 0, bounds)
	assert.False(t, ok)

	// Faces at the edge are clipped to the page.
	r, ok = bestFace([]pigo.Detection{{Row: 10, Col: 10, Scale: 40, Q: 8}}, 5, bounds)
	require.True(t, ok)
	assert.Equal(t, image.Rect(100, 50, 130, 80), r)
}

func TestNewPhotoDetector_Cascade(t *testing.T) {
	cfg := DefaultPhotoConfig()
	cfg.CascadePath = filepath.Join(t.TempDir(), "missing-facefinder")
	_, err := NewPhotoDetector(cfg)
	assert.ErrorContains(t, err, "read face cascade")
}

func TestIsSkinTone(t *testing.T) {
	assert.True(t, isSkinTone(30, 0.5, 0.8))
	assert.True(t, isSkinTone(350, 0.3, 0.6))
	assert.False(t, isSkinTone(120, 0.5, 0.8))
	assert.False(t, isSkinTone(30, 0.05, 0.8))
	assert.False(t, isSkinTone(30, 0.5, 0.1))
}

func TestNewPhotoDetector_Invalid(t *testing.T) {
	cfg := DefaultPhotoConfig()
	cfg.MaxAspect = 0.5
	_, err := NewPhotoDetector(cfg)
	assert.Error(t, err)

	cfg = DefaultPhotoConfig()
	cfg.MaxCoverage = 0
	_, err = NewPhotoDetector(cfg)
	assert.Error(t, err)
}
