package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/docscan-mcp/internal/fusion"
)

func TestCropZone(t *testing.T) {
	img := solidImage(100, 80, color.White)
	img.Set(15, 25, color.Black)

	tests := []struct {
		name    string
		zone    fusion.Rect
		want    image.Rectangle
		wantErr bool
	}{
		{"inside", fusion.Rect{X: 10, Y: 20, W: 30, H: 10}, image.Rect(0, 0, 30, 10), false},
		{"clipped", fusion.Rect{X: 90, Y: 70, W: 50, H: 50}, image.Rect(0, 0, 10, 10), false},
		{"outside", fusion.Rect{X: 200, Y: 0, W: 10, H: 10}, image.Rectangle{}, true},
		{"malformed", fusion.Rect{X: -1, Y: 0, W: 10, H: 10}, image.Rectangle{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CropZone(img, tt.zone)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Bounds())
		})
	}

	crop, err := CropZone(img, fusion.Rect{X: 10, Y: 20, W: 30, H: 10})
	require.NoError(t, err)
	r, g, b, _ := crop.At(5, 5).RGBA()
	assert.Zero(t, r+g+b)
}

func TestBottomBand(t *testing.T) {
	img := solidImage(200, 100, color.White)

	assert.Equal(t, fusion.Rect{X: 0, Y: 70, W: 200, H: 30}, BottomBand(img, 0.30))
	assert.Equal(t, fusion.Rect{X: 0, Y: 0, W: 200, H: 100}, BottomBand(img, 1))
	assert.Equal(t, fusion.Rect{X: 0, Y: 0, W: 200, H: 100}, BottomBand(img, 0))

	sub := img.SubImage(image.Rect(50, 50, 150, 100))
	assert.Equal(t, fusion.Rect{X: 50, Y: 85, W: 100, H: 15}, BottomBand(sub, 0.30))
}

func TestFitWithin(t *testing.T) {
	img := solidImage(400, 200, color.White)

	same := FitWithin(img, 500)
	assert.Same(t, img, same)
	assert.Same(t, img, FitWithin(img, 0))

	small := FitWithin(img, 100)
	assert.Equal(t, 100, small.Bounds().Dx())
	assert.Equal(t, 50, small.Bounds().Dy())
}

func TestEncodePNG(t *testing.T) {
	img := solidImage(12, 7, color.Black)

	enc, err := EncodePNG(img)
	require.NoError(t, err)
	assert.Equal(t, 12, enc.Width)
	assert.Equal(t, 7, enc.Height)
	assert.Equal(t, "image/png", enc.MimeType)

	raw, err := base64.StdEncoding.DecodeString(enc.ImageBase64)
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 12, 7), decoded.Bounds())
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, SavePNG(solidImage(12, 7, color.Black), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 12, 7), img.Bounds())
}

func TestSavePNG_BadPath(t *testing.T) {
	err := SavePNG(solidImage(2, 2, color.Black), filepath.Join(t.TempDir(), "missing", "out.png"))
	assert.Error(t, err)
}
