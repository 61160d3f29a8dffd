package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"math"
	"os"

	"github.com/disintegration/imaging"
	"github.com/rotisserie/eris"

	"github.com/ironsheep/docscan-mcp/internal/fusion"
)

// EncodedImage contains a PNG-encoded raster ready to be returned to a client.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// CropZone extracts zone from img. The zone is clipped to the image bounds;
// a zone that lies entirely outside the image is an error.
func CropZone(img image.Image, zone fusion.Rect) (*image.NRGBA, error) {
	clipped, ok := zone.Clip(img.Bounds())
	if !ok {
		return nil, eris.Errorf("zone %s outside image bounds %v", zone, img.Bounds())
	}
	return imaging.Crop(img, clipped), nil
}

// BottomBand returns the full-width band covering the bottom fraction of img.
func BottomBand(img image.Image, fraction float64) fusion.Rect {
	b := img.Bounds()
	if fraction <= 0 || fraction > 1 {
		fraction = 1
	}
	height := int(math.Round(float64(b.Dy()) * fraction))
	return fusion.Rect{X: b.Min.X, Y: b.Max.Y - height, W: b.Dx(), H: height}
}

// FitWithin downscales img so that neither side exceeds maxDim. Images that
// already fit are returned unchanged.
func FitWithin(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	if maxDim <= 0 || (b.Dx() <= maxDim && b.Dy() <= maxDim) {
		return img
	}
	return imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
}

// EncodePNG encodes img as base64 PNG.
func EncodePNG(img image.Image) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, eris.Wrap(err, "encode png")
	}

	return &EncodedImage{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// SavePNG writes img to path as PNG, creating or truncating the file.
func SavePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := imaging.Encode(f, img, imaging.PNG); err != nil {
		f.Close()
		return eris.Wrapf(err, "encode %s", path)
	}
	return eris.Wrapf(f.Close(), "close %s", path)
}
