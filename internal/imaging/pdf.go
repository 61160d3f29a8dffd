package imaging

import (
	"bytes"
	"image"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rotisserie/eris"
)

// ErrPDFNoRaster is returned for a PDF whose first page embeds no image,
// such as a born-digital form that was never scanned.
var ErrPDFNoRaster = eris.New("pdf first page has no embedded raster")

var pdfMagic = []byte("%PDF-")

func init() {
	// Keep pdfcpu from creating a configuration directory on first use.
	model.ConfigPath = "disable"
}

// decodePDF returns the largest image embedded in the first page of a PDF.
// Scanners store each page as one full-page image, so that image is the page.
func decodePDF(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "read pdf")
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	var (
		payload  []byte
		bestArea int
	)
	digest := func(img model.Image, _ bool, _ int) error {
		if img.Thumb || img.IsImgMask {
			return nil
		}
		area := img.Width * img.Height
		if area <= bestArea {
			return nil
		}
		buf, err := io.ReadAll(img)
		if err != nil {
			return eris.Wrapf(err, "read pdf image %s", img.Name)
		}
		payload, bestArea = buf, area
		return nil
	}
	if err := api.ExtractImages(bytes.NewReader(data), []string{"1"}, digest, conf); err != nil {
		return nil, eris.Wrap(err, "extract pdf page 1 images")
	}
	if payload == nil {
		return nil, ErrPDFNoRaster
	}

	img, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "decode pdf page 1 image")
	}
	return img, nil
}
