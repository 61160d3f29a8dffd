package detection

import (
	"context"
	"image"
	"image/color"
	"os"

	pigo "github.com/esimov/pigo/core"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"

	"github.com/ironsheep/docscan-mcp/internal/fusion"
	"github.com/ironsheep/docscan-mcp/internal/imaging"
)

// Pixels lighter than this are page background.
const photoBackgroundLevel = 230

// Candidates whose mean saturation is below this are treated as grayscale.
const grayscaleSaturation = 0.08

// PhotoConfig tunes the identity photo detector.
type PhotoConfig struct {
	// MinSize is the minimum side length of a photo block.
	MinSize int

	// MinAspect and MaxAspect bound height/width of a photo block.
	MinAspect float64
	MaxAspect float64

	// MinScore is the minimum block score for a photo to be reported.
	MinScore float64

	// MaxCoverage is the largest share of the page a photo block may cover.
	MaxCoverage float64

	// CascadePath names a pigo face cascade file. When set, the detector
	// looks for faces instead of scoring blocks.
	CascadePath string

	// MinFaceQuality is the lowest pigo detection score accepted as a face.
	MinFaceQuality float64
}

// DefaultPhotoConfig matches portrait blocks of at least 60 pixels.
func DefaultPhotoConfig() PhotoConfig {
	return PhotoConfig{
		MinSize:        60,
		MinAspect:      0.9,
		MaxAspect:      1.8,
		MinScore:       0.15,
		MaxCoverage:    0.5,
		MinFaceQuality: 5,
	}
}

// PhotoDetector locates an identity photo on a document page.
//
// With a face cascade loaded, the zone is the best face pigo finds.
// Otherwise candidates are solid non-background blocks with a portrait shape
// that stay clear of the page border. Each is scored by its share of
// skin-tone pixels; for grayscale scans, where hue carries nothing, by its
// share of mid-tone pixels instead. Printed text and ruled frames are mostly
// pure black and white and score low on both.
type PhotoDetector struct {
	cfg  PhotoConfig
	face *pigo.Pigo
}

// NewPhotoDetector validates cfg and returns a detector. It loads the face
// cascade when cfg.CascadePath is set.
func NewPhotoDetector(cfg PhotoConfig) (*PhotoDetector, error) {
	if cfg.MinAspect <= 0 || cfg.MaxAspect < cfg.MinAspect {
		return nil, eris.Errorf("invalid photo aspect range [%v, %v]", cfg.MinAspect, cfg.MaxAspect)
	}
	if cfg.MaxCoverage <= 0 || cfg.MaxCoverage > 1 {
		return nil, eris.Errorf("invalid photo max coverage %v", cfg.MaxCoverage)
	}

	d := &PhotoDetector{cfg: cfg}
	if cfg.CascadePath == "" {
		return d, nil
	}
	data, err := os.ReadFile(cfg.CascadePath)
	if err != nil {
		return nil, eris.Wrapf(err, "read face cascade %s", cfg.CascadePath)
	}
	d.face, err = pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, eris.Wrapf(err, "unpack face cascade %s", cfg.CascadePath)
	}
	return d, nil
}

// Detect returns the photo zone of img. Zone is set only when a photo was
// found.
func (d *PhotoDetector) Detect(ctx context.Context, img image.Image) (*fusion.PhotoResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.face != nil {
		return d.detectFace(img), nil
	}

	bounds := img.Bounds()
	mask := imaging.InkMask(img, photoBackgroundLevel)
	origin := bounds.Min
	maxArea := d.cfg.MaxCoverage * float64(bounds.Dx()*bounds.Dy())

	var (
		best      image.Rectangle
		bestScore = -1.0
	)
	for _, c := range findComponents(mask) {
		w, h := c.Bounds.Dx(), c.Bounds.Dy()
		if w < d.cfg.MinSize || h < d.cfg.MinSize {
			continue
		}
		aspect := float64(h) / float64(w)
		if aspect < d.cfg.MinAspect || aspect > d.cfg.MaxAspect {
			continue
		}
		if float64(w*h) > maxArea {
			continue
		}
		r := c.Bounds.Add(origin)
		if touchesBorder(r, bounds) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if s := blockScore(img, r); s > bestScore {
			best, bestScore = r, s
		}
	}

	if bestScore < d.cfg.MinScore {
		return &fusion.PhotoResult{Found: false}, nil
	}
	zone := fusion.RectFrom(best)
	return &fusion.PhotoResult{Found: true, Zone: &zone}, nil
}

// touchesBorder reports whether r reaches an edge of bounds. Tinted paper and
// dim scans turn the page background itself into one huge component.
func touchesBorder(r, bounds image.Rectangle) bool {
	return r.Min.X <= bounds.Min.X || r.Min.Y <= bounds.Min.Y ||
		r.Max.X >= bounds.Max.X || r.Max.Y >= bounds.Max.Y
}

// detectFace runs the pigo cascade over img and reports the best face.
func (d *PhotoDetector) detectFace(img image.Image) *fusion.PhotoResult {
	bounds := img.Bounds()
	gray := imaging.Grayscale(img)
	cols, rows := bounds.Dx(), bounds.Dy()

	pixels := make([]uint8, cols*rows)
	for y := 0; y < rows; y++ {
		copy(pixels[y*cols:(y+1)*cols], gray.Pix[y*gray.Stride:y*gray.Stride+cols])
	}

	params := pigo.CascadeParams{
		MinSize:     max(20, d.cfg.MinSize/2),
		MaxSize:     min(cols, rows),
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}
	dets := d.face.ClusterDetections(d.face.RunCascade(params, 0), 0.2)

	r, ok := bestFace(dets, d.cfg.MinFaceQuality, bounds)
	if !ok {
		return &fusion.PhotoResult{Found: false}
	}
	zone := fusion.RectFrom(r)
	return &fusion.PhotoResult{Found: true, Zone: &zone}
}

// bestFace returns the box of the highest quality detection at or above
// minQuality, clipped to bounds. Detections are relative to bounds.Min.
func bestFace(dets []pigo.Detection, minQuality float64, bounds image.Rectangle) (image.Rectangle, bool) {
	var (
		best  pigo.Detection
		found bool
	)
	for _, det := range dets {
		if float64(det.Q) < minQuality {
			continue
		}
		if !found || det.Q > best.Q {
			best, found = det, true
		}
	}
	if !found {
		return image.Rectangle{}, false
	}

	half := best.Scale / 2
	r := image.Rect(best.Col-half, best.Row-half, best.Col-half+best.Scale, best.Row-half+best.Scale).
		Add(bounds.Min).
		Intersect(bounds)
	return r, !r.Empty()
}

// blockScore scores r as a photograph in [0,1].
func blockScore(img image.Image, r image.Rectangle) float64 {
	var (
		total, skin, mid int
		satSum           float64
	)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			px := img.At(x, y)
			c, ok := colorful.MakeColor(px)
			if !ok {
				continue
			}
			total++

			h, s, v := c.Hsv()
			satSum += s
			if isSkinTone(h, s, v) {
				skin++
			}
			if g := color.GrayModel.Convert(px).(color.Gray).Y; g >= 60 && g <= 200 {
				mid++
			}
		}
	}
	if total == 0 {
		return 0
	}
	if satSum/float64(total) < grayscaleSaturation {
		return float64(mid) / float64(total)
	}
	return float64(skin) / float64(total)
}

// isSkinTone is a broad HSV skin test covering light to dark complexions.
func isSkinTone(h, s, v float64) bool {
	return (h <= 50 || h >= 340) && s >= 0.15 && s <= 0.75 && v >= 0.30
}
