package detection

import (
	"context"
	"image"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/ironsheep/docscan-mcp/internal/fusion"
	"github.com/ironsheep/docscan-mcp/internal/imaging"
)

// CheckboxConfig tunes the checkbox detector.
type CheckboxConfig struct {
	// MinSize and MaxSize bound the box side length, exclusive.
	MinSize int
	MaxSize int

	// BlockSize is the side of the adaptive threshold window.
	BlockSize int

	// Offset is subtracted from the local mean before thresholding.
	Offset float64

	// CheckedRatio is the fill ratio above which a box is checked.
	CheckedRatio float64
}

// DefaultCheckboxConfig matches boxes between 20 and 80 pixels.
func DefaultCheckboxConfig() CheckboxConfig {
	return CheckboxConfig{
		MinSize:      20,
		MaxSize:      80,
		BlockSize:    31,
		Offset:       5,
		CheckedRatio: 0.25,
	}
}

// CheckboxDetector finds square-ish boxes on a form and measures how much of
// each is inked.
type CheckboxDetector struct {
	cfg CheckboxConfig
}

// NewCheckboxDetector validates cfg and returns a detector.
func NewCheckboxDetector(cfg CheckboxConfig) (*CheckboxDetector, error) {
	if cfg.MinSize < 0 || cfg.MaxSize <= cfg.MinSize {
		return nil, eris.Errorf("invalid checkbox size range (%d, %d)", cfg.MinSize, cfg.MaxSize)
	}
	if cfg.BlockSize < 3 {
		return nil, eris.Errorf("checkbox block size %d too small", cfg.BlockSize)
	}
	return &CheckboxDetector{cfg: cfg}, nil
}

// Detect returns the checkboxes of img in reading order (top to bottom,
// then left to right).
//
// The page is binarised against its local mean, ink is grouped into
// connected components, and only outermost components within the size
// range are kept. A box's fill ratio is the share of inked pixels inside its
// bounding box, outline included.
func (d *CheckboxDetector) Detect(ctx context.Context, img image.Image) (*fusion.CheckboxResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mask := imaging.AdaptiveMask(img, d.cfg.BlockSize, d.cfg.Offset)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var candidates []component
	for _, c := range findComponents(mask) {
		w, h := c.Bounds.Dx(), c.Bounds.Dy()
		if w > d.cfg.MinSize && w < d.cfg.MaxSize && h > d.cfg.MinSize && h < d.cfg.MaxSize {
			candidates = append(candidates, c)
		}
	}
	candidates = dropNested(candidates)

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].Bounds.Min, candidates[j].Bounds.Min
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	origin := img.Bounds().Min
	boxes := make([]fusion.Checkbox, 0, len(candidates))
	for _, c := range candidates {
		fill := mask.Ratio(c.Bounds)
		boxes = append(boxes, fusion.Checkbox{
			Box:       fusion.RectFrom(c.Bounds.Add(origin)),
			Checked:   fill > d.cfg.CheckedRatio,
			FillRatio: fill,
		})
	}
	return &fusion.CheckboxResult{Boxes: boxes}, nil
}
