package detection

import (
	"context"
	"image"

	"github.com/rotisserie/eris"

	"github.com/ironsheep/docscan-mcp/internal/fusion"
	"github.com/ironsheep/docscan-mcp/internal/imaging"
)

// Signature detection modes.
const (
	// SignatureModeRatio reports the measured ink ratio of the zone.
	SignatureModeRatio = "ratio"

	// SignatureModePresence reports only whether ink was found.
	SignatureModePresence = "presence"
)

// SignatureConfig tunes the signature detector.
type SignatureConfig struct {
	// Mode is SignatureModeRatio or SignatureModePresence.
	Mode string

	// ZoneFraction is the share of the page height, measured from the
	// bottom, that is searched for a signature.
	ZoneFraction float64

	// InkLevel is the gray level under which a pixel counts as ink.
	InkLevel uint8

	// PresenceRatio is the ink ratio above which a signature is present.
	PresenceRatio float64
}

// DefaultSignatureConfig searches the bottom 30% of the page in ratio mode.
func DefaultSignatureConfig() SignatureConfig {
	return SignatureConfig{
		Mode:          SignatureModeRatio,
		ZoneFraction:  0.30,
		InkLevel:      180,
		PresenceRatio: 0.005,
	}
}

// SignatureDetector looks for handwriting in the signature zone of a page.
type SignatureDetector struct {
	cfg SignatureConfig
}

// NewSignatureDetector returns a detector using cfg. An unknown mode is an
// error.
func NewSignatureDetector(cfg SignatureConfig) (*SignatureDetector, error) {
	switch cfg.Mode {
	case "":
		cfg.Mode = SignatureModeRatio
	case SignatureModeRatio, SignatureModePresence:
	default:
		return nil, eris.Errorf("unknown signature mode %q", cfg.Mode)
	}
	if cfg.ZoneFraction <= 0 || cfg.ZoneFraction > 1 {
		return nil, eris.Errorf("signature zone fraction %v outside (0,1]", cfg.ZoneFraction)
	}
	return &SignatureDetector{cfg: cfg}, nil
}

// Zones returns the candidate signature zones of img: one full-width band at
// the bottom of the page.
func (d *SignatureDetector) Zones(img image.Image) []fusion.Rect {
	zone := imaging.BottomBand(img, d.cfg.ZoneFraction)
	if zone.Empty() {
		return nil
	}
	return []fusion.Rect{zone}
}

// CheckPresence reports whether the first of zones carries enough ink to
// count as signed. Additional zones are ignored.
func (d *SignatureDetector) CheckPresence(img image.Image, zones []fusion.Rect) bool {
	if len(zones) == 0 {
		return false
	}
	ratio, err := d.InkRatio(img, zones[0])
	if err != nil {
		return false
	}
	return ratio > d.cfg.PresenceRatio
}

// InkRatio returns the fraction of pixels of zone darker than the ink level.
func (d *SignatureDetector) InkRatio(img image.Image, zone fusion.Rect) (float64, error) {
	crop, err := imaging.CropZone(img, zone)
	if err != nil {
		return 0, eris.Wrap(err, "signature zone")
	}
	mask := imaging.InkMask(crop, d.cfg.InkLevel)
	return mask.Ratio(image.Rect(0, 0, mask.Width, mask.Height)), nil
}

// Detect runs the configured mode. In ratio mode the result carries a
// fusion.SignatureRatio signal; in presence mode a fusion.SignaturePresence.
func (d *SignatureDetector) Detect(ctx context.Context, img image.Image) (*fusion.SignatureResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	zones := d.Zones(img)
	if len(zones) == 0 {
		return nil, eris.New("image too small for a signature zone")
	}

	if d.cfg.Mode == SignatureModePresence {
		return fusion.NewSignaturePresence(d.CheckPresence(img, zones), zones), nil
	}

	ratio, err := d.InkRatio(img, zones[0])
	if err != nil {
		return nil, err
	}
	return fusion.NewSignatureRatio(ratio > d.cfg.PresenceRatio, zones, ratio), nil
}
