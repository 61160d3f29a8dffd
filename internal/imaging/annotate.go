package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/docscan-mcp/internal/fusion"
)

// Annotation palette.
const (
	ColorSignature = "#FF0000"
	ColorPhoto     = "#0000FF"
	ColorChecked   = "#00A000"
	ColorUnchecked = "#FF8C00"
)

// Mark is one box to draw on an annotated document.
type Mark struct {
	Zone  fusion.Rect
	Label string
	Color string // hex, "#RRGGBB"
	Width int    // outline thickness in pixels
}

// DetectionMarks builds the marks for every zone found in in: signature zones
// in red, the photo in blue, checkboxes in green (checked) or orange.
func DetectionMarks(in *fusion.Input) []Mark {
	if in == nil {
		return nil
	}
	var marks []Mark
	if in.Signature != nil {
		for _, z := range in.Signature.Zones {
			marks = append(marks, Mark{Zone: z, Label: "Signature", Color: ColorSignature, Width: 3})
		}
	}
	if in.Photo != nil && in.Photo.Zone != nil {
		marks = append(marks, Mark{Zone: *in.Photo.Zone, Label: "Photo", Color: ColorPhoto, Width: 3})
	}
	if in.Checkboxes != nil {
		for i, cb := range in.Checkboxes.Boxes {
			c, state := ColorUnchecked, "[ ]"
			if cb.Checked {
				c, state = ColorChecked, "[x]"
			}
			marks = append(marks, Mark{
				Zone:  cb.Box,
				Label: fmt.Sprintf("Box %d: %s", i+1, state),
				Color: c,
				Width: 2,
			})
		}
	}
	return marks
}

// Annotate draws marks on a copy of img. Marks are clipped to the image;
// marks that are malformed or entirely outside it are skipped.
func Annotate(img image.Image, marks []Mark) *image.NRGBA {
	canvas := imaging.Clone(img)
	bounds := canvas.Bounds()

	for _, m := range marks {
		// Clone re-bases the canvas at (0,0); shift zones accordingly.
		zone := m.Zone
		zone.X -= img.Bounds().Min.X
		zone.Y -= img.Bounds().Min.Y

		r, ok := zone.Clip(bounds)
		if !ok {
			continue
		}
		c := parseColor(m.Color)
		drawOutline(canvas, r, m.Width, c)
		if m.Label != "" {
			drawText(canvas, r, m.Label, c)
		}
	}
	return canvas
}

// parseColor parses "#RRGGBB"; unparseable input falls back to red.
func parseColor(hex string) color.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{R: 255, A: 255}
	}
	return c
}

func drawOutline(img draw.Image, r image.Rectangle, width int, c color.Color) {
	if width < 1 {
		width = 1
	}
	src := image.NewUniform(c)
	for i := 0; i < width; i++ {
		inner := r.Inset(i)
		if inner.Empty() {
			break
		}
		edges := []image.Rectangle{
			image.Rect(inner.Min.X, inner.Min.Y, inner.Max.X, inner.Min.Y+1),
			image.Rect(inner.Min.X, inner.Max.Y-1, inner.Max.X, inner.Max.Y),
			image.Rect(inner.Min.X, inner.Min.Y, inner.Min.X+1, inner.Max.Y),
			image.Rect(inner.Max.X-1, inner.Min.Y, inner.Max.X, inner.Max.Y),
		}
		for _, e := range edges {
			draw.Draw(img, e, src, image.Point{}, draw.Src)
		}
	}
}

// drawText writes label just above r, or inside its top edge when there is no
// room above.
func drawText(img draw.Image, r image.Rectangle, label string, c color.Color) {
	face := basicfont.Face7x13
	baseline := r.Min.Y - 4
	if baseline-face.Ascent < img.Bounds().Min.Y {
		baseline = r.Min.Y + face.Ascent + 2
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(r.Min.X, baseline),
	}
	d.DrawString(label)
}
