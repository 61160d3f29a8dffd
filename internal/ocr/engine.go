package ocr

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"slices"
	"strings"

	"github.com/anthonynsimon/bild/blur"
	"github.com/otiai10/gosseract/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ironsheep/docscan-mcp/internal/fusion"
	"github.com/ironsheep/docscan-mcp/internal/imaging"
)

// Config selects the Tesseract language data and input size.
type Config struct {
	// Language is a Tesseract language code, or several joined with "+".
	Language string

	// TessdataPrefix overrides the directory holding *.traineddata files.
	// Empty uses the system installation.
	TessdataPrefix string

	// MaxDimension caps the longest side of the raster handed to Tesseract.
	// Zero disables downscaling.
	MaxDimension int
}

// DefaultLanguage reads English and Arabic.
const DefaultLanguage = "eng+ara"

// DefaultConfig reads DefaultLanguage at up to A4 300 DPI.
func DefaultConfig() Config {
	return Config{Language: DefaultLanguage, MaxDimension: 2480}
}

// Engine is a long-lived Tesseract handle.
//
// Tesseract's API object is not reentrant, so calls on one Engine are
// serialised. Create one Engine per worker for parallel recognition.
//
// A recognition call cannot be interrupted once Tesseract runs. When a
// caller gives up on a slow page, the call still holds the handle until it
// finishes; later calls wait for it only as long as their own context
// allows and then fail with the context error.
type Engine struct {
	sem    chan struct{}
	client *gosseract.Client
	cfg    Config
	langs  []string
}

// NewEngine initialises Tesseract with cfg.
//
// Requested languages without installed data are dropped with a warning so
// that a default covering several scripts still starts on a machine with
// only English data. It is an error when none remain. With a custom
// TessdataPrefix the list is taken as given.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	langs := splitLanguages(cfg.Language)

	if cfg.TessdataPrefix == "" {
		if installed, err := gosseract.GetAvailableLanguages(); err == nil {
			var missing []string
			langs, missing = resolveLanguages(langs, installed)
			if len(missing) > 0 {
				zap.L().Warn("ocr: language data not installed",
					zap.Strings("missing", missing),
					zap.Strings("using", langs),
				)
			}
			if len(langs) == 0 {
				return nil, eris.Errorf("no installed tesseract data for %s", cfg.Language)
			}
		}
	}

	client := gosseract.NewClient()
	if cfg.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(cfg.TessdataPrefix); err != nil {
			client.Close()
			return nil, eris.Wrapf(err, "set tessdata prefix %s", cfg.TessdataPrefix)
		}
	}
	if err := client.SetLanguage(langs...); err != nil {
		client.Close()
		return nil, eris.Wrapf(err, "set language %s", cfg.Language)
	}
	return &Engine{
		sem:    make(chan struct{}, 1),
		client: client,
		cfg:    cfg,
		langs:  langs,
	}, nil
}

// splitLanguages parses a "+" separated language list.
func splitLanguages(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "+") {
		if l = strings.TrimSpace(l); l != "" && !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	return out
}

// resolveLanguages splits requested into installed and missing languages,
// keeping the requested order.
func resolveLanguages(requested, installed []string) (kept, missing []string) {
	kept = []string{}
	for _, l := range requested {
		if slices.Contains(installed, l) {
			kept = append(kept, l)
		} else {
			missing = append(missing, l)
		}
	}
	return kept, missing
}

// ActiveLanguages returns the languages the engine reads.
func (e *Engine) ActiveLanguages() []string {
	return slices.Clone(e.langs)
}

// Close releases the Tesseract handle, waiting for a running call.
func (e *Engine) Close() error {
	e.sem <- struct{}{}
	defer func() { <-e.sem }()
	return e.client.Close()
}

// acquire takes the handle or gives up when ctx ends first.
func (e *Engine) acquire(ctx context.Context) error {
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) release() {
	<-e.sem
}

// Version returns the linked Tesseract version.
func (e *Engine) Version() string {
	return gosseract.Version()
}

// Recognize reads img and returns its text with the mean word confidence.
// An image without legible words yields an empty text and zero confidence.
func (e *Engine) Recognize(ctx context.Context, img image.Image) (*fusion.TextResult, error) {
	page, err := e.Read(ctx, img)
	if err != nil {
		return nil, err
	}
	return page.Result(), nil
}

// RecognizeZone reads only zone of img. Word boxes stay in img coordinates.
func (e *Engine) RecognizeZone(ctx context.Context, img image.Image, zone fusion.Rect) (*fusion.TextPage, error) {
	crop, err := imaging.CropZone(img, zone)
	if err != nil {
		return nil, err
	}
	page, err := e.Read(ctx, crop)
	if err != nil {
		return nil, err
	}
	clipped, _ := zone.Clip(img.Bounds())
	for i := range page.Words {
		page.Words[i].Box.X += clipped.Min.X
		page.Words[i].Box.Y += clipped.Min.Y
	}
	return page, nil
}

// Read runs recognition on img and returns text, confidence and word boxes.
//
// Tesseract itself cannot be interrupted; ctx bounds the wait for the
// handle and is checked again after recognition.
func (e *Engine) Read(ctx context.Context, img image.Image) (*fusion.TextPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prepared, scale := Preprocess(img, e.cfg.MaxDimension)
	var buf bytes.Buffer
	if err := png.Encode(&buf, prepared); err != nil {
		return nil, eris.Wrap(err, "encode ocr input")
	}

	if err := e.acquire(ctx); err != nil {
		return nil, err
	}
	defer e.release()

	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, eris.Wrap(err, "set image")
	}
	text, err := e.client.Text()
	if err != nil {
		return nil, eris.Wrap(err, "recognize text")
	}
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, eris.Wrap(err, "word boxes")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return summarize(text, boxes, scale, img.Bounds().Min), nil
}

// Preprocess prepares img for Tesseract: downscale to maxDim, grayscale and
// a light blur against scanner speckle. The second result is the factor
// mapping prepared coordinates back to img.
func Preprocess(img image.Image, maxDim int) (image.Image, float64) {
	fitted := imaging.FitWithin(img, maxDim)
	scale := 1.0
	if w := fitted.Bounds().Dx(); w > 0 {
		scale = float64(img.Bounds().Dx()) / float64(w)
	}
	return blur.Gaussian(imaging.Grayscale(fitted), 0.5), scale
}

// summarize builds a TextPage from raw Tesseract output. Confidence is the mean
// over non-empty words, on a 0-100 scale.
func summarize(text string, boxes []gosseract.BoundingBox, scale float64, origin image.Point) *fusion.TextPage {
	page := &fusion.TextPage{Text: strings.TrimSpace(text), Words: []fusion.Word{}}

	var sum float64
	for _, b := range boxes {
		w := strings.TrimSpace(b.Word)
		if w == "" {
			continue
		}
		sum += b.Confidence
		page.Words = append(page.Words, fusion.Word{
			Text:       w,
			Confidence: b.Confidence,
			Box: fusion.Rect{
				X: origin.X + int(float64(b.Box.Min.X)*scale),
				Y: origin.Y + int(float64(b.Box.Min.Y)*scale),
				W: int(float64(b.Box.Dx()) * scale),
				H: int(float64(b.Box.Dy()) * scale),
			},
		})
	}

	if len(page.Words) == 0 {
		return &fusion.TextPage{Text: "", Confidence: 0, Words: []fusion.Word{}}
	}
	page.Confidence = sum / float64(len(page.Words))
	return page
}

// Languages lists the language data installed for Tesseract.
func Languages() ([]string, error) {
	langs, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return nil, eris.Wrap(err, "list tesseract languages")
	}
	return langs, nil
}
