package pipeline

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/docscan-mcp/internal/fusion"
	"github.com/ironsheep/docscan-mcp/internal/imaging"
)

// Detectors is the set of adapters an Analyzer runs. A nil field is reported
// as a "not configured" pipeline error and its input stays absent.
type Detectors struct {
	Text      Detector[fusion.TextResult]
	Signature Detector[fusion.SignatureResult]
	Photo     Detector[fusion.PhotoResult]
	Checkbox  Detector[fusion.CheckboxResult]
}

// Options controls how an Analyzer schedules its detectors.
type Options struct {
	// Parallel runs the detectors concurrently.
	Parallel bool

	// Timeout bounds each detector run. Zero means no limit.
	Timeout time.Duration

	// Fusion is the default document policy.
	Fusion fusion.Config
}

// DefaultOptions runs detectors in parallel with a 30s budget each.
func DefaultOptions() Options {
	return Options{
		Parallel: true,
		Timeout:  30 * time.Second,
		Fusion:   fusion.DefaultConfig(),
	}
}

// Analysis is the full outcome of analysing one document.
type Analysis struct {
	Source string `json:"source,omitempty"`
	Width  int    `json:"width"`
	Height int    `json:"height"`

	Text       *fusion.TextResult      `json:"text,omitempty"`
	Signature  *fusion.SignatureResult `json:"signature,omitempty"`
	Photo      *fusion.PhotoResult     `json:"photo,omitempty"`
	Checkboxes *fusion.CheckboxResult  `json:"checkboxes,omitempty"`

	// Fusion is nil only when fusion never completed.
	Fusion *fusion.Output `json:"fusion,omitempty"`

	// Errors lists pipeline failures in detector order.
	Errors []DetectorError `json:"errors"`

	// Durations holds each detector's wall time in milliseconds.
	Durations map[string]int64 `json:"durations_ms"`

	AnalyzedAt time.Time `json:"analyzed_at"`
}

// Input returns the fusion input carried by the analysis.
func (a *Analysis) Input() *fusion.Input {
	return &fusion.Input{
		Text:       a.Text,
		Signature:  a.Signature,
		Photo:      a.Photo,
		Checkboxes: a.Checkboxes,
	}
}

// Refuse recomputes the fusion output under cfg without re-running the
// detectors.
func (a *Analysis) Refuse(cfg fusion.Config) {
	out := fusion.Fuse(a.Input(), cfg)
	a.Fusion = &out
}

// Analyzer runs the detectors on a page and fuses their results. It is safe
// for concurrent use when its detectors are.
type Analyzer struct {
	detectors Detectors
	opts      Options
	cache     *imaging.ImageCache
}

// NewAnalyzer returns an Analyzer over d.
func NewAnalyzer(d Detectors, opts Options) *Analyzer {
	return &Analyzer{
		detectors: d,
		opts:      opts,
		cache:     imaging.NewImageCache(),
	}
}

// FusionConfig returns the default document policy.
func (a *Analyzer) FusionConfig() fusion.Config {
	return a.opts.Fusion
}

// Configured reports which detectors are wired, keyed by detector name.
func (a *Analyzer) Configured() map[string]bool {
	return map[string]bool{
		DetectorOCR:       a.detectors.Text != nil,
		DetectorSignature: a.detectors.Signature != nil,
		DetectorPhoto:     a.detectors.Photo != nil,
		DetectorCheckbox:  a.detectors.Checkbox != nil,
	}
}

// Cache returns the raster cache used by AnalyzeFile.
func (a *Analyzer) Cache() *imaging.ImageCache {
	return a.cache
}

// AnalyzeFile loads path and analyses it under cfg. Only a load failure is
// returned as an error; detector failures are recorded in the Analysis.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string, cfg fusion.Config) (*Analysis, error) {
	doc, err := a.cache.Load(path)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load document")
	}
	res := a.AnalyzeWith(ctx, doc.Image, cfg)
	res.Source = filepath.Base(path)
	return res, nil
}

// Analyze analyses img under the default policy.
func (a *Analyzer) Analyze(ctx context.Context, img image.Image) *Analysis {
	return a.AnalyzeWith(ctx, img, a.opts.Fusion)
}

// AnalyzeWith analyses img under cfg.
func (a *Analyzer) AnalyzeWith(ctx context.Context, img image.Image, cfg fusion.Config) *Analysis {
	log := zap.L().With(zap.Bool("parallel", a.opts.Parallel))
	b := img.Bounds()

	var (
		text      Result[fusion.TextResult]
		signature Result[fusion.SignatureResult]
		photo     Result[fusion.PhotoResult]
		checkbox  Result[fusion.CheckboxResult]
		durations [4]time.Duration
	)

	timed := func(slot int, name string, fn func()) func() {
		return func() {
			start := time.Now()
			fn()
			durations[slot] = time.Since(start)
			log.Debug("pipeline: detector finished",
				zap.String("detector", name),
				zap.Duration("duration", durations[slot]),
			)
		}
	}

	steps := []func(){
		timed(0, DetectorOCR, func() {
			text = runDetector(ctx, DetectorOCR, a.detectors.Text, img, a.opts.Timeout)
		}),
		timed(1, DetectorSignature, func() {
			signature = runDetector(ctx, DetectorSignature, a.detectors.Signature, img, a.opts.Timeout)
		}),
		timed(2, DetectorPhoto, func() {
			photo = runDetector(ctx, DetectorPhoto, a.detectors.Photo, img, a.opts.Timeout)
		}),
		timed(3, DetectorCheckbox, func() {
			checkbox = runDetector(ctx, DetectorCheckbox, a.detectors.Checkbox, img, a.opts.Timeout)
		}),
	}

	if a.opts.Parallel {
		var g errgroup.Group
		for _, step := range steps {
			g.Go(func() error {
				step()
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for _, step := range steps {
			step()
		}
	}

	res := &Analysis{
		Width:      b.Dx(),
		Height:     b.Dy(),
		Text:       text.Value,
		Signature:  signature.Value,
		Photo:      photo.Value,
		Checkboxes: checkbox.Value,
		Errors:     []DetectorError{},
		Durations:  make(map[string]int64, len(durations)),
		AnalyzedAt: time.Now().UTC(),
	}
	for i, name := range []string{DetectorOCR, DetectorSignature, DetectorPhoto, DetectorCheckbox} {
		res.Durations[name] = durations[i].Milliseconds()
	}
	for _, e := range []*DetectorError{text.Err, signature.Err, photo.Err, checkbox.Err} {
		if e != nil {
			log.Warn("pipeline: detector failed",
				zap.String("detector", e.Detector),
				zap.String("error", e.Message),
			)
			res.Errors = append(res.Errors, *e)
		}
	}

	out, ferr := safeFuse(res.Input(), cfg)
	if ferr != nil {
		log.Error("pipeline: fusion failed", zap.String("error", ferr.Message))
		res.Errors = append(res.Errors, *ferr)
	} else {
		res.Fusion = out
	}

	log.Info("pipeline: analysis complete",
		zap.Int("width", res.Width),
		zap.Int("height", res.Height),
		zap.Int("errors", len(res.Errors)),
		zap.Float64("score", scoreOf(res.Fusion)),
	)
	return res
}

// safeFuse shields the caller from a fusion panic, which would be a bug.
func safeFuse(in *fusion.Input, cfg fusion.Config) (out *fusion.Output, derr *DetectorError) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			derr = &DetectorError{Detector: DetectorFusion, Message: fmt.Sprintf("fusion module crashed: %v", r)}
		}
	}()
	o := fusion.Fuse(in, cfg)
	return &o, nil
}

func scoreOf(out *fusion.Output) float64 {
	if out == nil {
		return 0
	}
	return out.GlobalScore
}
