package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/docscan-mcp/internal/fusion"
)

func page() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 120, 80))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

func constant[T any](v *T) DetectorFunc[T] {
	return func(context.Context, image.Image) (*T, error) { return v, nil }
}

func failing[T any](err error) DetectorFunc[T] {
	return func(context.Context, image.Image) (*T, error) { return nil, err }
}

// referenceDetectors yields the reference document: all components perfect
// except OCR at 75.
func referenceDetectors() Detectors {
	return Detectors{
		Text:      constant(&fusion.TextResult{Text: "Nom: DUPONT", Confidence: 75}),
		Signature: constant(&fusion.SignatureResult{Present: true, Signal: fusion.SignatureRatio(1)}),
		Photo:     constant(&fusion.PhotoResult{Found: true, Zone: &fusion.Rect{X: 1, Y: 1, W: 10, H: 10}}),
		Checkbox: constant(&fusion.CheckboxResult{Boxes: []fusion.Checkbox{
			{Box: fusion.Rect{X: 0, Y: 0, W: 20, H: 20}, Checked: true, FillRatio: 1},
		}}),
	}
}

func TestAnalyzer_AllDetectors(t *testing.T) {
	for _, parallel := range []bool{true, false} {
		opts := DefaultOptions()
		opts.Parallel = parallel
		a := NewAnalyzer(referenceDetectors(), opts)

		res := a.Analyze(context.Background(), page())

		require.NotNil(t, res.Fusion)
		assert.InDelta(t, 93.75, res.Fusion.GlobalScore, 1e-9)
		assert.Empty(t, res.Errors)
		assert.Empty(t, res.Fusion.Anomalies)
		assert.Equal(t, 120, res.Width)
		assert.Equal(t, 80, res.Height)
		assert.Len(t, res.Durations, 4)
	}
}

func TestAnalyzer_FailureBecomesAbsentInput(t *testing.T) {
	d := referenceDetectors()
	d.Text = failing[fusion.TextResult](errors.New("tesseract not installed"))

	res := NewAnalyzer(d, DefaultOptions()).Analyze(context.Background(), page())

	assert.Nil(t, res.Text)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, DetectorError{Detector: DetectorOCR, Message: "ocr module failed: tesseract not installed"}, res.Errors[0])

	require.NotNil(t, res.Fusion)
	assert.InDelta(t, 75.0, res.Fusion.GlobalScore, 1e-9)
	assert.Equal(t, []string{"ocr detector unavailable"}, res.Fusion.Anomalies)
	for _, a := range res.Fusion.Anomalies {
		assert.NotContains(t, a, "tesseract", "pipeline errors stay out of anomalies")
	}
}

func TestAnalyzer_PanicIsRecovered(t *testing.T) {
	d := referenceDetectors()
	d.Signature = DetectorFunc[fusion.SignatureResult](func(context.Context, image.Image) (*fusion.SignatureResult, error) {
		panic("index out of range")
	})

	res := NewAnalyzer(d, DefaultOptions()).Analyze(context.Background(), page())

	assert.Nil(t, res.Signature)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "signature module crashed: index out of range", res.Errors[0].Message)
	require.NotNil(t, res.Fusion)
	assert.Equal(t, 0.0, res.Fusion.ComponentScores[fusion.ComponentSignature])
}

func TestAnalyzer_Timeout(t *testing.T) {
	d := referenceDetectors()
	release := make(chan struct{})
	defer close(release)
	d.Photo = DetectorFunc[fusion.PhotoResult](func(ctx context.Context, _ image.Image) (*fusion.PhotoResult, error) {
		<-release
		return &fusion.PhotoResult{Found: true}, nil
	})

	opts := DefaultOptions()
	opts.Timeout = 20 * time.Millisecond
	res := NewAnalyzer(d, opts).Analyze(context.Background(), page())

	assert.Nil(t, res.Photo)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "photo module timed out after 20ms", res.Errors[0].Message)
	require.NotNil(t, res.Fusion)
	assert.NotNil(t, res.Text)
}

func TestAnalyzer_DetectorHonoursDeadline(t *testing.T) {
	d := referenceDetectors()
	d.Checkbox = DetectorFunc[fusion.CheckboxResult](func(ctx context.Context, _ image.Image) (*fusion.CheckboxResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	opts := DefaultOptions()
	opts.Timeout = 10 * time.Millisecond
	res := NewAnalyzer(d, opts).Analyze(context.Background(), page())

	require.Len(t, res.Errors, 1)
	assert.Equal(t, DetectorCheckbox, res.Errors[0].Detector)
	assert.Contains(t, res.Errors[0].Message, "timed out")
}

func TestAnalyzer_NilResultIsAnError(t *testing.T) {
	d := referenceDetectors()
	d.Photo = constant[fusion.PhotoResult](nil)

	res := NewAnalyzer(d, DefaultOptions()).Analyze(context.Background(), page())

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "photo module returned no result", res.Errors[0].Message)
}

func TestAnalyzer_NothingConfigured(t *testing.T) {
	res := NewAnalyzer(Detectors{}, DefaultOptions()).Analyze(context.Background(), page())

	require.Len(t, res.Errors, 4)
	assert.Equal(t, "ocr module not configured", res.Errors[0].Message)
	assert.Equal(t, DetectorSignature, res.Errors[1].Detector)
	assert.Equal(t, DetectorPhoto, res.Errors[2].Detector)
	assert.Equal(t, DetectorCheckbox, res.Errors[3].Detector)

	require.NotNil(t, res.Fusion)
	assert.Equal(t, 0.0, res.Fusion.GlobalScore)
	assert.Equal(t, []string{"no data extracted"}, res.Fusion.Anomalies)
}

func TestAnalyzer_ErrorsInDetectorOrder(t *testing.T) {
	d := Detectors{
		Text:      failing[fusion.TextResult](errors.New("a")),
		Signature: failing[fusion.SignatureResult](errors.New("b")),
		Photo:     failing[fusion.PhotoResult](errors.New("c")),
		Checkbox:  failing[fusion.CheckboxResult](errors.New("d")),
	}

	for i := 0; i < 20; i++ {
		res := NewAnalyzer(d, DefaultOptions()).Analyze(context.Background(), page())
		require.Len(t, res.Errors, 4)
		assert.Equal(t,
			[]string{DetectorOCR, DetectorSignature, DetectorPhoto, DetectorCheckbox},
			[]string{res.Errors[0].Detector, res.Errors[1].Detector, res.Errors[2].Detector, res.Errors[3].Detector},
		)
	}
}

func TestAnalyzer_ParallelRunsConcurrently(t *testing.T) {
	var running, peak atomic.Int32
	slow := func() {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		running.Add(-1)
	}

	d := Detectors{
		Text: DetectorFunc[fusion.TextResult](func(context.Context, image.Image) (*fusion.TextResult, error) {
			slow()
			return &fusion.TextResult{}, nil
		}),
		Signature: DetectorFunc[fusion.SignatureResult](func(context.Context, image.Image) (*fusion.SignatureResult, error) {
			slow()
			return &fusion.SignatureResult{}, nil
		}),
	}

	opts := DefaultOptions()
	NewAnalyzer(d, opts).Analyze(context.Background(), page())
	assert.Equal(t, int32(2), peak.Load())

	peak.Store(0)
	opts.Parallel = false
	NewAnalyzer(d, opts).Analyze(context.Background(), page())
	assert.Equal(t, int32(1), peak.Load())
}

func TestAnalyzer_RequestPolicy(t *testing.T) {
	d := referenceDetectors()
	d.Signature = constant(fusion.NewSignaturePresence(false, nil))
	a := NewAnalyzer(d, DefaultOptions())

	res := a.Analyze(context.Background(), page())
	assert.NotContains(t, res.Fusion.Anomalies, fusion.AnomalyMissingSignature)

	cfg := a.FusionConfig()
	cfg.SignatureRequired = true
	res = a.AnalyzeWith(context.Background(), page(), cfg)
	assert.Contains(t, res.Fusion.Anomalies, fusion.AnomalyMissingSignature)

	res.Refuse(fusion.DefaultConfig())
	assert.NotContains(t, res.Fusion.Anomalies, fusion.AnomalyMissingSignature)
}

func TestAnalyzer_AnalyzeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "form.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, page()))
	require.NoError(t, f.Close())

	a := NewAnalyzer(referenceDetectors(), DefaultOptions())

	res, err := a.AnalyzeFile(context.Background(), path, a.FusionConfig())
	require.NoError(t, err)
	assert.Equal(t, "form.png", res.Source)
	assert.Equal(t, 1, a.Cache().Len())

	_, err = a.AnalyzeFile(context.Background(), filepath.Join(t.TempDir(), "missing.png"), a.FusionConfig())
	assert.Error(t, err)
}

func TestAnalyzer_AnalyzeFileSeesReplacedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.png")
	write := func(w, h int) {
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
		f, err := os.Create(path)
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}
	a := NewAnalyzer(referenceDetectors(), DefaultOptions())

	write(100, 100)
	first, err := a.AnalyzeFile(context.Background(), path, a.FusionConfig())
	require.NoError(t, err)

	write(300, 400)
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	second, err := a.AnalyzeFile(context.Background(), path, a.FusionConfig())
	require.NoError(t, err)
	assert.Equal(t, [2]int{100, 100}, [2]int{first.Width, first.Height})
	assert.Equal(t, [2]int{300, 400}, [2]int{second.Width, second.Height})
}

func TestAnalyzer_CancelledContext(t *testing.T) {
	d := referenceDetectors()
	d.Text = DetectorFunc[fusion.TextResult](func(ctx context.Context, _ image.Image) (*fusion.TextResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	opts := DefaultOptions()
	opts.Timeout = 0
	res := NewAnalyzer(d, opts).Analyze(ctx, page())

	require.NotEmpty(t, res.Errors)
	assert.Equal(t, DetectorOCR, res.Errors[0].Detector)
	assert.Nil(t, res.Text)
}

func TestAnalyzer_Configured(t *testing.T) {
	d := referenceDetectors()
	d.Photo = nil

	got := NewAnalyzer(d, DefaultOptions()).Configured()
	assert.Equal(t, map[string]bool{
		DetectorOCR:       true,
		DetectorSignature: true,
		DetectorPhoto:     false,
		DetectorCheckbox:  true,
	}, got)
}
