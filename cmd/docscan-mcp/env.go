package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/ironsheep/docscan-mcp/internal/detection"
	"github.com/ironsheep/docscan-mcp/internal/fusion"
	"github.com/ironsheep/docscan-mcp/internal/ocr"
	"github.com/ironsheep/docscan-mcp/internal/pipeline"
	"github.com/ironsheep/docscan-mcp/internal/store"
)

// environment holds the long-lived collaborators of one command run.
type environment struct {
	analyzer *pipeline.Analyzer
	engine   *ocr.Engine
	history  *store.SQLiteStore
}

// initEnvironment builds the analyzer from cfg. A Tesseract engine that fails
// to start leaves the text detector unconfigured rather than failing the
// command; the analysis then reports it as a pipeline error. The history
// store is opened only when withHistory is set.
func initEnvironment(ctx context.Context, withHistory bool) (*environment, error) {
	log := zap.L()
	env := &environment{}

	d, err := buildDetectors()
	if err != nil {
		return nil, err
	}

	engine, err := ocr.NewEngine(ocrConfig())
	if err != nil {
		log.Warn("ocr: engine unavailable, text detection disabled", zap.Error(err))
	} else {
		env.engine = engine
		d.Text = env.analyzerText()
		log.Debug("ocr: engine ready",
			zap.String("tesseract", engine.Version()),
			zap.String("language", cfg.OCR.Language),
		)
	}

	env.analyzer = pipeline.NewAnalyzer(d, cfg.PipelineOptions())

	if withHistory {
		st, err := initStore(ctx)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.history = st
	}
	return env, nil
}

// buildDetectors creates the pixel detectors from cfg.
func buildDetectors() (pipeline.Detectors, error) {
	sig, err := detection.NewSignatureDetector(cfg.SignatureDetector())
	if err != nil {
		return pipeline.Detectors{}, err
	}
	photo, err := detection.NewPhotoDetector(cfg.PhotoDetector())
	if err != nil {
		return pipeline.Detectors{}, err
	}
	boxes, err := detection.NewCheckboxDetector(cfg.CheckboxDetector())
	if err != nil {
		return pipeline.Detectors{}, err
	}
	return pipeline.Detectors{
		Signature: sig,
		Photo:     photo,
		Checkbox:  boxes,
	}, nil
}

func ocrConfig() ocr.Config {
	return ocr.Config{
		Language:       cfg.OCR.Language,
		TessdataPrefix: cfg.OCR.TessdataPrefix,
		MaxDimension:   cfg.OCR.MaxDimension,
	}
}

func initStore(ctx context.Context) (*store.SQLiteStore, error) {
	dsn := cfg.Store.Path
	if dsn == "" {
		dsn = "docscan.db"
	}
	st, err := store.NewSQLite(dsn)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// analyzerText returns the text detector backed by the OCR engine.
func (e *environment) analyzerText() pipeline.Detector[fusion.TextResult] {
	return pipeline.DetectorFunc[fusion.TextResult](e.engine.Recognize)
}

// Close releases the OCR engine and the history store.
func (e *environment) Close() {
	if e.engine != nil {
		if err := e.engine.Close(); err != nil {
			zap.L().Warn("ocr: close engine", zap.Error(err))
		}
	}
	if e.history != nil {
		if err := e.history.Close(); err != nil {
			zap.L().Warn("store: close", zap.Error(err))
		}
	}
}
