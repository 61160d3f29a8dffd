package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ironsheep/docscan-mcp/internal/detection"
	"github.com/ironsheep/docscan-mcp/internal/fusion"
	"github.com/ironsheep/docscan-mcp/internal/pipeline"
)

// Config holds the full application configuration.
type Config struct {
	Fusion    FusionConfig    `yaml:"fusion" mapstructure:"fusion"`
	OCR       OCRConfig       `yaml:"ocr" mapstructure:"ocr"`
	Detection DetectionConfig `yaml:"detection" mapstructure:"detection"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// FusionConfig holds the default document policy.
type FusionConfig struct {
	SignatureRequired bool    `yaml:"signature_required" mapstructure:"signature_required"`
	PhotoRequired     bool    `yaml:"photo_required" mapstructure:"photo_required"`
	LowOCRThreshold   float64 `yaml:"low_ocr_threshold" mapstructure:"low_ocr_threshold"`
	AmbiguousLow      float64 `yaml:"ambiguous_low" mapstructure:"ambiguous_low"`
	AmbiguousHigh     float64 `yaml:"ambiguous_high" mapstructure:"ambiguous_high"`
}

// OCRConfig configures the Tesseract engine.
type OCRConfig struct {
	Language       string `yaml:"language" mapstructure:"language"`
	TessdataPrefix string `yaml:"tessdata_prefix" mapstructure:"tessdata_prefix"`
	MaxDimension   int    `yaml:"max_dimension" mapstructure:"max_dimension"`
}

// DetectionConfig groups the pixel detector settings.
type DetectionConfig struct {
	Signature SignatureConfig `yaml:"signature" mapstructure:"signature"`
	Checkbox  CheckboxConfig  `yaml:"checkbox" mapstructure:"checkbox"`
	Photo     PhotoConfig     `yaml:"photo" mapstructure:"photo"`
}

// SignatureConfig configures the signature detector.
type SignatureConfig struct {
	Mode          string  `yaml:"mode" mapstructure:"mode"`
	ZoneFraction  float64 `yaml:"zone_fraction" mapstructure:"zone_fraction"`
	InkLevel      int     `yaml:"ink_level" mapstructure:"ink_level"`
	PresenceRatio float64 `yaml:"presence_ratio" mapstructure:"presence_ratio"`
}

// CheckboxConfig configures the checkbox detector.
type CheckboxConfig struct {
	MinSize      int     `yaml:"min_size" mapstructure:"min_size"`
	MaxSize      int     `yaml:"max_size" mapstructure:"max_size"`
	BlockSize    int     `yaml:"block_size" mapstructure:"block_size"`
	Offset       float64 `yaml:"offset" mapstructure:"offset"`
	CheckedRatio float64 `yaml:"checked_ratio" mapstructure:"checked_ratio"`
}

// PhotoConfig configures the photo detector.
type PhotoConfig struct {
	MinSize        int     `yaml:"min_size" mapstructure:"min_size"`
	MinAspect      float64 `yaml:"min_aspect" mapstructure:"min_aspect"`
	MaxAspect      float64 `yaml:"max_aspect" mapstructure:"max_aspect"`
	MinScore       float64 `yaml:"min_score" mapstructure:"min_score"`
	MaxCoverage    float64 `yaml:"max_coverage" mapstructure:"max_coverage"`
	CascadePath    string  `yaml:"cascade_path" mapstructure:"cascade_path"`
	MinFaceQuality float64 `yaml:"min_face_quality" mapstructure:"min_face_quality"`
}

// PipelineConfig configures detector scheduling.
type PipelineConfig struct {
	Parallel            bool `yaml:"parallel" mapstructure:"parallel"`
	DetectorTimeoutSecs int  `yaml:"detector_timeout_secs" mapstructure:"detector_timeout_secs"`
}

// StoreConfig configures the analysis history database.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DOCSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("fusion.signature_required", false)
	v.SetDefault("fusion.photo_required", false)
	v.SetDefault("fusion.low_ocr_threshold", 40.0)
	v.SetDefault("fusion.ambiguous_low", 0.15)
	v.SetDefault("fusion.ambiguous_high", 0.35)
	v.SetDefault("ocr.language", "eng+ara")
	v.SetDefault("ocr.tessdata_prefix", "")
	v.SetDefault("ocr.max_dimension", 2480)
	v.SetDefault("detection.signature.mode", detection.SignatureModeRatio)
	v.SetDefault("detection.signature.zone_fraction", 0.30)
	v.SetDefault("detection.signature.ink_level", 180)
	v.SetDefault("detection.signature.presence_ratio", 0.005)
	v.SetDefault("detection.checkbox.min_size", 20)
	v.SetDefault("detection.checkbox.max_size", 80)
	v.SetDefault("detection.checkbox.block_size", 31)
	v.SetDefault("detection.checkbox.offset", 5.0)
	v.SetDefault("detection.checkbox.checked_ratio", 0.25)
	v.SetDefault("detection.photo.min_size", 60)
	v.SetDefault("detection.photo.min_aspect", 0.9)
	v.SetDefault("detection.photo.max_aspect", 1.8)
	v.SetDefault("detection.photo.min_score", 0.15)
	v.SetDefault("detection.photo.max_coverage", 0.5)
	v.SetDefault("detection.photo.cascade_path", "")
	v.SetDefault("detection.photo.min_face_quality", 5.0)
	v.SetDefault("pipeline.parallel", true)
	v.SetDefault("pipeline.detector_timeout_secs", 30)
	v.SetDefault("store.enabled", false)
	v.SetDefault("store.path", "docscan.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no detector can run with.
func (c *Config) Validate() error {
	if c.Detection.Signature.InkLevel < 0 || c.Detection.Signature.InkLevel > 255 {
		return eris.Errorf("config: detection.signature.ink_level %d outside [0,255]", c.Detection.Signature.InkLevel)
	}
	if c.Pipeline.DetectorTimeoutSecs < 0 {
		return eris.New("config: pipeline.detector_timeout_secs must not be negative")
	}
	return nil
}

// FusionPolicy converts the fusion section to a fusion.Config.
func (c *Config) FusionPolicy() fusion.Config {
	return fusion.Config{
		SignatureRequired: c.Fusion.SignatureRequired,
		PhotoRequired:     c.Fusion.PhotoRequired,
		LowOCRThreshold:   c.Fusion.LowOCRThreshold,
		AmbiguousBand:     fusion.Band{Low: c.Fusion.AmbiguousLow, High: c.Fusion.AmbiguousHigh},
	}
}

// SignatureDetector converts the signature section.
func (c *Config) SignatureDetector() detection.SignatureConfig {
	s := c.Detection.Signature
	return detection.SignatureConfig{
		Mode:          s.Mode,
		ZoneFraction:  s.ZoneFraction,
		InkLevel:      uint8(s.InkLevel),
		PresenceRatio: s.PresenceRatio,
	}
}

// CheckboxDetector converts the checkbox section.
func (c *Config) CheckboxDetector() detection.CheckboxConfig {
	b := c.Detection.Checkbox
	return detection.CheckboxConfig{
		MinSize:      b.MinSize,
		MaxSize:      b.MaxSize,
		BlockSize:    b.BlockSize,
		Offset:       b.Offset,
		CheckedRatio: b.CheckedRatio,
	}
}

// PhotoDetector converts the photo section.
func (c *Config) PhotoDetector() detection.PhotoConfig {
	p := c.Detection.Photo
	return detection.PhotoConfig{
		MinSize:        p.MinSize,
		MinAspect:      p.MinAspect,
		MaxAspect:      p.MaxAspect,
		MinScore:       p.MinScore,
		MaxCoverage:    p.MaxCoverage,
		CascadePath:    p.CascadePath,
		MinFaceQuality: p.MinFaceQuality,
	}
}

// PipelineOptions converts the pipeline section, including the fusion policy.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Parallel: c.Pipeline.Parallel,
		Timeout:  time.Duration(c.Pipeline.DetectorTimeoutSecs) * time.Second,
		Fusion:   c.FusionPolicy(),
	}
}

// InitLogger initializes the global zap logger. Logs go to stderr.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
