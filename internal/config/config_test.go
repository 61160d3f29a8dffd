package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ironsheep/docscan-mcp/internal/detection"
	"github.com/ironsheep/docscan-mcp/internal/fusion"
)

// inTempDir runs the test from an empty directory so no config.yaml is found.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Fusion.SignatureRequired)
	assert.False(t, cfg.Fusion.PhotoRequired)
	assert.InDelta(t, 40, cfg.Fusion.LowOCRThreshold, 0.001)
	assert.Equal(t, "eng+ara", cfg.OCR.Language)
	assert.Equal(t, 2480, cfg.OCR.MaxDimension)
	assert.Equal(t, detection.SignatureModeRatio, cfg.Detection.Signature.Mode)
	assert.Equal(t, 180, cfg.Detection.Signature.InkLevel)
	assert.Equal(t, 31, cfg.Detection.Checkbox.BlockSize)
	assert.Equal(t, 60, cfg.Detection.Photo.MinSize)
	assert.InDelta(t, 0.5, cfg.Detection.Photo.MaxCoverage, 0.001)
	assert.Empty(t, cfg.Detection.Photo.CascadePath)
	assert.True(t, cfg.Pipeline.Parallel)
	assert.Equal(t, 30, cfg.Pipeline.DetectorTimeoutSecs)
	assert.False(t, cfg.Store.Enabled)
	assert.Equal(t, "docscan.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestDefaultsMatchPackageDefaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, fusion.DefaultConfig(), cfg.FusionPolicy())
	assert.Equal(t, detection.DefaultSignatureConfig(), cfg.SignatureDetector())
	assert.Equal(t, detection.DefaultCheckboxConfig(), cfg.CheckboxDetector())
	assert.Equal(t, detection.DefaultPhotoConfig(), cfg.PhotoDetector())

	opts := cfg.PipelineOptions()
	assert.True(t, opts.Parallel)
	assert.Equal(t, 30*time.Second, opts.Timeout)
}

func TestLoadFromYAML(t *testing.T) {
	dir := inTempDir(t)

	yaml := `
fusion:
  signature_required: true
  low_ocr_threshold: 55
detection:
  signature:
    mode: presence
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Fusion.SignatureRequired)
	assert.InDelta(t, 55, cfg.Fusion.LowOCRThreshold, 0.001)
	assert.Equal(t, detection.SignatureModePresence, cfg.Detection.Signature.Mode)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.InDelta(t, 0.35, cfg.Fusion.AmbiguousHigh, 0.001)
	assert.Equal(t, 80, cfg.Detection.Checkbox.MaxSize)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := inTempDir(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store:\n  path: file.db\n"), 0644))
	t.Setenv("DOCSCAN_STORE_PATH", "env.db")
	t.Setenv("DOCSCAN_FUSION_PHOTO_REQUIRED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.Store.Path)
	assert.True(t, cfg.Fusion.PhotoRequired)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("fusion: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	inTempDir(t)
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Detection.Signature.InkLevel = 300
	assert.Error(t, cfg.Validate())

	cfg.Detection.Signature.InkLevel = 180
	cfg.Pipeline.DetectorTimeoutSecs = -1
	assert.Error(t, cfg.Validate())
}

func TestInitLogger(t *testing.T) {
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))

	assert.Error(t, InitLogger(LogConfig{Level: "loud"}))
}
