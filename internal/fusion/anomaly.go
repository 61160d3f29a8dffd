package fusion

import (
	"fmt"
	"math"
)

// Anomaly messages. Rules that reference a specific value or box append it
// to the message.
const (
	AnomalyLowOCR             = "low OCR confidence"
	AnomalyMissingSignature   = "missing signature"
	AnomalyMissingPhoto       = "missing photo"
	AnomalyAmbiguousCheckbox  = "ambiguous checkbox state at"
	AnomalyNoData             = "no data extracted"
	AnomalyDetectorMissing    = "detector unavailable"
	AnomalyOCROutOfRange      = "OCR confidence out of range"
	AnomalyInkOutOfRange      = "signature ink ratio out of range"
	AnomalyFillOutOfRange     = "checkbox fill ratio out of range at"
	AnomalyInvalidCheckboxBox = "invalid checkbox box"
)

// rule is a pure predicate over the input and its component scores. It
// returns the anomalies it detected, in order.
type rule func(in *Input, scores map[string]float64, cfg Config) []string

// rules are evaluated in this order; the anomaly list is their concatenation.
var rules = []rule{
	lowOCRConfidence,
	missingSignature,
	missingPhoto,
	ambiguousCheckboxes,
	noDataExtracted,
	unavailableDetectors,
	malformedFields,
}

// DetectAnomalies runs every rule against in and returns the de-duplicated
// concatenation of their findings.
func DetectAnomalies(in *Input, scores map[string]float64, cfg Config) []string {
	if in == nil {
		in = &Input{}
	}
	anomalies := make([]string, 0)
	seen := make(map[string]struct{})
	for _, r := range rules {
		for _, a := range r(in, scores, cfg) {
			if _, dup := seen[a]; dup {
				continue
			}
			seen[a] = struct{}{}
			anomalies = append(anomalies, a)
		}
	}
	return anomalies
}

func lowOCRConfidence(in *Input, _ map[string]float64, cfg Config) []string {
	if in.Text == nil {
		return nil
	}
	if clamp(in.Text.Confidence, 0, 100) < cfg.LowOCRThreshold {
		return []string{AnomalyLowOCR}
	}
	return nil
}

func missingSignature(in *Input, _ map[string]float64, cfg Config) []string {
	if !cfg.SignatureRequired {
		return nil
	}
	if in.Signature == nil || !in.Signature.Present {
		return []string{AnomalyMissingSignature}
	}
	return nil
}

func missingPhoto(in *Input, _ map[string]float64, cfg Config) []string {
	if !cfg.PhotoRequired {
		return nil
	}
	if in.Photo == nil || !in.Photo.Found {
		return []string{AnomalyMissingPhoto}
	}
	return nil
}

func ambiguousCheckboxes(in *Input, _ map[string]float64, cfg Config) []string {
	if in.Checkboxes == nil {
		return nil
	}
	var out []string
	for _, b := range in.Checkboxes.Boxes {
		if cfg.AmbiguousBand.Contains(clamp(b.FillRatio, 0, 1)) {
			out = append(out, fmt.Sprintf("%s %s", AnomalyAmbiguousCheckbox, b.Box))
		}
	}
	return out
}

func noDataExtracted(in *Input, _ map[string]float64, _ Config) []string {
	if in.Empty() {
		return []string{AnomalyNoData}
	}
	return nil
}

// unavailableDetectors names each absent detector when at least one other
// detector produced a result. A fully empty input is covered by
// noDataExtracted.
func unavailableDetectors(in *Input, _ map[string]float64, _ Config) []string {
	if in.Empty() {
		return nil
	}
	var out []string
	if in.Text == nil {
		out = append(out, fmt.Sprintf("%s %s", ComponentOCR, AnomalyDetectorMissing))
	}
	if in.Signature == nil {
		out = append(out, fmt.Sprintf("%s %s", ComponentSignature, AnomalyDetectorMissing))
	}
	if in.Photo == nil {
		out = append(out, fmt.Sprintf("%s %s", ComponentPhoto, AnomalyDetectorMissing))
	}
	if in.Checkboxes == nil {
		out = append(out, fmt.Sprintf("%s %s", ComponentCheckbox, AnomalyDetectorMissing))
	}
	return out
}

// malformedFields reports values that were clamped or ignored during
// normalization.
func malformedFields(in *Input, _ map[string]float64, _ Config) []string {
	var out []string
	if in.Text != nil && !inRange(in.Text.Confidence, 0, 100) {
		out = append(out, fmt.Sprintf("%s (%s), clamped", AnomalyOCROutOfRange, formatValue(in.Text.Confidence)))
	}
	if in.Signature != nil {
		if r, ok := in.Signature.InkRatio(); ok && !inRange(r, 0, 1) {
			out = append(out, fmt.Sprintf("%s (%s), clamped", AnomalyInkOutOfRange, formatValue(r)))
		}
	}
	if in.Checkboxes != nil {
		for _, b := range in.Checkboxes.Boxes {
			if !b.Box.Valid() {
				out = append(out, fmt.Sprintf("%s %s", AnomalyInvalidCheckboxBox, b.Box))
			}
			if !inRange(b.FillRatio, 0, 1) {
				out = append(out, fmt.Sprintf("%s %s, clamped", AnomalyFillOutOfRange, b.Box))
			}
		}
	}
	return out
}

func formatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Sprint(v)
	}
	return fmt.Sprintf("%.2f", v)
}
