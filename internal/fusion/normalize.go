package fusion

import "math"

// NormalizeOCR maps a text result to [0,1]. Confidence is clamped to [0,100]
// before scaling; a missing result or a NaN confidence scores 0.
func NormalizeOCR(t *TextResult) float64 {
	if t == nil {
		return 0
	}
	return clamp(t.Confidence, 0, 100) / 100
}

// NormalizeSignature maps a signature result to [0,1].
//
// A ratio signal is used as-is (clamped). A presence signal, or a nil signal,
// maps to 1.0 when Present and 0.0 otherwise.
func NormalizeSignature(s *SignatureResult) float64 {
	if s == nil {
		return 0
	}
	if sig, ok := s.Signal.(SignatureRatio); ok {
		return clamp(float64(sig), 0, 1)
	}
	return boolScore(s.Present)
}

// NormalizePhoto maps a photo result to 1.0 when found and 0.0 otherwise.
func NormalizePhoto(p *PhotoResult) float64 {
	if p == nil {
		return 0
	}
	return boolScore(p.Found)
}

// NormalizeCheckboxes returns the mean fill ratio across all boxes. Zero boxes
// score 0.0 rather than being left out of the global mean.
func NormalizeCheckboxes(c *CheckboxResult) float64 {
	if c == nil || len(c.Boxes) == 0 {
		return 0
	}
	sum := 0.0
	for _, b := range c.Boxes {
		sum += clamp(b.FillRatio, 0, 1)
	}
	return sum / float64(len(c.Boxes))
}

// componentScores evaluates the four normalizers in ComponentOrder.
func componentScores(in *Input) map[string]float64 {
	if in == nil {
		in = &Input{}
	}
	return map[string]float64{
		ComponentOCR:       NormalizeOCR(in.Text),
		ComponentSignature: NormalizeSignature(in.Signature),
		ComponentPhoto:     NormalizePhoto(in.Photo),
		ComponentCheckbox:  NormalizeCheckboxes(in.Checkboxes),
	}
}

func boolScore(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// clamp bounds v to [lo, hi]. NaN maps to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// inRange reports whether v is a finite number within [lo, hi].
func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}
