package fusion

// Fuse combines the detector results in in into a single Output.
//
// Fuse is total: it accepts a nil or partially filled Input and malformed
// values, and always returns a well-formed Output. Identical arguments always
// produce identical results, including anomaly order.
//
// The global score is the mean of the four component scores multiplied by
// 100. When no detector produced anything the score is exactly 0.
//
// A zero AmbiguousBand stands for the default band (0.15, 0.35), so a zero
// Config flags ambiguous checkboxes like DefaultConfig does. A zero
// LowOCRThreshold is taken literally and disables the low OCR rule; start
// from DefaultConfig to keep it.
func Fuse(in *Input, cfg Config) Output {
	if cfg.AmbiguousBand == (Band{}) {
		cfg.AmbiguousBand = DefaultConfig().AmbiguousBand
	}
	if cfg.AmbiguousBand.Low > cfg.AmbiguousBand.High {
		cfg.AmbiguousBand.Low, cfg.AmbiguousBand.High = cfg.AmbiguousBand.High, cfg.AmbiguousBand.Low
	}

	scores := componentScores(in)

	global := 0.0
	if !in.Empty() {
		sum := 0.0
		for _, name := range ComponentOrder {
			sum += scores[name]
		}
		global = clamp(sum/float64(len(ComponentOrder))*100, 0, 100)
	}

	return Output{
		GlobalScore:     global,
		Anomalies:       DetectAnomalies(in, scores, cfg),
		ComponentScores: scores,
	}
}
