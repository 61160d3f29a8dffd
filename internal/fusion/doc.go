// Package fusion combines independent detector results into a single document
// validity assessment.
//
// The package is pure: it performs no I/O, holds no state between calls and
// never logs. Fuse is safe to call concurrently from any number of goroutines
// because each call only reads its own Input and allocates its own Output.
//
// # Components
//
// Four detector results feed the engine, each normalized to [0,1]:
//
//   - ocr: text recognition confidence (0-100) divided by 100
//   - signature: ink ratio when the detector measured one, else 1.0/0.0 for a
//     boolean presence
//   - photo: 1.0 when an identity photo was found, else 0.0
//   - checkbox: mean fill ratio of all detected checkboxes, 0.0 when none
//
// The global score is the arithmetic mean of the four components scaled to a
// percentage, so it always lies in [0,100]. Any detector may be missing from
// the Input; a missing detector contributes 0.0 and is reported as an anomaly.
//
// # Anomalies
//
// Anomalies describe document content that a reviewer should look at (low OCR
// confidence, missing signature, ambiguous checkbox). They are evaluated in a
// fixed order so that the resulting list is stable for identical inputs.
// Pipeline failures (a detector crashing) are not anomalies and are tracked by
// the caller.
package fusion
