// Package pipeline orchestrates document analysis: it runs the text,
// signature, photo and checkbox detectors on a page, turns their failures
// into DetectorError values, and fuses whatever results are available.
//
// A detector that returns an error, panics, or overruns its timeout leaves
// its fusion input absent. Fusion still runs and scores the absent
// component with its default. Pipeline errors are kept in Analysis.Errors
// and never mixed into the fusion anomalies.
package pipeline
