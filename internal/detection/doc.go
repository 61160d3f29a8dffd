// Package detection provides the pixel-level detectors that feed document
// fusion: signature, checkbox and identity photo.
//
// Each detector is a small value built from a config struct and exposes a
// Detect(ctx, img) method returning the matching fusion result type. The
// detectors hold no mutable state and are safe for concurrent use.
//
// # Algorithm Overview
//
// All three detectors share the same first steps:
//
//  1. Binarisation: grayscale the page and mark "ink" pixels, either against a
//     fixed level (signature, photo) or against the local mean (checkboxes)
//  2. Grouping: collect 8-connected ink pixels into components (checkbox, photo)
//  3. Filtering: keep components whose size and shape fit the target
//  4. Scoring: measure ink ratio, fill ratio or photo likeness
//
// # Coordinate System
//
// Reported zones use the image's own coordinates with the origin at the
// top-left corner. Boxes are fusion.Rect values (x, y, width, height).
//
// # Limitations
//
// The detectors are heuristics tuned for scanned forms at 150 to 300 DPI:
//   - The signature zone is a fixed band at the bottom of the page
//   - Checkboxes must be axis-aligned and drawn with a closed outline
//   - Without a face cascade, photo detection finds a photographic block, not
//     a face, and blocks touching the page border are ignored
//   - With a pigo cascade (PhotoConfig.CascadePath) the photo zone is the
//     best scoring face
package detection
