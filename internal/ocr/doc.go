// Package ocr provides the text adapter for document fusion, built on the
// Tesseract OCR engine via gosseract/v2.
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// Config.TessdataPrefix points the engine at a different traineddata
// directory.
//
// # Engine
//
// An Engine wraps one Tesseract API handle for the life of the process.
// Calls are serialised on the handle. Each call:
//
//  1. Downscales the page to Config.MaxDimension
//  2. Converts to grayscale and applies a light Gaussian blur
//  3. Runs recognition and collects word boxes (RIL_WORD)
//
// The reported confidence is the mean word confidence on a 0-100 scale,
// computed over non-empty words only. A page with no legible words yields
// an empty text and zero confidence, which is a result and not an error.
//
// # Build
//
// This package links against libtesseract through cgo. Nothing else in the
// module imports it except the command, so every other package builds and
// tests without a C toolchain.
package ocr
