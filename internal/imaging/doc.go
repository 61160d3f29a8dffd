// Package imaging provides the raster plumbing shared by the detectors and the
// presentation layer.
//
// It covers loading and caching scanned pages, cropping zones, binarising
// pages into ink masks and drawing detection boxes for review.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - Zones are fusion.Rect values in the source image's coordinates
//
// A Mask is relative to its source image's top-left corner, so callers that
// work on sub-images add Bounds().Min back when reporting zones.
//
// # Formats
//
// Load and Decode accept PNG, JPEG, GIF, TIFF and BMP. A PDF is recognised by
// its header and read as the largest image embedded in its first page, which
// is the page itself for scanner output. A first page without any embedded
// image fails with ErrPDFNoRaster.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. All other functions are
// stateless and never modify their input image. Annotate draws on a copy.
//
// # Annotation
//
// Annotate clips every mark to the image and skips marks that are malformed
// or entirely outside it, since detectors may report out-of-range zones.
//
// # Performance Considerations
//
// Cached pages stay decoded in memory. The cache is bounded and drops the
// least recently used page; entries are revalidated against the file's
// modification time and size on every Load.
package imaging
