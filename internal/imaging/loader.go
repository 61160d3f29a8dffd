package imaging

import (
	"bufio"
	"bytes"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
)

// SupportedFormats lists the input formats Load and Decode accept. A PDF is
// read as the raster embedded in its first page.
func SupportedFormats() []string {
	return []string{"png", "jpeg", "gif", "tiff", "bmp", "pdf"}
}

// DefaultCacheSize is the number of decoded documents an ImageCache keeps.
const DefaultCacheSize = 8

// ImageCache provides thread-safe caching of decoded document rasters.
//
// Entries are keyed by path and validated against the file's modification
// time and size on every Load, so a scan saved over an existing file name is
// decoded afresh. This matters for the MCP server, where a client typically
// analyzes a page and then asks for its annotation or report.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Memory Management
//
// A scanned A4 page at 300 DPI is roughly 35 MB once decoded to RGBA. The
// cache holds at most its configured number of documents and drops the
// least recently used one when full. Evict() and Clear() release memory
// explicitly.
type ImageCache struct {
	mu     sync.Mutex
	limit  int
	images map[string]*cacheEntry
	tick   uint64
}

type cacheEntry struct {
	doc     *Document
	modTime time.Time
	size    int64
	used    uint64
}

// Document is a decoded raster together with its origin.
type Document struct {
	Image         image.Image
	Path          string
	Format        string
	FileSizeBytes int64
}

// NewImageCache creates an empty cache holding DefaultCacheSize documents.
func NewImageCache() *ImageCache {
	return NewImageCacheSize(DefaultCacheSize)
}

// NewImageCacheSize creates an empty cache holding at most limit documents.
// A limit below 1 is treated as 1.
func NewImageCacheSize(limit int) *ImageCache {
	return &ImageCache{
		limit:  max(limit, 1),
		images: make(map[string]*cacheEntry),
	}
}

// Load retrieves a document from the cache or decodes it from disk.
//
// Supported formats are PNG, JPEG, GIF, TIFF, BMP and PDF (first page). A
// cached entry is reused only while the file keeps the modification time
// and size it had when it was decoded.
func (c *ImageCache) Load(path string) (*Document, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, eris.Wrapf(err, "stat image %s", path)
	}

	c.mu.Lock()
	if e, ok := c.images[path]; ok {
		if e.modTime.Equal(stat.ModTime()) && e.size == stat.Size() {
			c.tick++
			e.used = c.tick
			c.mu.Unlock()
			return e.doc, nil
		}
		delete(c.images, path)
	}
	c.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open image %s", path)
	}
	defer f.Close()

	// Stat the open handle so the cache key matches the bytes decoded.
	stat, err = f.Stat()
	if err != nil {
		return nil, eris.Wrapf(err, "stat image %s", path)
	}

	img, format, err := Decode(f)
	if err != nil {
		return nil, eris.Wrapf(err, "decode image %s", path)
	}

	doc := &Document{
		Image:         img,
		Path:          path,
		Format:        format,
		FileSizeBytes: stat.Size(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.images[path]; !ok && len(c.images) >= c.limit {
		c.evictOldest()
	}
	c.tick++
	c.images[path] = &cacheEntry{doc: doc, modTime: stat.ModTime(), size: stat.Size(), used: c.tick}

	return doc, nil
}

// evictOldest drops the least recently used entry. c.mu must be held.
func (c *ImageCache) evictOldest() {
	var (
		oldest string
		used   uint64
		found  bool
	)
	for path, e := range c.images {
		if !found || e.used < used {
			oldest, used, found = path, e.used, true
		}
	}
	if found {
		delete(c.images, oldest)
	}
}

// Clear removes all documents from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]*cacheEntry)
	c.mu.Unlock()
}

// Evict removes a specific document from the cache by its path.
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// Len returns the number of cached documents.
func (c *ImageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.images)
}

// Decode decodes a raster from r and returns it with its format name. A PDF
// yields the image embedded in its first page and the format "pdf".
func Decode(r io.Reader) (image.Image, string, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(pdfMagic))
	if err == nil && bytes.Equal(head, pdfMagic) {
		img, err := decodePDF(br)
		if err != nil {
			return nil, "pdf", err
		}
		return img, "pdf", nil
	}

	img, format, err := image.Decode(br)
	if err != nil {
		return nil, "", eris.Wrap(err, "decode raster")
	}
	return img, format, nil
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Dimensions returns the size of img.
func Dimensions(img image.Image) DimensionsResult {
	b := img.Bounds()
	return DimensionsResult{Width: b.Dx(), Height: b.Dy()}
}
