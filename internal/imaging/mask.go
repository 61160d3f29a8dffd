package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
)

// Mask is a binary "ink" map of an image. Coordinates are relative to the
// source image's top-left corner (0,0), whatever its Bounds().Min.
type Mask struct {
	Width  int
	Height int
	Bits   []bool
}

// NewMask allocates an empty mask.
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Bits: make([]bool, width*height)}
}

// At reports whether (x, y) is ink. Out-of-range coordinates are not ink.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Bits[y*m.Width+x]
}

// Set marks (x, y) as ink.
func (m *Mask) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Bits[y*m.Width+x] = v
}

// Count returns the number of ink pixels inside r (clipped to the mask).
func (m *Mask) Count(r image.Rectangle) int {
	r = r.Intersect(image.Rect(0, 0, m.Width, m.Height))
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := m.Bits[y*m.Width : (y+1)*m.Width]
		for x := r.Min.X; x < r.Max.X; x++ {
			if row[x] {
				n++
			}
		}
	}
	return n
}

// Ratio returns the fraction of ink pixels inside r. An empty r has ratio 0.
func (m *Mask) Ratio(r image.Rectangle) float64 {
	r = r.Intersect(image.Rect(0, 0, m.Width, m.Height))
	area := r.Dx() * r.Dy()
	if area == 0 {
		return 0
	}
	return float64(m.Count(r)) / float64(area)
}

// Grayscale converts img to 8-bit luminance. The result starts at (0,0).
func Grayscale(img image.Image) *image.Gray {
	rgba := effect.Grayscale(img)
	b := rgba.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := rgba.Pix[y*rgba.Stride:]
		dst := gray.Pix[y*gray.Stride:]
		for x := 0; x < b.Dx(); x++ {
			dst[x] = src[x*4]
		}
	}
	return gray
}

// InkMask marks every pixel darker than level as ink.
func InkMask(img image.Image, level uint8) *Mask {
	// Threshold paints pixels >= level white and the rest black.
	th := segment.Threshold(img, level)
	b := th.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			m.Bits[y*m.Width+x] = th.Pix[y*th.Stride+x] == 0
		}
	}
	return m
}

// AdaptiveMask marks pixels that are at least offset darker than the mean of
// their blockSize x blockSize neighbourhood. The window is clipped at the
// image border.
func AdaptiveMask(img image.Image, blockSize int, offset float64) *Mask {
	gray := Grayscale(img)
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	m := NewMask(w, h)
	if w == 0 || h == 0 {
		return m
	}
	if blockSize < 3 {
		blockSize = 3
	}
	radius := blockSize / 2

	// Summed-area table with a zero row and column.
	stride := w + 1
	sums := make([]int64, stride*(h+1))
	for y := 0; y < h; y++ {
		var rowSum int64
		for x := 0; x < w; x++ {
			rowSum += int64(gray.Pix[y*gray.Stride+x])
			sums[(y+1)*stride+x+1] = sums[y*stride+x+1] + rowSum
		}
	}

	for y := 0; y < h; y++ {
		y0, y1 := max(0, y-radius), min(h, y+radius+1)
		for x := 0; x < w; x++ {
			x0, x1 := max(0, x-radius), min(w, x+radius+1)
			total := sums[y1*stride+x1] - sums[y0*stride+x1] - sums[y1*stride+x0] + sums[y0*stride+x0]
			mean := float64(total) / float64((x1-x0)*(y1-y0))
			if float64(gray.Pix[y*gray.Stride+x]) <= mean-offset {
				m.Bits[y*w+x] = true
			}
		}
	}
	return m
}
