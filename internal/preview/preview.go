// Package preview turns decoded FITS images into 8-bit grayscale pictures.
package preview

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"

	"github.com/samcharles93/fitskit/internal/fits"
)

const (
	// MaxWidth caps the requested output width.
	MaxWidth = 8192
	// MaxHeight caps the resized output height. Taller results shrink to fit,
	// keeping the aspect ratio.
	MaxHeight = 8192
)

var (
	ErrNoPixels = errors.New("preview: image has no pixels")
	ErrPlane    = errors.New("preview: plane out of range")
)

type Options struct {
	// Width resizes the output keeping the aspect ratio. Zero keeps the
	// native size.
	Width int
	// Plane selects a 2-D slice of a cube.
	Plane int
}

// Render stretches one plane linearly so the smallest finite sample maps to
// 0 and the largest to 255. Row 0 of the output is the top of the image, i.e.
// the last FITS row.
func Render(img *fits.Image, opts Options) (*image.Gray, error) {
	if img == nil || len(img.Axes) == 0 || len(img.Data) == 0 {
		return nil, ErrNoPixels
	}
	if opts.Width < 0 || opts.Width > MaxWidth {
		return nil, fmt.Errorf("preview: width %d outside 0..%d", opts.Width, MaxWidth)
	}
	w, h := img.Width(), img.Height()
	if w <= 0 || h <= 0 {
		return nil, ErrNoPixels
	}
	if opts.Plane < 0 || opts.Plane >= img.Planes() {
		return nil, fmt.Errorf("%w: %d of %d", ErrPlane, opts.Plane, img.Planes())
	}
	start := opts.Plane * w * h
	if start+w*h > len(img.Data) {
		return nil, ErrNoPixels
	}
	samples := img.Data[start : start+w*h]

	lo, hi := finiteRange(samples)
	scale := 0.0
	if hi > lo {
		scale = 255 / (hi - lo)
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := out.Pix[(h-1-y)*out.Stride:]
		for x := 0; x < w; x++ {
			v := samples[y*w+x]
			if math.IsNaN(v) || math.IsInf(v, 0) || scale == 0 {
				row[x] = 0
				continue
			}
			row[x] = uint8(math.Round((v - lo) * scale))
		}
	}

	if opts.Width == 0 || opts.Width == w {
		return out, nil
	}
	return resize(out, opts.Width), nil
}

func resize(src *image.Gray, width int) *image.Gray {
	b := src.Bounds()
	height := max(1, int(math.Round(float64(b.Dy())*float64(width)/float64(b.Dx()))))
	if height > MaxHeight {
		height = MaxHeight
		width = max(1, int(math.Round(float64(b.Dx())*MaxHeight/float64(b.Dy()))))
	}
	dst := image.NewGray(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

func finiteRange(data []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if lo > hi {
		return 0, 0
	}
	return lo, hi
}

func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, img)
}
