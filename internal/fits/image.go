package fits

import (
	"fmt"
	"math"
)

// Image is a decoded pixel array. Data is row-major with Axes[0] varying
// fastest and already holds physical values (stored*BSCALE+BZERO).
type Image struct {
	Axes   []int
	BitPix int
	Data   []float64
}

func (img *Image) Width() int {
	if len(img.Axes) == 0 {
		return 0
	}
	return img.Axes[0]
}

func (img *Image) Height() int {
	if len(img.Axes) < 2 {
		return 1
	}
	return img.Axes[1]
}

// Planes is the number of 2-D slices stacked along the higher axes.
func (img *Image) Planes() int {
	n := 1
	for _, a := range img.Axes[min(len(img.Axes), 2):] {
		n *= a
	}
	return n
}

// At returns the sample at zero-based x, y in the given plane.
func (img *Image) At(x, y, plane int) (float64, bool) {
	w, h := img.Width(), img.Height()
	if x < 0 || y < 0 || x >= w || y >= h || plane < 0 {
		return 0, false
	}
	i := plane*w*h + y*w + x
	if i >= len(img.Data) {
		return 0, false
	}
	return img.Data[i], true
}

func (*Image) isPayload() {}

var validBitPix = map[int]bool{8: true, 16: true, 32: true, 64: true, -32: true, -64: true}

// MaxAxes is the largest NAXIS the standard allows.
const MaxAxes = 999

type geometry struct {
	bitpix int
	axes   []int
	// count is the product of all axes, zero when NAXIS is 0.
	count int
}

func (g geometry) bytesPerSample() int {
	if g.bitpix < 0 {
		return -g.bitpix / 8
	}
	return g.bitpix / 8
}

func readGeometry(h Header) (geometry, error) {
	bitpix, ok := h.Int("BITPIX")
	if !ok {
		return geometry{}, fmt.Errorf("missing or invalid BITPIX")
	}
	if !validBitPix[bitpix] {
		return geometry{}, fmt.Errorf("invalid BITPIX %d", bitpix)
	}
	naxis, ok := h.Int("NAXIS")
	if !ok {
		return geometry{}, fmt.Errorf("missing or invalid NAXIS")
	}
	if naxis < 0 || naxis > MaxAxes {
		return geometry{}, fmt.Errorf("NAXIS %d out of range [0, %d]", naxis, MaxAxes)
	}
	g := geometry{bitpix: bitpix, axes: make([]int, naxis)}
	if naxis == 0 {
		return g, nil
	}
	count := 1
	for n := 1; n <= naxis; n++ {
		key := indexedKey("NAXIS", n)
		v, ok := h.Int(key)
		if !ok {
			return geometry{}, fmt.Errorf("missing or invalid %s", key)
		}
		if v < 0 {
			return geometry{}, fmt.Errorf("negative %s", key)
		}
		g.axes[n-1] = v
		if count, ok = mulOverflowSafe(count, v); !ok {
			return geometry{}, fmt.Errorf("data size overflows at %s", key)
		}
	}
	g.count = count
	return g, nil
}

// mulOverflowSafe multiplies non-negative a and b, reporting overflow.
func mulOverflowSafe(a, b int) (int, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

func addOverflowSafe(a, b int) (int, bool) {
	if a > math.MaxInt-b {
		return 0, false
	}
	return a + b, true
}

func sampleReader(bitpix int) func(c *Cursor) (float64, error) {
	switch bitpix {
	case 8:
		return func(c *Cursor) (float64, error) {
			v, err := c.ReadU8()
			return float64(v), err
		}
	case 16:
		return readInt16
	case 32:
		return readInt32
	case 64:
		return readInt64
	case -32:
		return readFloat32
	case -64:
		return readFloat64
	default:
		return nil
	}
}

// decodeImage reads g.count samples at start and applies BSCALE/BZERO.
func decodeImage(c *Cursor, h Header, g geometry, start int) (*Image, error) {
	read := sampleReader(g.bitpix)
	if read == nil {
		return nil, fmt.Errorf("unsupported BITPIX %d", g.bitpix)
	}
	size, ok := mulOverflowSafe(g.count, g.bytesPerSample())
	if !ok {
		return nil, fmt.Errorf("pixel data size overflows")
	}
	if end, ok := addOverflowSafe(start, size); !ok || end > c.Len() {
		return nil, fmt.Errorf("%w: pixel data needs %d bytes at %d (size %d)", ErrOutOfBounds, size, start, c.Len())
	}
	if err := c.Seek(start); err != nil {
		return nil, err
	}

	bscale := h.FloatOr("BSCALE", 1)
	bzero := h.FloatOr("BZERO", 0)
	data := make([]float64, g.count)
	for i := range data {
		v, err := read(c)
		if err != nil {
			return nil, err
		}
		data[i] = v*bscale + bzero
	}
	return &Image{Axes: append([]int(nil), g.axes...), BitPix: g.bitpix, Data: data}, nil
}
