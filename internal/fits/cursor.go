package fits

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"
)

// Cursor is a sequential big-endian reader over an in-memory buffer.
type Cursor struct {
	data []byte
	off  int
}

func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

func (c *Cursor) Position() int {
	return c.off
}

func (c *Cursor) Len() int {
	return len(c.data)
}

func (c *Cursor) Remaining() int {
	return len(c.data) - c.off
}

// Seek moves to an absolute position. Positions past the end are rejected.
func (c *Cursor) Seek(pos int) error {
	if pos < 0 || pos > len(c.data) {
		return fmt.Errorf("%w: seek to %d (size %d)", ErrOutOfBounds, pos, len(c.data))
	}
	c.off = pos
	return nil
}

func (c *Cursor) readN(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("invalid read length %d", n)
	}
	if n > len(c.data)-c.off {
		return nil, fmt.Errorf("%w: read %d bytes at %d (size %d)", ErrOutOfBounds, n, c.off, len(c.data))
	}
	b := c.data[c.off : c.off+n]
	c.off += n
	return b, nil
}

// ReadBytes returns the next n bytes without copying.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	return c.readN(n)
}

func (c *Cursor) ReadU8() (uint8, error) {
	b, err := c.readN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *Cursor) ReadI8() (int8, error) {
	v, err := c.ReadU8()
	return int8(v), err
}

func (c *Cursor) ReadI16() (int16, error) {
	b, err := c.readN(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(b)), nil
}

func (c *Cursor) ReadU32() (uint32, error) {
	b, err := c.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (c *Cursor) ReadI32() (int32, error) {
	v, err := c.ReadU32()
	return int32(v), err
}

// ReadI64 assembles a signed high word and an unsigned low word. Callers that
// widen the result to float64 lose precision above 2^53.
func (c *Cursor) ReadI64() (int64, error) {
	hi, err := c.ReadI32()
	if err != nil {
		return 0, err
	}
	lo, err := c.ReadU32()
	if err != nil {
		return 0, err
	}
	return int64(hi)<<32 | int64(lo), nil
}

func (c *Cursor) ReadF32() (float32, error) {
	u, err := c.ReadU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

func (c *Cursor) ReadF64() (float64, error) {
	b, err := c.readN(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// ReadText decodes n bytes as ISO-8859-1 and trims trailing whitespace and
// control characters.
func (c *Cursor) ReadText(n int) (string, error) {
	b, err := c.readN(n)
	if err != nil {
		return "", err
	}
	return decodeText(b), nil
}

func decodeText(b []byte) string {
	s, err := charmap.ISO8859_1.NewDecoder().String(string(b))
	if err != nil {
		s = string(b)
	}
	return trimRightInvisible(s)
}

func trimRightInvisible(s string) string {
	return strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r) || r == 0
	})
}
