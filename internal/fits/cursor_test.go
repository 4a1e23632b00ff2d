package fits

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorBigEndianReads(t *testing.T) {
	t.Parallel()

	w := (&be{}).u8(0xFE).i16(-2).i32(-70000).f32(1.5).f64(-2.25).i64(-3)
	c := NewCursor(w.b)

	u8, err := c.ReadU8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0xFE), u8)

	i16, err := c.ReadI16()
	require.NoError(t, err)
	assert.Equal(t, int16(-2), i16)

	i32, err := c.ReadI32()
	require.NoError(t, err)
	assert.Equal(t, int32(-70000), i32)

	f32, err := c.ReadF32()
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), f32)

	f64, err := c.ReadF64()
	require.NoError(t, err)
	assert.Equal(t, -2.25, f64)

	i64, err := c.ReadI64()
	require.NoError(t, err)
	assert.Equal(t, int64(-3), i64)

	assert.Equal(t, len(w.b), c.Position())
	assert.Zero(t, c.Remaining())
}

func TestCursorReadI64HighWord(t *testing.T) {
	t.Parallel()

	c := NewCursor((&be{}).i32(1).i32(-1).b)
	v, err := c.ReadI64()
	require.NoError(t, err)
	assert.Equal(t, int64(1)<<32+math.MaxUint32, v)
}

func TestCursorOutOfBounds(t *testing.T) {
	t.Parallel()

	c := NewCursor([]byte{1, 2, 3})
	_, err := c.ReadI32()
	require.ErrorIs(t, err, ErrOutOfBounds)
	assert.Zero(t, c.Position(), "failed read must not advance")

	require.ErrorIs(t, c.Seek(4), ErrOutOfBounds)
	require.NoError(t, c.Seek(3))
	_, err = c.ReadU8()
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestCursorReadText(t *testing.T) {
	t.Parallel()

	c := NewCursor([]byte("M31 \x00\x00\t  NGC\xe9  "))
	s, err := c.ReadText(9)
	require.NoError(t, err)
	assert.Equal(t, "M31", s)

	s, err = c.ReadText(6)
	require.NoError(t, err)
	assert.Equal(t, "NGCé", s)
}
