package fits

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func imageExtensionCards(bitpix int, axes []int) []string {
	cards := []string{kv("XTENSION", "IMAGE"), kv("BITPIX", bitpix), kv("NAXIS", len(axes))}
	for i, a := range axes {
		cards = append(cards, kv(indexedKey("NAXIS", i+1), a))
	}
	return append(cards, kv("PCOUNT", 0), kv("GCOUNT", 1))
}

// sampleFile is a 4x2 int16 primary image, an IMAGE extension and a
// two-row binary table.
func sampleFile() []byte {
	pix := &be{}
	for i := int16(0); i < 8; i++ {
		pix.i16(i * 100)
	}
	ext := (&be{}).f32(1).f32(2).f32(3).f32(4)
	rows := (&be{}).i32(7).str("ALPHA", 5).i32(9).str("BETA", 5)

	return concat(
		headerBlock(primaryCards(16, []int{4, 2}, kv("OBJECT", "M31"), "COMMENT sample")...),
		dataBlock(pix.b),
		headerBlock(imageExtensionCards(-32, []int{2, 2})...),
		dataBlock(ext.b),
		headerBlock(binTableCards(9, 2, []field{{"N", "J", ""}, {"LABEL", "5A", ""}})...),
		dataBlock(rows.b),
	)
}

func TestDecodeSampleFile(t *testing.T) {
	t.Parallel()

	buf := sampleFile()
	doc, err := Decode(buf)
	require.NoError(t, err)
	require.NoError(t, doc.Truncation)
	require.Equal(t, 3, doc.HDUCount())
	assert.Equal(t, len(buf), doc.Size())

	types := []HDUType{HDUPrimary, HDUImage, HDUBinTable}
	for i, hdu := range doc.HDUs() {
		assert.Equal(t, types[i], hdu.Type, "HDU %d", i)
	}

	primary, _ := doc.HDU(0)
	assert.Equal(t, "M31", primary.Header.StringOr("OBJECT", ""))
	assert.Equal(t, []string{"COMMENT sample"}, primary.Header.Commentary)
	img, ok := primary.Image()
	require.True(t, ok)
	v, ok := img.At(3, 1, 0)
	require.True(t, ok)
	assert.Equal(t, 700.0, v)

	ext, _ := doc.HDU(1)
	assert.Equal(t, "IMAGE", ext.Extension)
	assert.Nil(t, ext.Payload)
	assert.Equal(t, 16, ext.Provenance.DataLength)

	tblHDU, _ := doc.HDU(2)
	tbl, ok := tblHDU.Table()
	require.True(t, ok)
	label, _ := tbl.Column("LABEL")
	assert.Equal(t, []string{"ALPHA", "BETA"}, label.(*TextColumn).Data)

	_, ok = doc.HDU(3)
	assert.False(t, ok)
	_, ok = doc.HDU(-1)
	assert.False(t, ok)
}

func TestDecodeProvenance(t *testing.T) {
	t.Parallel()

	buf := sampleFile()
	doc, err := Decode(buf)
	require.NoError(t, err)

	next := 0
	for i, hdu := range doc.HDUs() {
		p := hdu.Provenance
		assert.Equal(t, next, p.HeaderStart, "HDU %d", i)
		assert.Zero(t, p.HeaderStart%BlockSize, "HDU %d", i)
		assert.Zero(t, p.HeaderSize%BlockSize, "HDU %d", i)
		assert.Zero(t, p.DataSize%BlockSize, "HDU %d", i)
		assert.GreaterOrEqual(t, p.HeaderSize, p.HeaderLength, "HDU %d", i)
		assert.GreaterOrEqual(t, p.DataSize, p.DataLength, "HDU %d", i)
		assert.Equal(t, p.HeaderStart+p.HeaderSize, p.DataStart, "HDU %d", i)
		next = p.End()
	}
	assert.Equal(t, len(buf), next)
}

func TestDecodeIsDeterministic(t *testing.T) {
	t.Parallel()

	buf := sampleFile()
	a, err := Decode(buf)
	require.NoError(t, err)
	b, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecodeImageExtensionsOption(t *testing.T) {
	t.Parallel()

	doc, err := DecodeWithOptions(sampleFile(), Options{DecodeImageExtensions: true})
	require.NoError(t, err)
	ext, _ := doc.HDU(1)
	img, ok := ext.Image()
	require.True(t, ok)
	assert.Equal(t, []int{2, 2}, img.Axes)
	assert.Equal(t, []float64{1, 2, 3, 4}, img.Data)
}

func TestDecodeExtensionLimit(t *testing.T) {
	t.Parallel()

	parts := [][]byte{emptyPrimary()}
	for i := 0; i < DefaultMaxExtensions+2; i++ {
		parts = append(parts, headerBlock(binTableCards(4, 0, []field{{"A", "J", ""}})...))
	}
	doc, err := Decode(concat(parts...))
	require.NoError(t, err)
	assert.Equal(t, 1+DefaultMaxExtensions, doc.HDUCount())
	assert.NoError(t, doc.Truncation)

	doc, err = DecodeWithOptions(concat(parts...), Options{MaxExtensions: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, doc.HDUCount())
}

func TestDecodeStopsAtForeignBlock(t *testing.T) {
	t.Parallel()

	junk := bytes.Repeat([]byte{'x'}, BlockSize)
	buf := concat(sampleFile(), junk)
	doc, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, doc.HDUCount())
	assert.NoError(t, doc.Truncation)
}

func TestDecodeIgnoresTrailingPartialBlock(t *testing.T) {
	t.Parallel()

	buf := concat(sampleFile(), pad80(kv("XTENSION", "BINTABLE")))
	doc, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, doc.HDUCount())
}

func TestDecodeUnknownExtensionKeepsHeader(t *testing.T) {
	t.Parallel()

	cards := []string{
		kv("XTENSION", "A3DTABLE"),
		kv("BITPIX", 8),
		kv("NAXIS", 1),
		kv("NAXIS1", 10),
		kv("PCOUNT", 0),
		kv("GCOUNT", 1),
	}
	buf := concat(emptyPrimary(), headerBlock(cards...), dataBlock(make([]byte, 10)), headerBlock(imageExtensionCards(8, nil)...))
	doc, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, 3, doc.HDUCount())

	other, _ := doc.HDU(1)
	assert.Equal(t, HDUOther, other.Type)
	assert.Equal(t, "A3DTABLE", other.Extension)
	assert.Nil(t, other.Payload)
	last, _ := doc.HDU(2)
	assert.Equal(t, HDUImage, last.Type)
}

func TestOpenFile(t *testing.T) {
	t.Parallel()

	buf := sampleFile()
	path := filepath.Join(t.TempDir(), "sample.fits")
	require.NoError(t, os.WriteFile(path, buf, 0o644))

	f, err := Open(path, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	assert.Equal(t, path, f.Path)
	assert.Equal(t, 3, f.Document.HDUCount())

	hdr, ok := f.HeaderBytes(2)
	require.True(t, ok)
	assert.True(t, bytes.HasPrefix(hdr, []byte("XTENSION= 'BINTABLE'")))
	data, ok := f.DataBytes(0)
	require.True(t, ok)
	assert.Len(t, data, BlockSize)
	assert.Equal(t, []byte{0, 0, 0, 100}, data[:4])

	_, ok = f.DataBytes(9)
	assert.False(t, ok)

	require.NoError(t, f.Close())
	assert.Nil(t, f.Data)
	require.NoError(t, f.Close())
}

func TestOpenRejectsShortFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "short.fits")
	require.NoError(t, os.WriteFile(path, []byte("SIMPLE  ="), 0o644))
	_, err := Open(path, Options{})
	require.ErrorIs(t, err, ErrFormat)

	_, err = Open(filepath.Join(t.TempDir(), "missing.fits"), Options{})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenReaderAt(t *testing.T) {
	t.Parallel()

	buf := sampleFile()
	f, err := OpenReaderAt(bytes.NewReader(buf), int64(len(buf)), Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, f.Document.HDUCount())
	require.NoError(t, f.Close())

	_, err = OpenReaderAt(bytes.NewReader(buf[:100]), int64(len(buf)), Options{})
	require.Error(t, err)
}
