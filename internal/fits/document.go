package fits

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/samcharles93/fitskit/internal/logger"
)

const (
	DefaultMaxHeaderCards = 1000
	DefaultMaxExtensions  = 10
)

// Options tunes the decoder limits. The zero value uses the defaults.
type Options struct {
	MaxHeaderCards int
	MaxExtensions  int
	// DecodeImageExtensions decodes IMAGE extension pixels. When false they
	// keep their header and provenance with no payload.
	DecodeImageExtensions bool
	Logger                logger.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxHeaderCards <= 0 {
		o.MaxHeaderCards = DefaultMaxHeaderCards
	}
	if o.MaxExtensions <= 0 {
		o.MaxExtensions = DefaultMaxExtensions
	}
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
	return o
}

// HDUType classifies an HDU by position and XTENSION value.
type HDUType uint8

const (
	HDUPrimary HDUType = iota
	HDUImage
	HDUBinTable
	HDUASCIITable
	HDUOther
)

func (t HDUType) String() string {
	switch t {
	case HDUPrimary:
		return "primary"
	case HDUImage:
		return "image"
	case HDUBinTable:
		return "bintable"
	case HDUASCIITable:
		return "table"
	case HDUOther:
		return "other"
	default:
		return fmt.Sprintf("hdu(%d)", uint8(t))
	}
}

// Provenance locates an HDU in the original buffer. HeaderSize and DataSize
// are block aligned; HeaderLength and DataLength are the unpadded extents.
type Provenance struct {
	HeaderStart  int
	HeaderSize   int
	DataStart    int
	DataSize     int
	HeaderLength int
	DataLength   int
}

// End is the offset just past the aligned data block.
func (p Provenance) End() int {
	return p.DataStart + p.DataSize
}

// Payload is *Image or *Table.
type Payload interface {
	isPayload()
}

type HDU struct {
	Type HDUType
	// Extension is the XTENSION value, empty for the primary HDU.
	Extension  string
	Header     Header
	Payload    Payload
	Provenance Provenance
}

func (h *HDU) Image() (*Image, bool) {
	img, ok := h.Payload.(*Image)
	return img, ok
}

func (h *HDU) Table() (*Table, bool) {
	t, ok := h.Payload.(*Table)
	return t, ok
}

// Document is the decoded HDU list. It is never modified after Decode
// returns and may be shared between goroutines.
type Document struct {
	hdus []*HDU
	size int
	// Truncation holds the *ExtensionError that ended the extension scan
	// early, or nil.
	Truncation error
}

func (d *Document) HDUCount() int {
	return len(d.hdus)
}

func (d *Document) HDU(i int) (*HDU, bool) {
	if i < 0 || i >= len(d.hdus) {
		return nil, false
	}
	return d.hdus[i], true
}

func (d *Document) HDUs() []*HDU {
	return d.hdus
}

// Size is the length of the buffer the document was decoded from.
func (d *Document) Size() int {
	return d.size
}

// Decode parses buf with default options.
func Decode(buf []byte) (*Document, error) {
	return DecodeWithOptions(buf, Options{})
}

// DecodeWithOptions parses the primary HDU and then every following
// extension. A *FormatError is returned when the primary HDU is unusable;
// extension failures only shorten the HDU list.
func DecodeWithOptions(buf []byte, opts Options) (*Document, error) {
	d := &decoder{c: NewCursor(buf), buf: buf, opts: opts.withDefaults()}
	d.log = d.opts.Logger

	primary, err := d.decodePrimary()
	if err != nil {
		return nil, err
	}
	doc := &Document{hdus: []*HDU{primary}, size: len(buf)}
	d.decodeExtensions(doc, primary.Provenance.End())
	return doc, nil
}

type decoder struct {
	c    *Cursor
	buf  []byte
	opts Options
	log  logger.Logger
}

var primaryPrefixes = [3]string{"SIMPLE", "BITPIX", "NAXIS"}

// simpleValueOffset is the fixed-format column of the SIMPLE logical value.
const simpleValueOffset = 29

func (d *decoder) decodePrimary() (*HDU, error) {
	if len(d.buf) < BlockSize {
		return nil, formatErrorf("buffer of %d bytes is shorter than one %d-byte block", len(d.buf), BlockSize)
	}
	for i, prefix := range primaryPrefixes {
		card := d.buf[i*CardSize : (i+1)*CardSize]
		if !bytes.HasPrefix(card, []byte(prefix)) {
			return nil, formatErrorf("card %d must be %s", i, prefix)
		}
	}
	if d.buf[simpleValueOffset] != 'T' {
		return nil, formatErrorf("SIMPLE is not T")
	}

	h, n, err := scanHeader(d.c, 0, d.opts.MaxHeaderCards)
	if err != nil {
		return nil, &FormatError{Reason: "primary header", Err: err}
	}
	g, err := readGeometry(h)
	if err != nil {
		return nil, &FormatError{Reason: "primary header", Err: err}
	}
	dataLen, ok := mulOverflowSafe(g.count, g.bytesPerSample())
	if !ok {
		return nil, formatErrorf("primary data size overflows")
	}

	headerSize := alignBlock(n)
	hdu := &HDU{
		Type:   HDUPrimary,
		Header: h,
		Provenance: Provenance{
			HeaderStart:  0,
			HeaderSize:   headerSize,
			DataStart:    headerSize,
			DataSize:     alignBlock(dataLen),
			HeaderLength: n,
			DataLength:   dataLen,
		},
	}
	if dataLen == 0 {
		return hdu, nil
	}

	img, err := decodeImage(d.c, h, g, headerSize)
	if err != nil {
		d.log.Warn("primary data unreadable, keeping header only",
			"bitpix", g.bitpix, "axes", g.axes, "error", err)
		img = &Image{Axes: append([]int(nil), g.axes...), BitPix: g.bitpix, Data: []float64{}}
	}
	hdu.Payload = img
	return hdu, nil
}

func (d *decoder) decodeExtensions(doc *Document, offset int) {
	for i := 1; ; i++ {
		if len(d.buf)-offset < BlockSize {
			return
		}
		if !bytes.HasPrefix(d.buf[offset:offset+CardSize], []byte("XTENSION")) {
			d.log.Debug("no further extensions", "offset", offset)
			return
		}
		if i > d.opts.MaxExtensions {
			d.log.Warn("extension limit reached", "limit", d.opts.MaxExtensions, "offset", offset)
			return
		}
		hdu, err := d.decodeExtension(offset)
		if err != nil {
			doc.Truncation = &ExtensionError{Index: i, Offset: offset, Err: err}
			d.log.Warn("stopping at undecodable extension", "index", i, "offset", offset, "error", err)
			return
		}
		if hdu == nil {
			return
		}
		doc.hdus = append(doc.hdus, hdu)
		offset = hdu.Provenance.End()
	}
}

// decodeExtension returns nil, nil for a header with no value cards.
func (d *decoder) decodeExtension(offset int) (*HDU, error) {
	h, n, err := scanHeader(d.c, offset, d.opts.MaxHeaderCards)
	if err != nil {
		return nil, err
	}
	if h.Len() == 0 {
		return nil, nil
	}

	xtension := strings.ToUpper(strings.TrimSpace(h.StringOr("XTENSION", "")))
	g, err := readGeometry(h)
	if err != nil {
		return nil, err
	}
	dataLen, err := extensionDataLength(h, g)
	if err != nil {
		return nil, err
	}

	headerSize := alignBlock(n)
	dataStart, ok := addOverflowSafe(offset, headerSize)
	if !ok {
		return nil, fmt.Errorf("header offset overflows")
	}
	hdu := &HDU{
		Type:      HDUOther,
		Extension: xtension,
		Header:    h,
		Provenance: Provenance{
			HeaderStart:  offset,
			HeaderSize:   headerSize,
			DataStart:    dataStart,
			DataSize:     alignBlock(dataLen),
			HeaderLength: n,
			DataLength:   dataLen,
		},
	}

	switch xtension {
	case "BINTABLE":
		hdu.Type = HDUBinTable
		t, err := decodeBinaryTable(d.c, h, dataStart)
		if err != nil {
			return nil, err
		}
		hdu.Payload = t
	case "TABLE":
		hdu.Type = HDUASCIITable
		t, err := decodeASCIITable(d.c, h, dataStart)
		if err != nil {
			return nil, err
		}
		hdu.Payload = t
	case "IMAGE":
		hdu.Type = HDUImage
		if d.opts.DecodeImageExtensions && g.count > 0 {
			img, err := decodeImage(d.c, h, g, dataStart)
			if err != nil {
				return nil, err
			}
			hdu.Payload = img
		}
	default:
		d.log.Debug("extension kept without payload", "xtension", xtension, "offset", offset)
	}
	return hdu, nil
}

// extensionDataLength is |BITPIX|/8 * GCOUNT * (PCOUNT + NAXIS1*...*NAXISn).
// For tables PCOUNT is the heap that follows the rows.
func extensionDataLength(h Header, g geometry) (int, error) {
	if len(g.axes) == 0 {
		return 0, nil
	}
	pcount := h.IntOr("PCOUNT", 0)
	gcount := h.IntOr("GCOUNT", 1)
	if pcount < 0 || gcount < 0 {
		return 0, fmt.Errorf("negative PCOUNT %d or GCOUNT %d", pcount, gcount)
	}
	n, ok := addOverflowSafe(g.count, pcount)
	if ok {
		n, ok = mulOverflowSafe(n, gcount)
	}
	if ok {
		n, ok = mulOverflowSafe(n, g.bytesPerSample())
	}
	if !ok {
		return 0, fmt.Errorf("extension data size overflows")
	}
	return n, nil
}
