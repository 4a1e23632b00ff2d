package fits

import "fmt"

// TypeCode identifies a binary table element encoding (the TFORM letter).
type TypeCode uint8

const (
	TypeLogical TypeCode = iota
	TypeBit
	TypeUnsignedByte
	TypeInt16
	TypeInt32
	TypeInt64
	TypeChar
	TypeFloat32
	TypeFloat64
	TypeComplex64
	TypeComplex128
	TypeDescriptor32
	TypeDescriptor64

	typeCodeCount
)

// ElementKind selects the column variant a type code decodes into.
type ElementKind uint8

const (
	ElementNumeric ElementKind = iota
	ElementText
	ElementBool
)

func (k ElementKind) String() string {
	switch k {
	case ElementNumeric:
		return "numeric"
	case ElementText:
		return "text"
	case ElementBool:
		return "bool"
	default:
		return fmt.Sprintf("element(%d)", uint8(k))
	}
}

type typeSpec struct {
	letter byte
	name   string
	// size is bytes per element; zero for bit arrays.
	size int
	kind ElementKind
	// number decodes one numeric element. Nil for text and bool kinds.
	number func(c *Cursor) (float64, error)
}

// typeRegistry is indexed by TypeCode. Its length is pinned to typeCodeCount
// by the blank declaration below.
var typeRegistry = [...]typeSpec{
	TypeLogical:      {letter: 'L', name: "logical", size: 1, kind: ElementBool},
	TypeBit:          {letter: 'X', name: "bit", size: 0, kind: ElementBool},
	TypeUnsignedByte: {letter: 'B', name: "uint8", size: 1, kind: ElementNumeric, number: readUnsignedByte},
	TypeInt16:        {letter: 'I', name: "int16", size: 2, kind: ElementNumeric, number: readInt16},
	TypeInt32:        {letter: 'J', name: "int32", size: 4, kind: ElementNumeric, number: readInt32},
	TypeInt64:        {letter: 'K', name: "int64", size: 8, kind: ElementNumeric, number: readInt64},
	TypeChar:         {letter: 'A', name: "char", size: 1, kind: ElementText},
	TypeFloat32:      {letter: 'E', name: "float32", size: 4, kind: ElementNumeric, number: readFloat32},
	TypeFloat64:      {letter: 'D', name: "float64", size: 8, kind: ElementNumeric, number: readFloat64},
	TypeComplex64:    {letter: 'C', name: "complex64", size: 8, kind: ElementNumeric, number: readComplex64Real},
	TypeComplex128:   {letter: 'M', name: "complex128", size: 16, kind: ElementNumeric, number: readComplex128Real},
	TypeDescriptor32: {letter: 'P', name: "descriptor32", size: 8, kind: ElementNumeric, number: readDescriptor32},
	TypeDescriptor64: {letter: 'Q', name: "descriptor64", size: 16, kind: ElementNumeric, number: readDescriptor64},
}

var _ = [1]struct{}{}[len(typeRegistry)-int(typeCodeCount)]

var typeByLetter = func() map[byte]TypeCode {
	m := make(map[byte]TypeCode, len(typeRegistry))
	for i, spec := range typeRegistry {
		m[spec.letter] = TypeCode(i)
	}
	return m
}()

// LookupType maps a TFORM letter to its type code.
func LookupType(letter byte) (TypeCode, bool) {
	t, ok := typeByLetter[letter]
	return t, ok
}

func (t TypeCode) String() string {
	if t < typeCodeCount {
		return typeRegistry[t].name
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Letter returns the TFORM letter for t.
func (t TypeCode) Letter() byte {
	if t < typeCodeCount {
		return typeRegistry[t].letter
	}
	return '?'
}

func (t TypeCode) Kind() ElementKind {
	return typeRegistry[t].kind
}

// Width returns the bytes one row of a repeat-count field occupies.
func (t TypeCode) Width(repeat int) int {
	if t == TypeBit {
		return (repeat + 7) / 8
	}
	return typeRegistry[t].size * repeat
}

// isDescriptor reports heap array descriptors, which are never rescaled.
func (t TypeCode) isDescriptor() bool {
	return t == TypeDescriptor32 || t == TypeDescriptor64
}

// logicalTrue keeps the lenient rule of treating anything but 'F' and NUL as
// true. Strict FITS only allows 'T' and 'F'.
func logicalTrue(b byte) bool {
	return b == 'T' || (b != 0 && b != 'F')
}

func readUnsignedByte(c *Cursor) (float64, error) {
	v, err := c.ReadI8()
	if err != nil {
		return 0, err
	}
	n := int(v)
	if n < 0 {
		n += 256
	}
	return float64(n), nil
}

func readInt16(c *Cursor) (float64, error) {
	v, err := c.ReadI16()
	return float64(v), err
}

func readInt32(c *Cursor) (float64, error) {
	v, err := c.ReadI32()
	return float64(v), err
}

func readInt64(c *Cursor) (float64, error) {
	v, err := c.ReadI64()
	return float64(v), err
}

func readFloat32(c *Cursor) (float64, error) {
	v, err := c.ReadF32()
	return float64(v), err
}

func readFloat64(c *Cursor) (float64, error) {
	return c.ReadF64()
}

// Complex elements keep only the real part.
func readComplex64Real(c *Cursor) (float64, error) {
	re, err := c.ReadF32()
	if err != nil {
		return 0, err
	}
	if _, err := c.ReadF32(); err != nil {
		return 0, err
	}
	return float64(re), nil
}

func readComplex128Real(c *Cursor) (float64, error) {
	re, err := c.ReadF64()
	if err != nil {
		return 0, err
	}
	if _, err := c.ReadF64(); err != nil {
		return 0, err
	}
	return re, nil
}

// Descriptors keep the element count and drop the heap offset.
func readDescriptor32(c *Cursor) (float64, error) {
	n, err := c.ReadI32()
	if err != nil {
		return 0, err
	}
	if _, err := c.ReadI32(); err != nil {
		return 0, err
	}
	return float64(n), nil
}

func readDescriptor64(c *Cursor) (float64, error) {
	n, err := c.ReadI64()
	if err != nil {
		return 0, err
	}
	if _, err := c.ReadI64(); err != nil {
		return 0, err
	}
	return float64(n), nil
}
