package fits

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// kv formats a fixed-format value card.
func kv(key string, value any) string {
	switch v := value.(type) {
	case bool:
		s := "F"
		if v {
			s = "T"
		}
		return fmt.Sprintf("%-8s= %20s", key, s)
	case int:
		return fmt.Sprintf("%-8s= %20d", key, v)
	case float64:
		return fmt.Sprintf("%-8s= %20s", key, strconv.FormatFloat(v, 'G', -1, 64))
	case string:
		return fmt.Sprintf("%-8s= '%-8s'", key, v)
	default:
		panic(fmt.Sprintf("kv: unsupported %T", value))
	}
}

func pad80(s string) []byte {
	if len(s) > CardSize {
		panic("card longer than 80 bytes: " + s)
	}
	return []byte(s + string(bytes.Repeat([]byte{' '}, CardSize-len(s))))
}

// headerBlock renders cards followed by END, space padded to a block.
func headerBlock(cards ...string) []byte {
	var b []byte
	for _, c := range cards {
		b = append(b, pad80(c)...)
	}
	b = append(b, pad80("END")...)
	for len(b)%BlockSize != 0 {
		b = append(b, ' ')
	}
	return b
}

// dataBlock zero pads b to a block multiple.
func dataBlock(b []byte) []byte {
	out := append([]byte(nil), b...)
	for len(out)%BlockSize != 0 {
		out = append(out, 0)
	}
	return out
}

func primaryCards(bitpix int, axes []int, extra ...string) []string {
	cards := []string{kv("SIMPLE", true), kv("BITPIX", bitpix), kv("NAXIS", len(axes))}
	for i, a := range axes {
		cards = append(cards, kv("NAXIS"+strconv.Itoa(i+1), a))
	}
	return append(cards, extra...)
}

// emptyPrimary is a dataless primary HDU with EXTEND = T.
func emptyPrimary() []byte {
	return headerBlock(primaryCards(8, nil, kv("EXTEND", true))...)
}

type field struct {
	name, form, unit string
}

func binTableCards(rowBytes, rows int, fields []field, extra ...string) []string {
	cards := []string{
		kv("XTENSION", "BINTABLE"),
		kv("BITPIX", 8),
		kv("NAXIS", 2),
		kv("NAXIS1", rowBytes),
		kv("NAXIS2", rows),
		kv("PCOUNT", 0),
		kv("GCOUNT", 1),
		kv("TFIELDS", len(fields)),
	}
	for i, f := range fields {
		n := strconv.Itoa(i + 1)
		if f.name != "" {
			cards = append(cards, kv("TTYPE"+n, f.name))
		}
		cards = append(cards, kv("TFORM"+n, f.form))
		if f.unit != "" {
			cards = append(cards, kv("TUNIT"+n, f.unit))
		}
	}
	return append(cards, extra...)
}

type asciiField struct {
	name, form string
	col        int
}

func asciiTableCards(rowBytes, rows int, fields []asciiField) []string {
	cards := []string{
		kv("XTENSION", "TABLE"),
		kv("BITPIX", 8),
		kv("NAXIS", 2),
		kv("NAXIS1", rowBytes),
		kv("NAXIS2", rows),
		kv("PCOUNT", 0),
		kv("GCOUNT", 1),
		kv("TFIELDS", len(fields)),
	}
	for i, f := range fields {
		n := strconv.Itoa(i + 1)
		cards = append(cards, kv("TTYPE"+n, f.name), kv("TFORM"+n, f.form), kv("TBCOL"+n, f.col))
	}
	return cards
}

// be accumulates big-endian values.
type be struct {
	b []byte
}

func (w *be) u8(v uint8) *be {
	w.b = append(w.b, v)
	return w
}

func (w *be) i16(v int16) *be {
	w.b = binary.BigEndian.AppendUint16(w.b, uint16(v))
	return w
}

func (w *be) i32(v int32) *be {
	w.b = binary.BigEndian.AppendUint32(w.b, uint32(v))
	return w
}

func (w *be) i64(v int64) *be {
	w.b = binary.BigEndian.AppendUint64(w.b, uint64(v))
	return w
}

func (w *be) f32(v float32) *be {
	w.b = binary.BigEndian.AppendUint32(w.b, math.Float32bits(v))
	return w
}

func (w *be) f64(v float64) *be {
	w.b = binary.BigEndian.AppendUint64(w.b, math.Float64bits(v))
	return w
}

func (w *be) str(s string, n int) *be {
	b := make([]byte, n)
	copy(b, s)
	for i := len(s); i < n; i++ {
		b[i] = ' '
	}
	w.b = append(w.b, b...)
	return w
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
