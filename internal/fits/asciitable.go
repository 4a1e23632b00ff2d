package fits

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var asciiFormatRe = regexp.MustCompile(`^([AIFED])(\d+)(?:\.(\d+))?$`)

// parseASCIIFormat returns the field letter and character width of a TFORMn
// value such as "I5" or "E15.7".
func parseASCIIFormat(tform string) (byte, int, bool) {
	m := asciiFormatRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(tform)))
	if m == nil {
		return 0, 0, false
	}
	w, err := strconv.Atoi(m[2])
	if err != nil || w <= 0 {
		return 0, 0, false
	}
	return m[1][0], w, true
}

func asciiTypeCode(letter byte) TypeCode {
	switch letter {
	case 'A':
		return TypeChar
	case 'I':
		return TypeInt32
	case 'D':
		return TypeFloat64
	default:
		return TypeFloat32
	}
}

func asciiColumns(h Header, stride int) []ColumnDescriptor {
	tfields := h.IntOr("TFIELDS", 0)
	cols := make([]ColumnDescriptor, 0, max(tfields, 0))
	for n := 1; n <= tfields; n++ {
		tform, ok := h.String(indexedKey("TFORM", n))
		if !ok {
			continue
		}
		tbcol, ok := h.Int(indexedKey("TBCOL", n))
		if !ok {
			continue
		}
		letter, width, ok := parseASCIIFormat(tform)
		if !ok {
			continue
		}
		if tbcol < 1 || tbcol-1+width > stride {
			continue
		}
		desc := ColumnDescriptor{
			Name:   h.StringOr(indexedKey("TTYPE", n), ""),
			Format: tform,
			Unit:   h.StringOr(indexedKey("TUNIT", n), ""),
			Repeat: 1,
			Type:   asciiTypeCode(letter),
			Offset: tbcol - 1,
			Width:  width,
			Scale:  h.FloatOr(indexedKey("TSCAL", n), 1),
			Zero:   h.FloatOr(indexedKey("TZERO", n), 0),
		}
		if desc.Name == "" {
			desc.Name = "COL" + strconv.Itoa(n)
		}
		cols = append(cols, desc)
	}
	return cols
}

func decodeASCIITable(c *Cursor, h Header, start int) (*Table, error) {
	stride, err := h.MustInt("NAXIS1")
	if err != nil {
		return nil, err
	}
	rows, err := h.MustInt("NAXIS2")
	if err != nil {
		return nil, err
	}
	if stride < 0 || rows < 0 {
		return nil, fmt.Errorf("negative table dimensions %dx%d", stride, rows)
	}
	if err := checkRegion(c, start, rows, stride); err != nil {
		return nil, err
	}

	cols := asciiColumns(h, stride)
	t := newTable(rows, stride, true)
	if stride == 0 || len(cols) == 0 {
		return t, nil
	}
	numeric := make([]*NumericColumn, len(cols))
	text := make([]*TextColumn, len(cols))
	for i, d := range cols {
		if d.Type == TypeChar {
			text[i] = &TextColumn{Desc: d, Data: make([]string, rows)}
			t.add(text[i])
			continue
		}
		numeric[i] = &NumericColumn{Desc: d, Data: make([]float64, rows)}
		t.add(numeric[i])
	}

	if err := c.Seek(start); err != nil {
		return nil, err
	}
	for row := 0; row < rows; row++ {
		raw, err := c.ReadBytes(stride)
		if err != nil {
			return nil, err
		}
		for i, d := range cols {
			field := strings.TrimSpace(decodeText(raw[d.Offset : d.Offset+d.Width]))
			if text[i] != nil {
				text[i].Data[row] = field
				continue
			}
			v := parseASCIINumber(field, d.Type == TypeInt32)
			if d.Scale != 1 || d.Zero != 0 {
				v = v*d.Scale + d.Zero
			}
			numeric[i].Data[row] = v
		}
	}
	return t, nil
}

// parseASCIINumber returns 0 for blank or non-numeric fields.
func parseASCIINumber(s string, integer bool) float64 {
	if integer {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return float64(n)
		}
	}
	if f, ok := parseNumber(s); ok {
		return f
	}
	return 0
}
