package fits

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var binaryFormatRe = regexp.MustCompile(`^(\d*)([A-Z])(.*)$`)

// parseBinaryFormat splits a TFORMn value such as "10E" or "1PJ(200)" into
// repeat count and type code.
func parseBinaryFormat(tform string) (int, TypeCode, bool) {
	m := binaryFormatRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(tform)))
	if m == nil {
		return 0, 0, false
	}
	repeat := 1
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 0 {
			return 0, 0, false
		}
		repeat = n
	}
	code, ok := LookupType(m[2][0])
	if !ok {
		return 0, 0, false
	}
	return repeat, code, true
}

// binaryColumns builds descriptors for every decodable field. Fields with a
// missing TFORM or unknown type code are left out.
func binaryColumns(h Header) []ColumnDescriptor {
	tfields := h.IntOr("TFIELDS", 0)
	cols := make([]ColumnDescriptor, 0, max(tfields, 0))
	offset := 0
	for n := 1; n <= tfields; n++ {
		tform, ok := h.String(indexedKey("TFORM", n))
		if !ok {
			continue
		}
		repeat, code, ok := parseBinaryFormat(tform)
		if !ok {
			continue
		}
		width := code.Width(repeat)
		desc := ColumnDescriptor{
			Name:   h.StringOr(indexedKey("TTYPE", n), ""),
			Format: tform,
			Unit:   h.StringOr(indexedKey("TUNIT", n), ""),
			Repeat: repeat,
			Type:   code,
			Offset: offset,
			Width:  width,
			Scale:  h.FloatOr(indexedKey("TSCAL", n), 1),
			Zero:   h.FloatOr(indexedKey("TZERO", n), 0),
		}
		if desc.Name == "" {
			desc.Name = "COL" + strconv.Itoa(n)
		}
		offset += width
		if repeat == 0 {
			continue
		}
		cols = append(cols, desc)
	}
	return cols
}

func decodeBinaryTable(c *Cursor, h Header, start int) (*Table, error) {
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

	cols := binaryColumns(h)
	span := 0
	for _, d := range cols {
		span = max(span, d.Offset+d.Width)
	}
	if span > stride {
		return nil, fmt.Errorf("columns span %d bytes but NAXIS1 is %d", span, stride)
	}
	if err := checkRegion(c, start, rows, stride); err != nil {
		return nil, err
	}

	t := newTable(rows, stride, false)
	// Zero-width rows carry no bytes to read, whatever NAXIS2 claims.
	if stride == 0 || len(cols) == 0 {
		return t, nil
	}
	decoders := make([]func(row int) error, len(cols))
	for i, d := range cols {
		col, dec := binaryColumnDecoder(c, d, rows)
		t.add(col)
		decoders[i] = dec
	}

	for row := 0; row < rows; row++ {
		for i, d := range cols {
			if err := c.Seek(start + row*stride + d.Offset); err != nil {
				return nil, err
			}
			if err := decoders[i](row); err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", row, d.Name, err)
			}
		}
	}
	return t, nil
}

// binaryColumnDecoder allocates the column for d and returns a function that
// fills one row from the cursor's current position.
func binaryColumnDecoder(c *Cursor, d ColumnDescriptor, rows int) (Column, func(row int) error) {
	switch d.Type.Kind() {
	case ElementText:
		col := &TextColumn{Desc: d, Data: make([]string, rows)}
		return col, func(row int) error {
			s, err := c.ReadText(d.Width)
			if err != nil {
				return err
			}
			col.Data[row] = s
			return nil
		}
	case ElementBool:
		col := &BoolColumn{Desc: d, Data: make([]bool, rows*d.Repeat)}
		if d.Type == TypeBit {
			return col, func(row int) error {
				b, err := c.ReadBytes(d.Width)
				if err != nil {
					return err
				}
				for r := 0; r < d.Repeat; r++ {
					col.Data[row*d.Repeat+r] = b[r/8]&(0x80>>(r%8)) != 0
				}
				return nil
			}
		}
		return col, func(row int) error {
			for r := 0; r < d.Repeat; r++ {
				v, err := c.ReadU8()
				if err != nil {
					return err
				}
				col.Data[row*d.Repeat+r] = logicalTrue(v)
			}
			return nil
		}
	case ElementNumeric:
		col := &NumericColumn{Desc: d, Data: make([]float64, rows*d.Repeat)}
		read := typeRegistry[d.Type].number
		scaled := !d.Type.isDescriptor() && (d.Scale != 1 || d.Zero != 0)
		return col, func(row int) error {
			for r := 0; r < d.Repeat; r++ {
				v, err := read(c)
				if err != nil {
					return err
				}
				if scaled {
					v = v*d.Scale + d.Zero
				}
				col.Data[row*d.Repeat+r] = v
			}
			return nil
		}
	}
	panic(fmt.Sprintf("fits: no decoder for %s", d.Type))
}

// checkRegion verifies rows*stride bytes starting at start lie inside the buffer.
func checkRegion(c *Cursor, start, rows, stride int) error {
	size, ok := mulOverflowSafe(rows, stride)
	if !ok {
		return fmt.Errorf("table size overflows: %d rows of %d bytes", rows, stride)
	}
	end, ok := addOverflowSafe(start, size)
	if !ok || end > c.Len() {
		return fmt.Errorf("%w: table needs %d bytes at %d (size %d)", ErrOutOfBounds, size, start, c.Len())
	}
	return nil
}
