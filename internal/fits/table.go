package fits

// ColumnDescriptor describes one table field.
type ColumnDescriptor struct {
	Name   string
	Format string
	Unit   string
	Repeat int
	Type   TypeCode
	// Offset is the field's byte position within a row, Width its byte span.
	Offset int
	Width  int
	Scale  float64
	Zero   float64
}

// Column is one decoded table field. The concrete type is *NumericColumn,
// *TextColumn or *BoolColumn.
type Column interface {
	Descriptor() ColumnDescriptor
	Rows() int
	// Value returns the row's element, or a slice of Repeat elements.
	Value(row int) any
	isColumn()
}

type NumericColumn struct {
	Desc ColumnDescriptor
	// Data is flat, indexed row*Repeat+r.
	Data []float64
}

func (c *NumericColumn) Descriptor() ColumnDescriptor { return c.Desc }

func (c *NumericColumn) Rows() int { return len(c.Data) / max(c.Desc.Repeat, 1) }

func (c *NumericColumn) Row(row int) []float64 {
	r := max(c.Desc.Repeat, 1)
	if row < 0 || (row+1)*r > len(c.Data) {
		return nil
	}
	return c.Data[row*r : (row+1)*r]
}

func (c *NumericColumn) Value(row int) any {
	v := c.Row(row)
	if v == nil {
		return nil
	}
	if c.Desc.Repeat > 1 {
		return v
	}
	return v[0]
}

func (*NumericColumn) isColumn() {}

type TextColumn struct {
	Desc ColumnDescriptor
	Data []string
}

func (c *TextColumn) Descriptor() ColumnDescriptor { return c.Desc }

func (c *TextColumn) Rows() int { return len(c.Data) }

func (c *TextColumn) Value(row int) any {
	if row < 0 || row >= len(c.Data) {
		return nil
	}
	return c.Data[row]
}

func (*TextColumn) isColumn() {}

type BoolColumn struct {
	Desc ColumnDescriptor
	// Data is flat, indexed row*Repeat+r.
	Data []bool
}

func (c *BoolColumn) Descriptor() ColumnDescriptor { return c.Desc }

func (c *BoolColumn) Rows() int { return len(c.Data) / max(c.Desc.Repeat, 1) }

func (c *BoolColumn) Row(row int) []bool {
	r := max(c.Desc.Repeat, 1)
	if row < 0 || (row+1)*r > len(c.Data) {
		return nil
	}
	return c.Data[row*r : (row+1)*r]
}

func (c *BoolColumn) Value(row int) any {
	v := c.Row(row)
	if v == nil {
		return nil
	}
	if c.Desc.Repeat > 1 {
		return v
	}
	return v[0]
}

func (*BoolColumn) isColumn() {}

// Table is a decoded BINTABLE or TABLE extension.
type Table struct {
	Rows      int
	RowStride int
	ASCII     bool
	columns   []Column
	byName    map[string]int
}

func newTable(rows, stride int, ascii bool) *Table {
	return &Table{
		Rows:      rows,
		RowStride: stride,
		ASCII:     ascii,
		byName:    make(map[string]int),
	}
}

func (t *Table) add(col Column) {
	name := col.Descriptor().Name
	if _, dup := t.byName[name]; !dup {
		t.byName[name] = len(t.columns)
	}
	t.columns = append(t.columns, col)
}

// Columns returns the fields in TFIELDS order.
func (t *Table) Columns() []Column {
	return t.columns
}

func (t *Table) NumColumns() int {
	return len(t.columns)
}

// Column looks a field up by name. Duplicate names resolve to the first.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Descriptor().Name
	}
	return names
}

func (*Table) isPayload() {}
