package api

import (
	"fmt"
	"math"

	"github.com/samcharles93/fitskit/internal/fits"
)

const (
	DefaultDataLimit = 100
	MaxDataLimit     = 10000
)

// NewDataWindow returns up to limit table rows or image samples starting at
// offset. Image samples are counted over the flattened pixel array.
func NewDataWindow(index int, hdu *fits.HDU, offset, limit int) (DataWindow, error) {
	if offset < 0 {
		return DataWindow{}, newInvalidRequest(fmt.Sprintf("offset must be >= 0, got %d", offset))
	}
	if limit <= 0 || limit > MaxDataLimit {
		return DataWindow{}, newInvalidRequest(fmt.Sprintf("limit must be in 1..%d, got %d", MaxDataLimit, limit))
	}
	out := DataWindow{Index: index, Kind: hdu.Type.String(), Offset: offset, Limit: limit}

	switch p := hdu.Payload.(type) {
	case *fits.Table:
		out.Total = p.Rows
		out.Columns = p.ColumnNames()
		out.Rows = [][]any{}
		cols := p.Columns()
		for row := offset; row < min(p.Rows, offset+limit); row++ {
			vals := make([]any, len(cols))
			for i, col := range cols {
				vals[i] = finite(col.Value(row))
			}
			out.Rows = append(out.Rows, vals)
		}
	case *fits.Image:
		out.Total = len(p.Data)
		out.Axes = p.Axes
		out.Values = []any{}
		for i := offset; i < min(len(p.Data), offset+limit); i++ {
			out.Values = append(out.Values, finite(p.Data[i]))
		}
	default:
		return DataWindow{}, ErrNoData
	}
	return out, nil
}

// finite replaces NaN and infinities, which JSON cannot carry, with nil.
func finite(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case []float64:
		out := make([]any, len(x))
		for i, f := range x {
			out[i] = finite(f)
		}
		return out
	default:
		return v
	}
}
