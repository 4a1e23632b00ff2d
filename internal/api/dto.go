package api

import (
	"time"

	"github.com/samcharles93/fitskit/internal/fits"
)

type ResponseError struct {
	Message string `json:"message" yaml:"message"`
	Type    string `json:"type" yaml:"type"`
	Param   string `json:"param,omitempty" yaml:"param,omitempty"`
}

type LoadDocumentReq struct {
	Path string `json:"path"`
}

type DocumentSummary struct {
	ID         string       `json:"id,omitempty" yaml:"id,omitempty"`
	Object     string       `json:"object" yaml:"object"`
	Path       string       `json:"path" yaml:"path"`
	Size       int          `json:"size" yaml:"size"`
	LoadedAt   int64        `json:"loaded_at,omitempty" yaml:"loaded_at,omitempty"`
	HDUs       []HDUSummary `json:"hdus" yaml:"hdus"`
	Truncation string       `json:"truncation,omitempty" yaml:"truncation,omitempty"`
}

type DocumentList struct {
	Object string            `json:"object"`
	Data   []DocumentSummary `json:"data"`
}

type DeleteDocumentResp struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

type HDUSummary struct {
	Index      int            `json:"index" yaml:"index"`
	Kind       string         `json:"kind" yaml:"kind"`
	Extension  string         `json:"extension,omitempty" yaml:"extension,omitempty"`
	Cards      int            `json:"cards" yaml:"cards"`
	Provenance ProvenanceInfo `json:"provenance" yaml:"provenance"`
	Image      *ImageInfo     `json:"image,omitempty" yaml:"image,omitempty"`
	Table      *TableInfo     `json:"table,omitempty" yaml:"table,omitempty"`
}

type ProvenanceInfo struct {
	HeaderStart  int `json:"header_start" yaml:"header_start"`
	HeaderSize   int `json:"header_size" yaml:"header_size"`
	DataStart    int `json:"data_start" yaml:"data_start"`
	DataSize     int `json:"data_size" yaml:"data_size"`
	HeaderLength int `json:"header_length" yaml:"header_length"`
	DataLength   int `json:"data_length" yaml:"data_length"`
}

type ImageInfo struct {
	Axes   []int `json:"axes" yaml:"axes"`
	BitPix int   `json:"bitpix" yaml:"bitpix"`
	Pixels int   `json:"pixels" yaml:"pixels"`
}

type TableInfo struct {
	Rows    int          `json:"rows" yaml:"rows"`
	Stride  int          `json:"row_stride" yaml:"row_stride"`
	ASCII   bool         `json:"ascii" yaml:"ascii"`
	Columns []ColumnInfo `json:"columns" yaml:"columns"`
}

type ColumnInfo struct {
	Name   string `json:"name" yaml:"name"`
	Format string `json:"format" yaml:"format"`
	Unit   string `json:"unit,omitempty" yaml:"unit,omitempty"`
	Type   string `json:"type" yaml:"type"`
	Repeat int    `json:"repeat" yaml:"repeat"`
}

type HeaderResp struct {
	Index      int        `json:"index" yaml:"index"`
	Kind       string     `json:"kind" yaml:"kind"`
	Cards      []CardInfo `json:"cards" yaml:"cards"`
	Commentary []string   `json:"commentary,omitempty" yaml:"commentary,omitempty"`
}

type CardInfo struct {
	Key     string `json:"key" yaml:"key"`
	Kind    string `json:"kind" yaml:"kind"`
	Value   any    `json:"value" yaml:"value"`
	Comment string `json:"comment,omitempty" yaml:"comment,omitempty"`
}

// DataWindow is a slice of an HDU payload. Tables fill Columns and Rows,
// images fill Axes and Values. Non-finite numbers are null.
type DataWindow struct {
	Index   int      `json:"index" yaml:"index"`
	Kind    string   `json:"kind" yaml:"kind"`
	Offset  int      `json:"offset" yaml:"offset"`
	Limit   int      `json:"limit" yaml:"limit"`
	Total   int      `json:"total" yaml:"total"`
	Columns []string `json:"columns,omitempty" yaml:"columns,omitempty"`
	Rows    [][]any  `json:"rows,omitempty" yaml:"rows,omitempty"`
	Axes    []int    `json:"axes,omitempty" yaml:"axes,omitempty"`
	Values  []any    `json:"values,omitempty" yaml:"values,omitempty"`
}

type WCSResp struct {
	X     float64    `json:"x"`
	Y     float64    `json:"y"`
	World [2]float64 `json:"world"`
	CType [2]string  `json:"ctype"`
	CUnit [2]string  `json:"cunit"`
}

// NewDocumentSummary describes doc. id and loadedAt are optional.
func NewDocumentSummary(id, path string, loadedAt time.Time, doc *fits.Document) DocumentSummary {
	s := DocumentSummary{
		ID:     id,
		Object: "document",
		Path:   path,
		Size:   doc.Size(),
		HDUs:   make([]HDUSummary, 0, doc.HDUCount()),
	}
	if !loadedAt.IsZero() {
		s.LoadedAt = loadedAt.Unix()
	}
	if doc.Truncation != nil {
		s.Truncation = doc.Truncation.Error()
	}
	for i, hdu := range doc.HDUs() {
		s.HDUs = append(s.HDUs, NewHDUSummary(i, hdu))
	}
	return s
}

func NewHDUSummary(index int, hdu *fits.HDU) HDUSummary {
	p := hdu.Provenance
	out := HDUSummary{
		Index:     index,
		Kind:      hdu.Type.String(),
		Extension: hdu.Extension,
		Cards:     hdu.Header.Len(),
		Provenance: ProvenanceInfo{
			HeaderStart:  p.HeaderStart,
			HeaderSize:   p.HeaderSize,
			DataStart:    p.DataStart,
			DataSize:     p.DataSize,
			HeaderLength: p.HeaderLength,
			DataLength:   p.DataLength,
		},
	}
	if img, ok := hdu.Image(); ok {
		out.Image = &ImageInfo{Axes: img.Axes, BitPix: img.BitPix, Pixels: len(img.Data)}
	}
	if t, ok := hdu.Table(); ok {
		info := &TableInfo{Rows: t.Rows, Stride: t.RowStride, ASCII: t.ASCII}
		for _, col := range t.Columns() {
			d := col.Descriptor()
			info.Columns = append(info.Columns, ColumnInfo{
				Name:   d.Name,
				Format: d.Format,
				Unit:   d.Unit,
				Type:   d.Type.String(),
				Repeat: d.Repeat,
			})
		}
		out.Table = info
	}
	return out
}

func NewHeaderResp(index int, hdu *fits.HDU) HeaderResp {
	out := HeaderResp{
		Index:      index,
		Kind:       hdu.Type.String(),
		Cards:      make([]CardInfo, 0, hdu.Header.Len()),
		Commentary: hdu.Header.Commentary,
	}
	for _, card := range hdu.Header.Cards {
		out.Cards = append(out.Cards, CardInfo{
			Key:     card.Key,
			Kind:    card.Value.Kind.String(),
			Value:   finite(card.Value.Any()),
			Comment: card.Comment,
		})
	}
	return out
}
