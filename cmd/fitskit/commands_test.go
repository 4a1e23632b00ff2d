package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samcharles93/fitskit/internal/fits"
	"github.com/samcharles93/fitskit/internal/preview"
)

func headerBlock(cards ...string) []byte {
	var b []byte
	for _, c := range append(cards, "END") {
		b = append(b, fmt.Sprintf("%-80s", c)...)
	}
	for len(b)%fits.BlockSize != 0 {
		b = append(b, ' ')
	}
	return b
}

func intCard(key string, v int) string {
	return fmt.Sprintf("%-8s= %20d", key, v)
}

// sampleDocument is a 3x2 BITPIX=8 image followed by a one-column table.
func sampleDocument(t *testing.T) *fits.Document {
	t.Helper()
	buf := headerBlock(
		fmt.Sprintf("%-8s= %20s", "SIMPLE", "T"),
		intCard("BITPIX", 8),
		intCard("NAXIS", 2),
		intCard("NAXIS1", 3),
		intCard("NAXIS2", 2),
		"OBJECT  = 'NGC 1275'           / target",
	)
	data := make([]byte, fits.BlockSize)
	copy(data, []byte{0, 50, 100, 150, 200, 250})
	buf = append(buf, data...)

	buf = append(buf, headerBlock(
		"XTENSION= 'BINTABLE'",
		intCard("BITPIX", 8),
		intCard("NAXIS", 2),
		intCard("NAXIS1", 4),
		intCard("NAXIS2", 3),
		intCard("PCOUNT", 0),
		intCard("GCOUNT", 1),
		intCard("TFIELDS", 1),
		"TTYPE1  = 'COUNTS  '",
		"TFORM1  = 'J       '",
		"TUNIT1  = 'ct      '",
	)...)
	rows := make([]byte, fits.BlockSize)
	for i := range 3 {
		binary.BigEndian.PutUint32(rows[i*4:], uint32(i+1))
	}
	buf = append(buf, rows...)

	doc, err := fits.Decode(buf)
	if err != nil {
		t.Fatalf("decode sample: %v", err)
	}
	return doc
}

func TestRenderInspect(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	renderInspect(&out, "sample.fits", sampleDocument(t), inspectOptions{headers: true, columns: true, hdu: -1})
	text := out.String()

	for _, want := range []string{
		"sample.fits",
		"2 HDUs",
		"image 3x2 BITPIX=8",
		"binary table 3 rows x 1 columns",
		"BINTABLE",
		"OBJECT",
		"NGC 1275",
		"COUNTS",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("inspect output missing %q:\n%s", want, text)
		}
	}
}

func TestBuildDump(t *testing.T) {
	t.Parallel()

	doc := sampleDocument(t)

	var out bytes.Buffer
	v, err := buildDump("sample.fits", doc, -1, 0, 10)
	if err != nil {
		t.Fatalf("buildDump summary: %v", err)
	}
	if err := writeDump(&out, "json", v); err != nil {
		t.Fatalf("writeDump json: %v", err)
	}
	if !strings.Contains(out.String(), `"kind": "bintable"`) {
		t.Fatalf("summary json missing bintable HDU:\n%s", out.String())
	}

	out.Reset()
	v, err = buildDump("sample.fits", doc, 1, 1, 5)
	if err != nil {
		t.Fatalf("buildDump hdu: %v", err)
	}
	if err := writeDump(&out, "yaml", v); err != nil {
		t.Fatalf("writeDump yaml: %v", err)
	}
	text := out.String()
	for _, want := range []string{"key: TTYPE1", "total: 3", "- - 2", "- - 3"} {
		if !strings.Contains(text, want) {
			t.Fatalf("yaml dump missing %q:\n%s", want, text)
		}
	}

	if _, err := buildDump("sample.fits", doc, 5, 0, 10); err == nil {
		t.Fatalf("expected out of range error")
	}
	if _, err := buildDump("sample.fits", doc, 1, 0, 0); err == nil {
		t.Fatalf("expected invalid limit error")
	}
	if err := writeDump(&out, "xml", v); err == nil {
		t.Fatalf("expected unknown format error")
	}
}

func TestWritePreview(t *testing.T) {
	t.Parallel()

	doc := sampleDocument(t)
	out := filepath.Join(t.TempDir(), "preview.png")
	if err := writePreview(doc, 0, out, preview.Options{Width: 6}); err != nil {
		t.Fatalf("writePreview: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open preview: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 6 || b.Dy() != 4 {
		t.Fatalf("preview bounds = %v, want 6x4", b)
	}

	if err := writePreview(doc, 1, out, preview.Options{}); err == nil {
		t.Fatalf("expected error for table HDU")
	}
}
