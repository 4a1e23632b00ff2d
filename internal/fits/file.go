package fits

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// File is a decoded FITS file together with the bytes it was decoded from.
type File struct {
	Path     string
	Data     []byte
	Document *Document
	mmapped  bool
}

// Open maps path read-only and decodes it. If mmap is unavailable it falls
// back to reading the whole file. The returned file must be closed.
func Open(path string, opts Options) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size64 := st.Size()
	if size64 > int64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("%s: file too large to map", path)
	}
	size := int(size64)
	if size < BlockSize {
		return nil, formatErrorf("file of %d bytes is shorter than one %d-byte block", size, BlockSize)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		doc, derr := DecodeWithOptions(data, opts)
		if derr != nil {
			_ = unix.Munmap(data)
			return nil, derr
		}
		return &File{Path: path, Data: data, Document: doc, mmapped: true}, nil
	}

	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	doc, err := DecodeWithOptions(data, opts)
	if err != nil {
		return nil, err
	}
	return &File{Path: path, Data: data, Document: doc}, nil
}

// OpenReaderAt reads size bytes from r and decodes them without mmap.
func OpenReaderAt(r io.ReaderAt, size int64, opts Options) (*File, error) {
	if size < 0 || size > int64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("invalid size %d", size)
	}
	data, err := readAllAt(r, int(size))
	if err != nil {
		return nil, err
	}
	doc, err := DecodeWithOptions(data, opts)
	if err != nil {
		return nil, err
	}
	return &File{Data: data, Document: doc}, nil
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	data := make([]byte, size)
	n, err := r.ReadAt(data, 0)
	if err != nil && !(errors.Is(err, io.EOF) && n == size) {
		return nil, err
	}
	if n != size {
		return nil, io.ErrUnexpectedEOF
	}
	return data, nil
}

// Close releases the mapping. Slices from HeaderBytes and DataBytes must not
// be used afterwards.
func (f *File) Close() error {
	if f == nil || f.Data == nil {
		return nil
	}
	data := f.Data
	f.Data = nil
	if f.mmapped {
		f.mmapped = false
		return unix.Munmap(data)
	}
	return nil
}

// HeaderBytes returns the raw header block of HDU i, clipped to the file.
func (f *File) HeaderBytes(i int) ([]byte, bool) {
	hdu, ok := f.Document.HDU(i)
	if !ok {
		return nil, false
	}
	p := hdu.Provenance
	return f.slice(p.HeaderStart, p.HeaderSize), true
}

// DataBytes returns the raw, padded data block of HDU i, clipped to the file.
func (f *File) DataBytes(i int) ([]byte, bool) {
	hdu, ok := f.Document.HDU(i)
	if !ok {
		return nil, false
	}
	p := hdu.Provenance
	return f.slice(p.DataStart, p.DataSize), true
}

func (f *File) slice(start, n int) []byte {
	if start >= len(f.Data) {
		return nil
	}
	end := min(start+n, len(f.Data))
	return f.Data[start:end]
}
