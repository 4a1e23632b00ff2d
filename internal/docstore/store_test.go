package docstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samcharles93/fitskit/internal/fits"
)

// minimalFITS is a dataless primary HDU.
func minimalFITS() []byte {
	var b []byte
	for _, c := range []string{
		fmt.Sprintf("%-8s= %20s", "SIMPLE", "T"),
		fmt.Sprintf("%-8s= %20d", "BITPIX", 8),
		fmt.Sprintf("%-8s= %20d", "NAXIS", 0),
		"END",
	} {
		b = append(b, fmt.Sprintf("%-80s", c)...)
	}
	return append(b, bytes.Repeat([]byte{' '}, fits.BlockSize-len(b))...)
}

func writeFITS(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, minimalFITS(), 0o644))
	return path
}

// memoryOpen decodes minimalFITS for any path and counts calls.
func memoryOpen(calls *atomic.Int32, gate <-chan struct{}) OpenFunc {
	return func(path string, opts fits.Options) (*fits.File, error) {
		calls.Add(1)
		if gate != nil {
			<-gate
		}
		buf := minimalFITS()
		f, err := fits.OpenReaderAt(bytes.NewReader(buf), int64(len(buf)), opts)
		if err != nil {
			return nil, err
		}
		f.Path = path
		return f, nil
	}
}

func TestLoadFromDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFITS(t, dir, "a.fits")
	s := New(Config{})
	t.Cleanup(func() { _ = s.CloseAll() })

	e, err := s.Load(context.Background(), path)
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, path, e.Path)
	assert.Equal(t, 1, e.Document().HDUCount())

	again, err := s.Load(context.Background(), dir+string(filepath.Separator)+"."+string(filepath.Separator)+"a.fits")
	require.NoError(t, err)
	assert.Same(t, e, again)

	got, err := s.Get(e.ID)
	require.NoError(t, err)
	assert.Same(t, e, got)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	s := New(Config{})
	_, err := s.Load(context.Background(), "  ")
	require.Error(t, err)

	_, err = s.Load(context.Background(), filepath.Join(t.TempDir(), "missing.fits"))
	require.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(t.TempDir(), "bad.fits")
	require.NoError(t, os.WriteFile(bad, bytes.Repeat([]byte{'x'}, fits.BlockSize), 0o644))
	_, err = s.Load(context.Background(), bad)
	require.ErrorIs(t, err, fits.ErrFormat)
	assert.Zero(t, s.Len())
}

func TestLoadSharesInFlightDecode(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	gate := make(chan struct{})
	s := New(Config{Open: memoryOpen(&calls, gate)})

	const n = 8
	var wg sync.WaitGroup
	entries := make([]*Entry, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entries[i], errs[i] = s.Load(context.Background(), "/data/shared.fits")
		}()
	}
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := range n {
		require.NoError(t, errs[i])
		assert.Same(t, entries[0], entries[i])
	}
	assert.Equal(t, 1, s.Len())
}

func TestLoadContextDeadline(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	gate := make(chan struct{})
	s := New(Config{Open: memoryOpen(&calls, gate)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Load(ctx, "/data/slow.fits")
	require.ErrorIs(t, err, context.Canceled)

	close(gate)
	e, err := s.Load(context.Background(), "/data/slow.fits")
	require.NoError(t, err)
	assert.Equal(t, "/data/slow.fits", e.Path)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCloseInvalidatesDerived(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	s := New(Config{Open: memoryOpen(&calls, nil)})
	e, err := s.Load(context.Background(), "/data/a.fits")
	require.NoError(t, err)

	builds := 0
	build := func() (any, error) {
		builds++
		return "preview", nil
	}
	for range 3 {
		v, err := e.Derived("hdu0", build)
		require.NoError(t, err)
		assert.Equal(t, "preview", v)
	}
	assert.Equal(t, 1, builds)

	_, err = e.Derived("broken", func() (any, error) { return nil, errors.New("boom") })
	require.Error(t, err)
	_, err = e.Derived("broken", func() (any, error) { return 42, nil })
	require.NoError(t, err)

	require.NoError(t, s.Close(e.ID))
	assert.True(t, e.Closed())
	_, err = e.Derived("hdu0", build)
	require.ErrorIs(t, err, ErrClosed)

	_, err = s.Get(e.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.Close(e.ID), ErrNotFound)

	reloaded, err := s.Load(context.Background(), "/data/a.fits")
	require.NoError(t, err)
	assert.NotEqual(t, e.ID, reloaded.ID)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	s := New(Config{MaxDocuments: 2, Open: memoryOpen(&calls, nil)})
	ctx := context.Background()

	a, err := s.Load(ctx, "/data/a.fits")
	require.NoError(t, err)
	b, err := s.Load(ctx, "/data/b.fits")
	require.NoError(t, err)
	_, err = s.Get(a.ID)
	require.NoError(t, err)

	c, err := s.Load(ctx, "/data/c.fits")
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len())
	assert.True(t, b.Closed())
	assert.False(t, a.Closed())

	var paths []string
	for _, e := range s.List() {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{a.Path, c.Path}, paths)

	again, err := s.Load(ctx, "/data/b.fits")
	require.NoError(t, err)
	assert.NotEqual(t, b.ID, again.ID)
	assert.Equal(t, int32(4), calls.Load())
	assert.True(t, a.Closed())
}

func TestDerivedKeepsMostRecentValues(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	s := New(Config{MaxDerived: 2, Open: memoryOpen(&calls, nil)})
	e, err := s.Load(context.Background(), "/data/a.fits")
	require.NoError(t, err)

	builds := map[string]int{}
	derive := func(key string) {
		_, err := e.Derived(key, func() (any, error) {
			builds[key]++
			return key, nil
		})
		require.NoError(t, err)
	}
	derive("w=64")
	derive("w=128")
	derive("w=64")
	derive("w=256")
	derive("w=64")
	derive("w=128")

	assert.Equal(t, map[string]int{"w=64": 1, "w=128": 2, "w=256": 1}, builds)
}

func TestCloseAll(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	s := New(Config{Open: memoryOpen(&calls, nil)})
	a, err := s.Load(context.Background(), "/data/a.fits")
	require.NoError(t, err)
	_, err = s.Load(context.Background(), "/data/b.fits")
	require.NoError(t, err)

	require.NoError(t, s.CloseAll())
	assert.Zero(t, s.Len())
	assert.Empty(t, s.List())
	assert.True(t, a.Closed())
}
