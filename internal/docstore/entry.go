package docstore

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/samcharles93/fitskit/internal/fits"
)

// Entry is one open document. The decoded Document is immutable and safe to
// share. Derived data lives until the entry is closed or evicted, and only
// the most recently used values are kept.
type Entry struct {
	ID       string
	Path     string
	LoadedAt time.Time

	file *fits.File

	mu      sync.Mutex
	closed  bool
	derived *lru.Cache[string, any]
}

func newEntry(id, path string, f *fits.File, maxDerived int) *Entry {
	derived, _ := lru.New[string, any](max(maxDerived, 1))
	return &Entry{
		ID:       id,
		Path:     path,
		LoadedAt: time.Now(),
		file:     f,
		derived:  derived,
	}
}

func (e *Entry) Document() *fits.Document {
	return e.file.Document
}

// File exposes the raw bytes. They are invalid once the entry is closed.
func (e *Entry) File() *fits.File {
	return e.file
}

// Derived memoises build under key. Failed builds are not cached.
func (e *Entry) Derived(key string, build func() (any, error)) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	if v, ok := e.derived.Get(key); ok {
		return v, nil
	}
	v, err := build()
	if err != nil {
		return nil, err
	}
	e.derived.Add(key, v)
	return v, nil
}

func (e *Entry) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *Entry) close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.derived.Purge()
	return e.file.Close()
}
