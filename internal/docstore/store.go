// Package docstore keeps decoded FITS documents open between requests.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/samcharles93/fitskit/internal/fits"
	"github.com/samcharles93/fitskit/internal/logger"
)

const (
	DefaultMaxDocuments = 16
	DefaultMaxDerived   = 32
)

var (
	ErrNotFound = errors.New("docstore: document not found")
	ErrClosed   = errors.New("docstore: document closed")
)

// OpenFunc opens and decodes a FITS file. fits.Open is the default.
type OpenFunc func(path string, opts fits.Options) (*fits.File, error)

type Config struct {
	// MaxDocuments bounds the number of open documents. The least recently
	// used one is closed when a load exceeds it.
	MaxDocuments int
	// MaxDerived bounds the derived values each document memoises.
	MaxDerived    int
	DecodeOptions fits.Options
	Logger        logger.Logger
	Open          OpenFunc
}

type Store struct {
	cfg   Config
	log   logger.Logger
	group singleflight.Group
	docs  *lru.Cache[string, *Entry]

	mu     sync.Mutex
	byPath map[string]string
}

func New(cfg Config) *Store {
	if cfg.MaxDocuments <= 0 {
		cfg.MaxDocuments = DefaultMaxDocuments
	}
	if cfg.MaxDerived <= 0 {
		cfg.MaxDerived = DefaultMaxDerived
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Open == nil {
		cfg.Open = fits.Open
	}
	if cfg.DecodeOptions.Logger == nil {
		cfg.DecodeOptions.Logger = cfg.Logger.WithGroup("fits")
	}
	s := &Store{
		cfg:    cfg,
		log:    cfg.Logger,
		byPath: make(map[string]string),
	}
	// The size is positive, the only case NewWithEvict rejects.
	s.docs, _ = lru.NewWithEvict(cfg.MaxDocuments, s.release)
	return s
}

// Load returns the open document for path, decoding it on first use.
// Concurrent loads of the same path share one decode. If ctx ends first the
// caller gets ctx.Err() while the decode still completes and is cached.
func (s *Store) Load(ctx context.Context, path string) (*Entry, error) {
	key, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	if e, ok := s.lookupPath(key); ok {
		return e, nil
	}

	ch := s.group.DoChan(key, func() (any, error) {
		if e, ok := s.lookupPath(key); ok {
			return e, nil
		}
		start := time.Now()
		f, err := s.cfg.Open(key, s.cfg.DecodeOptions)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", key, err)
		}
		e := newEntry(uuid.NewString(), key, f, s.cfg.MaxDerived)
		s.insert(e)
		s.log.Info("document loaded",
			"id", e.ID,
			"path", key,
			"hdus", f.Document.HDUCount(),
			"bytes", f.Document.Size(),
			"elapsed", time.Since(start),
		)
		return e, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Entry), nil
	}
}

// Get returns an open document by ID and marks it recently used.
func (s *Store) Get(id string) (*Entry, error) {
	e, ok := s.docs.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

// List returns the open documents ordered by path.
func (s *Store) List() []*Entry {
	out := s.docs.Values()
	slices.SortFunc(out, func(a, b *Entry) int {
		return strings.Compare(a.Path, b.Path)
	})
	return out
}

func (s *Store) Len() int {
	return s.docs.Len()
}

// Close drops a document and its derived data and releases the file.
func (s *Store) Close(id string) error {
	e, ok := s.docs.Peek(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	err := e.close()
	s.docs.Remove(id)
	s.log.Info("document closed", "id", id, "path", e.Path)
	return err
}

func (s *Store) CloseAll() error {
	var errs []error
	for _, e := range s.docs.Values() {
		if err := e.close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", e.Path, err))
		}
	}
	s.docs.Purge()
	return errors.Join(errs...)
}

func (s *Store) lookupPath(key string) (*Entry, bool) {
	s.mu.Lock()
	id, ok := s.byPath[key]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	return s.docs.Get(id)
}

func (s *Store) insert(e *Entry) {
	s.mu.Lock()
	s.byPath[e.Path] = e.ID
	s.mu.Unlock()
	s.docs.Add(e.ID, e)
}

// release runs for every entry leaving the cache: eviction, Close and
// CloseAll. Entries still open at that point were evicted.
func (s *Store) release(id string, e *Entry) {
	s.mu.Lock()
	if s.byPath[e.Path] == id {
		delete(s.byPath, e.Path)
	}
	s.mu.Unlock()

	if e.Closed() {
		return
	}
	s.log.Info("document evicted", "id", id, "path", e.Path, "limit", s.cfg.MaxDocuments)
	if err := e.close(); err != nil {
		s.log.Warn("close evicted document", "id", id, "error", err)
	}
}

func cleanPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}
