package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/upb/audit-trail/internal/observability"
	"go.uber.org/zap"
)

// FileSuffix is appended to a collection name to form its file name
const FileSuffix = ".db.json"

var emptyCollection = []byte("[]")

// Store persists named collections as JSON array files in a directory.
//
// Every mutation of a collection runs under that collection's writer lock and
// replaces the file through a temp file and rename, so readers in this
// process never observe a partially written file.
type Store struct {
	dir     string
	logger  *zap.Logger
	metrics *observability.Metrics
	caching bool

	mu    sync.Mutex
	locks map[string]*sync.RWMutex
	cache map[string][]byte
	// gens counts invalidations per collection; bytes read before the
	// latest invalidation are never cached
	gens map[string]uint64
}

// Option configures a Store
type Option func(*Store)

// WithMetrics records store operations on m
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithCache keeps the raw bytes of each collection in memory.
// Only safe when a Watcher invalidates entries on external edits.
func WithCache() Option {
	return func(s *Store) {
		s.caching = true
	}
}

// Open creates the data directory if needed and returns a Store rooted at it
func Open(dir string, logger *zap.Logger, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Store{
		dir:    dir,
		logger: logger,
		locks:  make(map[string]*sync.RWMutex),
		cache:  make(map[string][]byte),
		gens:   make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}

	logger.Info("file store opened", zap.String("dir", dir), zap.Bool("cache", s.caching))
	return s, nil
}

// Dir returns the data directory
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file backing the named collection
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+FileSuffix)
}

// Ping checks that the data directory is still reachable
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("data directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data path %s is not a directory", s.dir)
	}
	return nil
}

// Invalidate drops the cached bytes of a collection
func (s *Store) Invalidate(name string) {
	s.mu.Lock()
	_, had := s.cache[name]
	delete(s.cache, name)
	s.gens[name]++
	s.mu.Unlock()

	if had {
		s.metrics.IncrementCacheInvalidated(name)
		s.logger.Debug("collection cache invalidated", zap.String("collection", name))
	}
}

func (s *Store) lock(name string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.RWMutex{}
		s.locks[name] = l
	}
	return l
}

func (s *Store) cached(name string) ([]byte, bool) {
	if !s.caching {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.cache[name]
	return data, ok
}

func (s *Store) generation(name string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[name]
}

// remember caches data unless the collection was invalidated after gen
// was taken
func (s *Store) remember(name string, data []byte, gen uint64) {
	if !s.caching {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[name] != gen {
		return
	}
	s.cache[name] = data
}

// readRaw returns the collection bytes, creating an empty file when absent.
// Caller must hold the collection lock.
func (s *Store) readRaw(name string) ([]byte, error) {
	if data, ok := s.cached(name); ok {
		return data, nil
	}

	gen := s.generation(name)
	data, err := os.ReadFile(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		if err := s.writeRaw(name, emptyCollection); err != nil {
			return nil, err
		}
		s.logger.Info("collection initialised", zap.String("collection", name))
		return emptyCollection, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read collection %s: %w", name, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		data = emptyCollection
	}

	s.remember(name, data, gen)
	return data, nil
}

// writeRaw atomically replaces the collection file.
// Caller must hold the collection write lock.
func (s *Store) writeRaw(name string, data []byte) error {
	gen := s.generation(name)
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("failed to write collection %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync collection %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close collection %s: %w", name, err)
	}
	if err := os.Rename(tmpName, s.Path(name)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace collection %s: %w", name, err)
	}

	s.remember(name, data, gen)
	return nil
}

func decode[T any](name string, data []byte) ([]T, error) {
	records := []T{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode collection %s: %w", name, err)
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

func encode[T any](name string, records []T) ([]byte, error) {
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode collection %s: %w", name, err)
	}
	return data, nil
}

// Load returns the ordered records of the named collection.
// The returned slice is a fresh copy owned by the caller.
func Load[T any](ctx context.Context, s *Store, name string) (records []T, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { s.metrics.ObserveStore(name, "load", start, err) }()

	l := s.lock(name)
	l.RLock()
	defer l.RUnlock()

	data, err := s.readRaw(name)
	if err != nil {
		return nil, err
	}
	return decode[T](name, data)
}

// Save replaces the entire named collection with records
func Save[T any](ctx context.Context, s *Store, name string, records []T) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	defer func() { s.metrics.ObserveStore(name, "save", start, err) }()

	data, err := encode(name, records)
	if err != nil {
		return err
	}

	l := s.lock(name)
	l.Lock()
	defer l.Unlock()

	return s.writeRaw(name, data)
}

// Mutate loads the collection, applies fn and writes the result back while
// holding the collection writer lock. When fn returns an error nothing is
// written and the error is returned unchanged.
func Mutate[T any](ctx context.Context, s *Store, name string, fn func([]T) ([]T, error)) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	defer func() { s.metrics.ObserveStore(name, "mutate", start, err) }()

	l := s.lock(name)
	l.Lock()
	defer l.Unlock()

	data, err := s.readRaw(name)
	if err != nil {
		return err
	}
	records, err := decode[T](name, data)
	if err != nil {
		return err
	}

	records, err = fn(records)
	if err != nil {
		return err
	}

	data, err = encode(name, records)
	if err != nil {
		return err
	}
	return s.writeRaw(name, data)
}
