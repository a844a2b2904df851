// Package memory is an in-process Persistence Store. With a snapshot path it
// also survives restarts by rewriting a JSON file after every commit.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"restaurant-floor/internal/store"
)

var _ store.Store = (*Store)(nil)

// snapshot is the on-disk layout of the store
type snapshot struct {
	Collections map[string]json.RawMessage `json:"collections"`
	Counters    map[string]int64           `json:"counters"`
}

type Store struct {
	mu           sync.RWMutex
	collections  map[string]json.RawMessage
	counters     map[string]int64
	snapshotPath string
	closed       bool
}

// New returns an empty store that keeps everything in memory
func New() *Store {
	return &Store{
		collections: make(map[string]json.RawMessage),
		counters:    make(map[string]int64),
	}
}

// Open returns a store backed by the snapshot at path, creating it on first commit
func Open(path string) (*Store, error) {
	s := New()
	s.snapshotPath = path

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	for name, raw := range snap.Collections {
		s.collections[name] = raw
	}
	for name, value := range snap.Counters {
		s.counters[name] = value
	}
	return s, nil
}

func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errClosed
	}
	return fn(&tx{store: s, readOnly: true})
}

func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}

	t := &tx{
		store:    s,
		staged:   make(map[string]json.RawMessage),
		counters: make(map[string]int64),
	}
	if err := fn(t); err != nil {
		return err
	}

	collections := make(map[string]json.RawMessage, len(s.collections)+len(t.staged))
	for name, raw := range s.collections {
		collections[name] = raw
	}
	for name, raw := range t.staged {
		collections[name] = raw
	}
	counters := make(map[string]int64, len(s.counters)+len(t.counters))
	for name, value := range s.counters {
		counters[name] = value
	}
	for name, value := range t.counters {
		counters[name] = value
	}

	if err := s.persist(collections, counters); err != nil {
		return err
	}
	s.collections = collections
	s.counters = counters
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errClosed
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// persist writes the snapshot through a temporary file so a crash never leaves a torn file
func (s *Store) persist(collections map[string]json.RawMessage, counters map[string]int64) error {
	if s.snapshotPath == "" {
		return nil
	}

	data, err := json.MarshalIndent(snapshot{Collections: collections, Counters: counters}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.snapshotPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".floor-snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.snapshotPath); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

var errClosed = errors.New("memory store is closed")

// tx reads through staged writes to the committed state
type tx struct {
	store    *Store
	staged   map[string]json.RawMessage
	counters map[string]int64
	readOnly bool
}

func (t *tx) Load(ctx context.Context, collection string, dst interface{}) error {
	if v := reflect.ValueOf(dst); v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("load %s: destination must be a pointer to a slice, got %T", collection, dst)
	}

	raw, ok := t.staged[collection]
	if !ok {
		raw, ok = t.store.collections[collection]
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", collection, err)
	}
	return nil
}

func (t *tx) Save(ctx context.Context, collection string, records interface{}) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", collection, err)
	}
	t.staged[collection] = raw
	return nil
}

func (t *tx) NextID(ctx context.Context, collection string) (int64, error) {
	if t.readOnly {
		return 0, store.ErrReadOnly
	}
	current, ok := t.counters[collection]
	if !ok {
		current = t.store.counters[collection]
	}
	current++
	t.counters[collection] = current
	return current, nil
}
