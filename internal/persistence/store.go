// Package persistence stores the place caches as whole JSON documents under
// string keys. Backends only move bytes; typed loading and merging live in
// [Load] and [MergeWrite].
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/couchcryptid/breathe-server/internal/domain"
)

// ErrNotExist is returned by Store.Read when no document is stored under a key.
var ErrNotExist = errors.New("document does not exist")

// Store is a keyed document backend.
type Store interface {
	// Read returns the raw document, or ErrNotExist.
	Read(ctx context.Context, key string) ([]byte, error)
	// Write overwrites the whole document.
	Write(ctx context.Context, key string, data []byte) error
	// Delete removes the document. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Ensure creates an empty document if none exists.
	Ensure(ctx context.Context, key string) error
	Close() error
}

// Load decodes the document under key. A missing, empty, or corrupt document
// yields the zero value and false; the failure is never surfaced.
func Load[T any](ctx context.Context, s Store, key string) (T, bool) {
	var v T
	data, err := s.Read(ctx, key)
	if err != nil || len(data) == 0 {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		var zero T
		return zero, false
	}
	return v, true
}

// MergeFunc combines the stored document (nil when absent or unreadable) with
// a partial update.
type MergeFunc[T any] func(existing *T, partial T) T

// Writer serializes merge-writes so concurrent checkpoints cannot interleave
// their read-modify-write sequences on the same store.
type Writer struct {
	store Store
	mu    sync.Mutex
}

// NewWriter wraps a store for merge-writes.
func NewWriter(s Store) *Writer {
	return &Writer{store: s}
}

// Store returns the underlying backend.
func (w *Writer) Store() Store {
	return w.store
}

// MergeWrite loads the document under key, merges partial into it and writes
// the result back as a whole-document overwrite.
func MergeWrite[T any](ctx context.Context, w *Writer, key string, partial T, merge MergeFunc[T]) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var existing *T
	if v, ok := Load[T](ctx, w.store, key); ok {
		existing = &v
	}
	merged := merge(existing, partial)

	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", domain.ErrPersistence, key, err)
	}
	if err := w.store.Write(ctx, key, data); err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrPersistence, key, err)
	}
	return nil
}

// MergeMaps is the default merge policy: key-wise union, partial wins conflicts.
func MergeMaps[K comparable, V any](existing *map[K]V, partial map[K]V) map[K]V {
	if existing == nil || *existing == nil {
		out := make(map[K]V, len(partial))
		for k, v := range partial {
			out[k] = v
		}
		return out
	}
	out := *existing
	for k, v := range partial {
		out[k] = v
	}
	return out
}

// EnsureAll creates every missing document. A failure here is fatal at startup.
func EnsureAll(ctx context.Context, s Store, keys ...string) error {
	for _, k := range keys {
		if err := s.Ensure(ctx, k); err != nil {
			return fmt.Errorf("%w: create %s: %v", domain.ErrPersistence, k, err)
		}
	}
	return nil
}

// DeleteAll removes every listed document, stopping at the first failure.
func DeleteAll(ctx context.Context, s Store, keys ...string) error {
	for _, k := range keys {
		if err := s.Delete(ctx, k); err != nil {
			return fmt.Errorf("%w: delete %s: %v", domain.ErrPersistence, k, err)
		}
	}
	return nil
}
