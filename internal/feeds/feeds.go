// Package feeds serves pass-through data sets that are refreshed periodically
// and returned as-is, such as AirNow stations and active wildfires.
package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	httpadapter "github.com/couchcryptid/breathe-server/internal/adapter/http"
	"github.com/couchcryptid/breathe-server/internal/observability"
)

// FetchFunc loads the current items of a feed.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// Feed keeps the last successful fetch of one upstream data set and serves it
// at a single GET route.
type Feed[T any] struct {
	name    string
	path    string
	fetch   FetchFunc[T]
	logger  *slog.Logger
	metrics *observability.Metrics

	mu    sync.RWMutex
	items []T
}

// New creates a feed served at path (for example "/wildfires").
func New[T any](name, path string, fetch FetchFunc[T], logger *slog.Logger, metrics *observability.Metrics) *Feed[T] {
	return &Feed[T]{
		name:    name,
		path:    path,
		fetch:   fetch,
		logger:  logger.With("subsystem", name),
		metrics: metrics,
		items:   []T{},
	}
}

func (f *Feed[T]) Name() string { return f.name }

// Initialize has nothing to prepare; feeds hold no persisted state.
func (f *Feed[T]) Initialize(context.Context) error { return nil }

// Refresh replaces the held items. On failure the previous items are kept.
func (f *Feed[T]) Refresh(ctx context.Context) error {
	items, err := f.fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", f.name, err)
	}
	if items == nil {
		items = []T{}
	}

	f.mu.Lock()
	f.items = items
	f.mu.Unlock()

	f.metrics.FeedItems.WithLabelValues(f.name).Set(float64(len(items)))
	f.logger.Info("feed refreshed", "items", len(items))
	return nil
}

// Items returns the held items. The slice must not be modified.
func (f *Feed[T]) Items() []T {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.items
}

func (f *Feed[T]) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET "+f.path, func(w http.ResponseWriter, _ *http.Request) {
		httpadapter.WriteJSON(w, http.StatusOK, f.Items())
	})
}
