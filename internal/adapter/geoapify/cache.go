package geoapify

import (
	"context"
	"fmt"
	"sync"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/breathe-server/internal/domain"
	"github.com/couchcryptid/breathe-server/internal/observability"
)

// CachedGeocoder wraps a Geocoder with in-memory LRU caches for reverse
// lookups and boundaries.
type CachedGeocoder struct {
	inner      domain.Geocoder
	reverse    *lruCache[domain.PlaceInfo]
	boundaries *lruCache[orb.Geometry]
	metrics    *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder. Each cache
// holds up to maxEntries values.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:      inner,
		reverse:    newLRUCache[domain.PlaceInfo](maxEntries),
		boundaries: newLRUCache[orb.Geometry](maxEntries),
		metrics:    metrics,
	}
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, coord domain.Coordinate) (domain.PlaceInfo, bool, error) {
	key := fmt.Sprintf("%.6f,%.6f", coord.Latitude, coord.Longitude)
	if info, ok := c.reverse.get(key); ok {
		c.hit(methodReverse)
		return info, true, nil
	}
	c.miss(methodReverse)

	info, ok, err := c.inner.ReverseGeocode(ctx, coord)
	if err != nil || !ok {
		return info, ok, err
	}
	// Only cache found places so transient "not found" responses can be retried.
	c.reverse.put(key, info)
	return info, true, nil
}

func (c *CachedGeocoder) Boundary(ctx context.Context, placeID string) (orb.Geometry, bool, error) {
	if geom, ok := c.boundaries.get(placeID); ok {
		c.hit(methodBoundary)
		return geom, true, nil
	}
	c.miss(methodBoundary)

	geom, ok, err := c.inner.Boundary(ctx, placeID)
	if err != nil || !ok {
		return geom, ok, err
	}
	c.boundaries.put(placeID, geom)
	return geom, true, nil
}

func (c *CachedGeocoder) hit(method string) {
	c.metrics.GeocodeCache.WithLabelValues(method, "hit").Inc()
}

func (c *CachedGeocoder) miss(method string) {
	c.metrics.GeocodeCache.WithLabelValues(method, "miss").Inc()
}

// lruCache is a simple thread-safe LRU cache.
type lruCache[V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key   string
	value V
	prev  *entry[V]
	next  *entry[V]
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	return &lruCache[V]{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[V]) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[V]) remove(e *entry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
