package places

import (
	"fmt"
	"unicode/utf8"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/breathe-server/internal/domain"
)

const (
	// MinQueryLength is the shortest accepted autocomplete query, in characters.
	MinQueryLength = 3
	// MaxAutocompleteResults caps how many summaries autocomplete collects.
	MaxAutocompleteResults = 5
)

// Corner is one rectangle corner as it arrives from the cities endpoint. X is
// the latitude-like value and Y the longitude-like value, the reverse of the
// (x = longitude) order used by stored boundaries.
type Corner struct {
	X, Y float64
}

// point swaps the corner into boundary axis order.
func (c Corner) point() orb.Point {
	return orb.Point{c.Y, c.X}
}

// QueryEngine answers autocomplete and bounding-box city queries.
type QueryEngine struct {
	store      *BoundaryStore
	aggregator *Aggregator
}

func NewQueryEngine(store *BoundaryStore, aggregator *Aggregator) *QueryEngine {
	return &QueryEngine{store: store, aggregator: aggregator}
}

// Autocomplete returns summaries of places whose name contains query, ignoring
// case. Places are visited in store order and the first
// MaxAutocompleteResults that can be summarized are kept; places with too few
// sensors are skipped without counting.
func (q *QueryEngine) Autocomplete(query string) ([]domain.CitySummary, error) {
	if utf8.RuneCountInString(query) < MinQueryLength {
		return nil, fmt.Errorf("%w: city must be at least %d characters long", domain.ErrValidation, MinQueryLength)
	}

	var cities []domain.CitySummary
	for _, place := range q.store.Places() {
		if len(cities) >= MaxAutocompleteResults {
			break
		}
		if !matchName(place.Name, query) || !q.store.HasBoundary(place.PlaceID) {
			continue
		}
		if city, ok := q.aggregator.Summarize(place.PlaceID); ok {
			cities = append(cities, city)
		}
	}

	if len(cities) == 0 {
		return nil, fmt.Errorf("%w: no cities match %q", domain.ErrNotFound, query)
	}
	return Dedupe(cities), nil
}

// BoundingBox returns summaries of places whose whole boundary lies inside the
// rectangle spanned by two opposite corners. Places in excluded are skipped.
func (q *QueryEngine) BoundingBox(topLeft, bottomRight Corner, excluded []string) ([]domain.CitySummary, error) {
	rect := orb.Bound{Min: topLeft.point(), Max: topLeft.point()}.Extend(bottomRight.point())

	skip := make(map[string]struct{}, len(excluded))
	for _, id := range excluded {
		skip[id] = struct{}{}
	}

	var cities []domain.CitySummary
	for _, b := range q.store.Boundaries() {
		if _, ok := skip[b.PlaceID]; ok {
			continue
		}
		if !containsBound(rect, b.Geometry.Bound()) {
			continue
		}
		if city, ok := q.aggregator.Summarize(b.PlaceID); ok {
			cities = append(cities, city)
		}
	}

	if len(cities) == 0 {
		return nil, fmt.Errorf("%w: no cities inside the requested area", domain.ErrNotFound)
	}
	return Dedupe(cities), nil
}

// containsBound reports whether inner lies entirely within outer. For an
// axis-aligned rectangle this is equivalent to containing every vertex of the
// geometry inner was computed from.
func containsBound(outer, inner orb.Bound) bool {
	return outer.Contains(inner.Min) && outer.Contains(inner.Max)
}

// Dedupe keeps the first summary per display name and presents that name.
// Names are normalized (trailing digits trimmed) before comparison, so
// "Springfield" and "Springfield2" count as the same city.
func Dedupe(cities []domain.CitySummary) []domain.CitySummary {
	seen := make(map[string]struct{}, len(cities))
	out := make([]domain.CitySummary, 0, len(cities))
	for _, c := range cities {
		name := c.Place.DisplayName()
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		c.Place.Name = name
		out = append(out, c)
	}
	return out
}
