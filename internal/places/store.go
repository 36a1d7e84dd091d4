package places

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/couchcryptid/breathe-server/internal/domain"
	"github.com/couchcryptid/breathe-server/internal/persistence"
)

// Keys of the three persisted cache documents.
const (
	KeyBoundaries = "boundariesByPlace"
	KeySensors    = "sensorsByPlace"
	KeyPlaceInfo  = "placeInfoByPlace"
)

// CacheKeys lists every document the store persists.
var CacheKeys = []string{KeyBoundaries, KeySensors, KeyPlaceInfo}

// Boundary pairs a place with its outline.
type Boundary struct {
	PlaceID  string
	Geometry orb.Geometry
}

// BoundaryStore holds place boundaries, place metadata, and which sensors
// belong to which place. Entries are only ever added.
//
// Boundaries are scanned in insertion order so classification is
// deterministic for a given load and discovery sequence.
type BoundaryStore struct {
	mu         sync.RWMutex
	order      []string
	boundaries map[string]orb.Geometry
	places     map[string]domain.PlaceInfo
	sensors    map[string]map[int]struct{}
	assigned   map[int]string
}

func NewBoundaryStore() *BoundaryStore {
	return &BoundaryStore{
		boundaries: make(map[string]orb.Geometry),
		places:     make(map[string]domain.PlaceInfo),
		sensors:    make(map[string]map[int]struct{}),
		assigned:   make(map[int]string),
	}
}

// Classify returns the first stored boundary containing pt. pt must be in
// GeoJSON axis order (longitude, latitude).
func (s *BoundaryStore) Classify(pt orb.Point) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.order {
		if contains(s.boundaries[id], pt) {
			return id, true
		}
	}
	return "", false
}

func contains(g orb.Geometry, pt orb.Point) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(geom, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geom, pt)
	case orb.Ring:
		return planar.RingContains(geom, pt)
	default:
		return false
	}
}

// AddPlace records (or replaces) a place's metadata and boundary.
func (s *BoundaryStore) AddPlace(info domain.PlaceInfo, geom orb.Geometry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addPlaceLocked(info.PlaceID, geom)
	s.places[info.PlaceID] = info
}

func (s *BoundaryStore) addPlaceLocked(id string, geom orb.Geometry) {
	if _, ok := s.boundaries[id]; !ok {
		s.order = append(s.order, id)
	}
	s.boundaries[id] = geom
}

// Attach links a sensor to a place. It returns false if the sensor already
// belongs to any place; assignments are never revised.
func (s *BoundaryStore) Attach(placeID string, sensorIndex int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attachLocked(placeID, sensorIndex)
}

func (s *BoundaryStore) attachLocked(placeID string, sensorIndex int) bool {
	if _, taken := s.assigned[sensorIndex]; taken {
		return false
	}
	set, ok := s.sensors[placeID]
	if !ok {
		set = make(map[int]struct{})
		s.sensors[placeID] = set
	}
	set[sensorIndex] = struct{}{}
	s.assigned[sensorIndex] = placeID
	return true
}

// PlaceOf returns the place a sensor is attached to.
func (s *BoundaryStore) PlaceOf(sensorIndex int) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.assigned[sensorIndex]
	return id, ok
}

// IndexedCount is the number of sensors attached to any place.
func (s *BoundaryStore) IndexedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.assigned)
}

func (s *BoundaryStore) Place(placeID string) (domain.PlaceInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.places[placeID]
	return info, ok
}

func (s *BoundaryStore) HasBoundary(placeID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.boundaries[placeID]
	return ok
}

// SensorIndices returns the place's sensors in ascending index order.
func (s *BoundaryStore) SensorIndices(placeID string) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedIndices(s.sensors[placeID])
}

// Places copies the metadata of every place, in boundary insertion order
// followed by any place whose boundary is not yet known.
func (s *BoundaryStore) Places() []domain.PlaceInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.PlaceInfo, 0, len(s.places))
	seen := make(map[string]struct{}, len(s.order))
	for _, id := range s.order {
		if info, ok := s.places[id]; ok {
			out = append(out, info)
			seen[id] = struct{}{}
		}
	}
	var rest []domain.PlaceInfo
	for id, info := range s.places {
		if _, ok := seen[id]; !ok {
			rest = append(rest, info)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].PlaceID < rest[j].PlaceID })
	return append(out, rest...)
}

// Boundaries copies the boundary list in scan order. Geometries are shared
// and must not be modified.
func (s *BoundaryStore) Boundaries() []Boundary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Boundary, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, Boundary{PlaceID: id, Geometry: s.boundaries[id]})
	}
	return out
}

// Len returns the number of known boundaries.
func (s *BoundaryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Documents is the persisted form of the store.
type Documents struct {
	Boundaries map[string]*geojson.Geometry
	Sensors    map[string][]int
	Places     map[string]domain.PlaceInfo
}

// Snapshot copies the store into its persisted form.
func (s *BoundaryStore) Snapshot() Documents {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := Documents{
		Boundaries: make(map[string]*geojson.Geometry, len(s.boundaries)),
		Sensors:    make(map[string][]int, len(s.sensors)),
		Places:     make(map[string]domain.PlaceInfo, len(s.places)),
	}
	for id, g := range s.boundaries {
		docs.Boundaries[id] = geojson.NewGeometry(g)
	}
	for id, set := range s.sensors {
		docs.Sensors[id] = sortedIndices(set)
	}
	for id, info := range s.places {
		docs.Places[id] = info
	}
	return docs
}

// Restore merges persisted documents into the store. Places are added in
// placeId order. A sensor listed under several places keeps the first.
func (s *BoundaryStore) Restore(docs Documents) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range sortedKeys(docs.Boundaries) {
		g := docs.Boundaries[id]
		if g == nil || g.Coordinates == nil {
			continue
		}
		s.addPlaceLocked(id, g.Geometry())
	}
	for id, info := range docs.Places {
		s.places[id] = info
	}
	for _, id := range sortedKeys(docs.Sensors) {
		for _, idx := range docs.Sensors[id] {
			s.attachLocked(id, idx)
		}
	}
}

// LoadDocuments reads the three cache documents. Missing or corrupt documents
// load as empty.
func LoadDocuments(ctx context.Context, store persistence.Store) Documents {
	boundaries, _ := persistence.Load[map[string]*geojson.Geometry](ctx, store, KeyBoundaries)
	sensors, _ := persistence.Load[map[string][]int](ctx, store, KeySensors)
	infos, _ := persistence.Load[map[string]domain.PlaceInfo](ctx, store, KeyPlaceInfo)
	return Documents{Boundaries: boundaries, Sensors: sensors, Places: infos}
}

// WriteDocuments merge-writes each document, new values winning.
func WriteDocuments(ctx context.Context, w *persistence.Writer, docs Documents) error {
	if err := persistence.MergeWrite(ctx, w, KeyBoundaries, docs.Boundaries, persistence.MergeMaps[string, *geojson.Geometry]); err != nil {
		return err
	}
	if err := persistence.MergeWrite(ctx, w, KeySensors, docs.Sensors, persistence.MergeMaps[string, []int]); err != nil {
		return err
	}
	return persistence.MergeWrite(ctx, w, KeyPlaceInfo, docs.Places, persistence.MergeMaps[string, domain.PlaceInfo])
}

// matchName reports whether a place name contains query, ignoring case.
func matchName(name, query string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(query))
}

func sortedIndices(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for idx := range set {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
