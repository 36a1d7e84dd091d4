package main

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/breathe-server/internal/config"
	"github.com/couchcryptid/breathe-server/internal/domain"
	"github.com/couchcryptid/breathe-server/internal/persistence"
	"github.com/couchcryptid/breathe-server/internal/places"
)

func square() *geojson.Geometry {
	return geojson.NewGeometry(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}})
}

func validDocs() places.Documents {
	return places.Documents{
		Boundaries: map[string]*geojson.Geometry{"a": square(), "b": square()},
		Sensors:    map[string][]int{"a": {1, 2}, "b": {3}},
		Places: map[string]domain.PlaceInfo{
			"a": {PlaceID: "a", Name: "Alpha"},
			"b": {PlaceID: "b", Name: "Beta"},
		},
	}
}

func failures(phases []*phase) map[string][]string {
	out := make(map[string][]string)
	for _, p := range phases {
		if !p.passed() {
			out[p.name] = p.errors
		}
	}
	return out
}

func TestCheck_ValidDocuments(t *testing.T) {
	assert.Empty(t, failures(check(validDocs())))
}

func TestCheck_EmptyDocuments(t *testing.T) {
	assert.Empty(t, failures(check(places.Documents{})))
}

func TestCheck_IndexedPlaceMissingBoundaryAndInfo(t *testing.T) {
	docs := validDocs()
	docs.Sensors["c"] = []int{9}

	got := checkIndexedPlaces(docs)
	require.Len(t, got.errors, 2)
	assert.Contains(t, got.errors[0], "no boundary")
	assert.Contains(t, got.errors[1], "no place info")
}

func TestCheck_NonPolygonalBoundary(t *testing.T) {
	docs := validDocs()
	docs.Boundaries["b"] = geojson.NewGeometry(orb.Point{1, 1})
	docs.Boundaries["c"] = nil

	got := checkBoundaries(docs)
	require.Len(t, got.errors, 2)
	assert.Contains(t, got.errors[0], "not polygonal")
	assert.Contains(t, got.errors[1], "empty boundary")
}

func TestCheck_PlaceInfoMismatch(t *testing.T) {
	docs := validDocs()
	docs.Places["a"] = domain.PlaceInfo{PlaceID: "other"}

	got := checkPlaceInfo(docs)
	require.Len(t, got.errors, 2)
	assert.Contains(t, got.errors[0], `carries id "other"`)
	assert.Contains(t, got.errors[1], "name is empty")
}

func TestCheck_SensorInTwoPlaces(t *testing.T) {
	docs := validDocs()
	docs.Sensors["b"] = append(docs.Sensors["b"], 2)

	got := checkSensorOwnership(docs)
	require.Len(t, got.errors, 1)
	assert.Equal(t, "sensor 2: assigned to both a and b", got.errors[0])
}

func TestRun_FileBackend(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{CacheBackend: config.CacheBackendFile, CacheDir: t.TempDir()}

	store, err := persistence.NewFileStore(cfg.CacheDir)
	require.NoError(t, err)
	require.NoError(t, places.WriteDocuments(ctx, persistence.NewWriter(store), validDocs()))

	assert.Equal(t, 0, run(ctx, cfg, false))

	assert.Equal(t, 0, run(ctx, cfg, true))
	docs := places.LoadDocuments(ctx, store)
	assert.Empty(t, docs.Sensors)
}
