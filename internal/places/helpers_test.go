package places

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/breathe-server/internal/domain"
	"github.com/couchcryptid/breathe-server/internal/observability"
	"github.com/couchcryptid/breathe-server/internal/persistence"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// square builds a lon/lat box polygon.
func square(minLon, minLat, maxLon, maxLat float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{minLon, minLat}, {maxLon, minLat}, {maxLon, maxLat}, {minLon, maxLat}, {minLon, minLat},
	}}
}

func place(id, name string) domain.PlaceInfo {
	return domain.PlaceInfo{PlaceID: id, Name: name}
}

func outdoor(index int, lat, lon float64, aqi int) domain.Sensor {
	return domain.Sensor{
		Index:        index,
		Name:         "sensor",
		Coordinate:   domain.Coordinate{Latitude: lat, Longitude: lon},
		AirQuality:   domain.AirQuality{AQI: aqi},
		LocationType: domain.LocationOutdoor,
	}
}

func newFileStore(t *testing.T) *persistence.FileStore {
	t.Helper()
	store, err := persistence.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return store
}

type fakePlace struct {
	info domain.PlaceInfo
	geom orb.Polygon
}

// fakeGeocoder answers from a fixed list of places. Calls are counted.
type fakeGeocoder struct {
	mu        sync.Mutex
	places    []fakePlace
	reverseN  int
	boundaryN int
	err       error
	block     bool
}

func (g *fakeGeocoder) ReverseGeocode(ctx context.Context, c domain.Coordinate) (domain.PlaceInfo, bool, error) {
	g.mu.Lock()
	g.reverseN++
	block, err := g.block, g.err
	g.mu.Unlock()

	if block {
		<-ctx.Done()
		return domain.PlaceInfo{}, false, ctx.Err()
	}
	if err != nil {
		return domain.PlaceInfo{}, false, err
	}
	for _, p := range g.places {
		if planar.PolygonContains(p.geom, c.Point()) {
			info := p.info
			info.Coordinate = c
			return info, true, nil
		}
	}
	return domain.PlaceInfo{}, false, nil
}

func (g *fakeGeocoder) Boundary(_ context.Context, placeID string) (orb.Geometry, bool, error) {
	g.mu.Lock()
	g.boundaryN++
	g.mu.Unlock()

	for _, p := range g.places {
		if p.info.PlaceID == placeID {
			return p.geom, true, nil
		}
	}
	return nil, false, nil
}

func (g *fakeGeocoder) calls() (reverse, boundary int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reverseN, g.boundaryN
}

type discovery struct {
	placeID string
	sensor  int
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []discovery
}

func (n *recordingNotifier) PlaceDiscovered(_ context.Context, info domain.PlaceInfo, sensorIndex int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, discovery{placeID: info.PlaceID, sensor: sensorIndex})
	return nil
}

type fakeFeed struct {
	sensors []domain.Sensor
	err     error
}

func (f *fakeFeed) FetchAll(context.Context) ([]domain.Sensor, error) {
	return f.sensors, f.err
}

func newTestResolver(t *testing.T, geocoder domain.Geocoder, opts ResolverOptions) (*Resolver, *BoundaryStore, *persistence.FileStore) {
	t.Helper()
	store := NewBoundaryStore()
	docs := newFileStore(t)
	metrics := observability.NewMetricsForTesting()
	checkpoints := NewCheckpointer(store, persistence.NewWriter(docs), testLogger(), metrics)
	if geocoder != nil {
		opts.Geocoder = geocoder
	}
	return NewResolver(store, checkpoints, opts, testLogger(), metrics), store, docs
}
