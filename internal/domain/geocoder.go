package domain

import (
	"context"

	"github.com/paulmach/orb"
)

// Geocoder resolves coordinates to places and places to boundaries.
//
// Both methods return ok=false with a nil error when the provider answered but
// had nothing for the input.
type Geocoder interface {
	// ReverseGeocode maps a coordinate to the city-level place containing it.
	ReverseGeocode(ctx context.Context, coord Coordinate) (PlaceInfo, bool, error)

	// Boundary fetches the polygon or multipolygon outlining a place.
	Boundary(ctx context.Context, placeID string) (orb.Geometry, bool, error)
}

// SensorFeed fetches the latest readings for all sensors.
type SensorFeed interface {
	FetchAll(ctx context.Context) ([]Sensor, error)
}
