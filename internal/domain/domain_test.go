package domain

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAQIFromPM25(t *testing.T) {
	tests := []struct {
		name string
		pm25 float64
		want int
	}{
		{"zero", 0, 0},
		{"negative clamps", -3.2, 0},
		{"top of good", 9.0, 50},
		{"bottom of moderate", 9.1, 51},
		{"moderate", 12.0, 56},
		{"top of moderate", 35.4, 100},
		{"truncated not rounded", 35.49, 100},
		{"unhealthy", 100.0, 182},
		{"hazardous ceiling", 325.4, 500},
		{"beyond table", 900, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AQIFromPM25(tt.pm25))
		})
	}
}

func TestParseLocationType(t *testing.T) {
	lt, err := ParseLocationType(0)
	require.NoError(t, err)
	assert.Equal(t, LocationOutdoor, lt)

	lt, err = ParseLocationType(1)
	require.NoError(t, err)
	assert.Equal(t, LocationIndoor, lt)

	_, err = ParseLocationType(7)
	assert.Error(t, err)
}

func TestCoordinatePoint_GeoJSONOrder(t *testing.T) {
	c := Coordinate{Latitude: 37.77, Longitude: -122.42}
	assert.Equal(t, orb.Point{-122.42, 37.77}, c.Point())
}

func TestPlaceInfoDisplayName(t *testing.T) {
	assert.Equal(t, "Springfield", PlaceInfo{Name: "Springfield2"}.DisplayName())
	assert.Equal(t, "Springfield", PlaceInfo{Name: "Springfield 12"}.DisplayName())
	assert.Equal(t, "Area 51 North", PlaceInfo{Name: "Area 51 North"}.DisplayName())
	assert.Empty(t, PlaceInfo{Name: "123"}.DisplayName())
}

func TestSensorOutdoor(t *testing.T) {
	assert.True(t, Sensor{LocationType: LocationOutdoor}.Outdoor())
	assert.False(t, Sensor{LocationType: LocationIndoor}.Outdoor())
	assert.False(t, Sensor{}.Outdoor())
}
