package domain

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Coordinate is a WGS-84 latitude/longitude pair.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Point returns the coordinate in GeoJSON axis order (x = longitude, y = latitude),
// the order stored boundaries use.
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Longitude, c.Latitude}
}

// LocationType says whether a sensor is mounted indoors or outdoors.
type LocationType string

const (
	LocationOutdoor LocationType = "outdoor"
	LocationIndoor  LocationType = "indoor"
)

// ParseLocationType maps PurpleAir's numeric location_type to a LocationType.
func ParseLocationType(v int) (LocationType, error) {
	switch v {
	case 0:
		return LocationOutdoor, nil
	case 1:
		return LocationIndoor, nil
	default:
		return "", fmt.Errorf("unknown location type %d", v)
	}
}

// AirQuality is the pollution part of a sensor reading.
type AirQuality struct {
	AQI  int     `json:"aqi"`
	PM25 float64 `json:"pm25"`
}

// Sensor is the latest reading of one PurpleAir sensor.
type Sensor struct {
	Index        int          `json:"index"`
	Name         string       `json:"name,omitempty"`
	Coordinate   Coordinate   `json:"coordinate"`
	AirQuality   AirQuality   `json:"airQuality"`
	Temperature  float64      `json:"temperature"`
	Humidity     float64      `json:"humidity"`
	LocationType LocationType `json:"locationType"`
}

// Outdoor reports whether the sensor is eligible for place grouping.
func (s Sensor) Outdoor() bool {
	return s.LocationType == LocationOutdoor
}
