package domain

import (
	"strings"
	"unicode"
)

// PlaceInfo identifies an administrative place returned by reverse geocoding.
type PlaceInfo struct {
	PlaceID    string     `json:"placeId"`
	Coordinate Coordinate `json:"coordinate"`
	Name       string     `json:"name"`
}

// DisplayName returns the place name with trailing disambiguation digits
// removed, e.g. "Springfield 2" -> "Springfield".
func (p PlaceInfo) DisplayName() string {
	return strings.TrimRightFunc(p.Name, func(r rune) bool {
		return unicode.IsDigit(r) || unicode.IsSpace(r)
	})
}

// CitySummary is the city-level view computed from a place's linked sensors.
// AirQuality, Temperature and Humidity come from one representative sensor.
type CitySummary struct {
	AirQuality    AirQuality `json:"airQuality"`
	Temperature   float64    `json:"temperature"`
	Humidity      float64    `json:"humidity"`
	Place         PlaceInfo  `json:"place"`
	LinkedSensors []int      `json:"linkedSensors"`
}
