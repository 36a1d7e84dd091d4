// Package domain models air-quality sensors, the places they are grouped into,
// and the city summaries derived from them.
//
// # Data Source
//
// Sensor readings come from the PurpleAir v1 "sensors" endpoint, which returns a
// column-oriented payload: a "fields" array naming each column and a "data"
// array of rows. The feed adapter maps each row into a [Sensor].
//
// # Conventions
//
// Coordinates:
//
//	Sensors and places carry WGS-84 latitude/longitude as a [Coordinate].
//	Boundaries are GeoJSON geometries, so their points are stored in
//	(longitude, latitude) order. Converting between the two is done in one
//	place, [Coordinate.Point].
//
// Location type:
//
//	PurpleAir encodes 0 = outdoor and 1 = indoor. Only outdoor sensors are
//	grouped into places.
//
// AQI:
//
//	The 10-minute PM2.5 average (µg/m³) is converted to a US EPA Air Quality
//	Index with the piecewise-linear breakpoint table in [AQIFromPM25]. The
//	concentration is truncated to one decimal place first, per the EPA
//	technical assistance document.
//
// # Errors
//
// Failures are classified with the sentinel errors in errors.go. Callers wrap
// them with context and test with errors.Is.
package domain
