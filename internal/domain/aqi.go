package domain

import "math"

// aqiBreakpoint is one row of the EPA PM2.5 table: concentrations in
// [cLow, cHigh] map linearly onto index values [iLow, iHigh].
type aqiBreakpoint struct {
	cLow, cHigh float64
	iLow, iHigh int
}

// pm25Breakpoints is the 2024 US EPA PM2.5 (24-hour) breakpoint table.
var pm25Breakpoints = []aqiBreakpoint{
	{0.0, 9.0, 0, 50},
	{9.1, 35.4, 51, 100},
	{35.5, 55.4, 101, 150},
	{55.5, 125.4, 151, 200},
	{125.5, 225.4, 201, 300},
	{225.5, 325.4, 301, 500},
}

// AQIFromPM25 converts a PM2.5 concentration (µg/m³) to a US AQI value.
// Negative readings clamp to 0; readings above the table clamp to 500.
func AQIFromPM25(pm25 float64) int {
	if math.IsNaN(pm25) || pm25 <= 0 {
		return 0
	}
	c := math.Floor(pm25*10) / 10
	for _, bp := range pm25Breakpoints {
		if c <= bp.cHigh {
			if c < bp.cLow {
				c = bp.cLow
			}
			ratio := float64(bp.iHigh-bp.iLow) / (bp.cHigh - bp.cLow)
			return int(math.Round(ratio*(c-bp.cLow) + float64(bp.iLow)))
		}
	}
	return 500
}
