package domain

import (
	"context"
	"time"
)

// AirNowStation is the latest hourly PM2.5 observation of one regulatory
// monitoring site.
type AirNowStation struct {
	SiteID     string     `json:"siteId"`
	Name       string     `json:"name"`
	Agency     string     `json:"agency"`
	Coordinate Coordinate `json:"coordinate"`
	Parameter  string     `json:"parameter"`
	AQI        int        `json:"aqi"`
	Category   int        `json:"category"`
	ObservedAt time.Time  `json:"observedAt"`
}

// Wildfire is one active incident from the national fire perimeter service.
type Wildfire struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Coordinate       Coordinate `json:"coordinate"`
	Acres            float64    `json:"acres"`
	PercentContained float64    `json:"percentContained"`
	State            string     `json:"state,omitempty"`
	DiscoveredAt     time.Time  `json:"discoveredAt"`
}

// StationFeed fetches current AirNow observations.
type StationFeed interface {
	FetchStations(ctx context.Context) ([]AirNowStation, error)
}

// WildfireFeed fetches currently active wildfire incidents.
type WildfireFeed interface {
	FetchIncidents(ctx context.Context) ([]Wildfire, error)
}
