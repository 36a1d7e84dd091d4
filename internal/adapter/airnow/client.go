// Package airnow fetches regulatory monitoring station observations from the
// AirNow API.
package airnow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/breathe-server/internal/domain"
)

const (
	hourLayout = "2006-01-02T15"
	obsLayout  = "2006-01-02T15:04"
	// US including Alaska and Hawaii, as minLon,minLat,maxLon,maxLat.
	defaultBBox = "-161.7,18.9,-66.9,71.4"
)

// Client implements domain.StationFeed.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewClient creates an AirNow client.
func NewClient(baseURL, apiKey string, timeout time.Duration, clock clockwork.Clock, logger *slog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		clock:      clock,
		logger:     logger,
	}
}

// FetchStations returns the latest PM2.5 observation per site over the last
// two hours, ordered by site ID.
func (c *Client) FetchStations(ctx context.Context) ([]domain.AirNowStation, error) {
	end := c.clock.Now().UTC().Truncate(time.Hour)
	params := url.Values{
		"startDate":                {end.Add(-time.Hour).Format(hourLayout)},
		"endDate":                  {end.Format(hourLayout)},
		"parameters":               {"PM25"},
		"BBOX":                     {defaultBBox},
		"dataType":                 {"A"},
		"format":                   {"application/json"},
		"verbose":                  {"1"},
		"monitorType":              {"0"},
		"includerawconcentrations": {"0"},
		"API_KEY":                  {c.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/aq/data/?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stations request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("airnow API error: status %d: %s", resp.StatusCode, body)
	}

	var obs []observation
	if err := json.NewDecoder(resp.Body).Decode(&obs); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return latestPerSite(obs), nil
}

func latestPerSite(obs []observation) []domain.AirNowStation {
	bySite := make(map[string]domain.AirNowStation, len(obs))
	for _, o := range obs {
		if o.FullAQSCode == "" || o.AQI < 0 {
			continue
		}
		observedAt, err := time.Parse(obsLayout, o.UTC)
		if err != nil {
			continue
		}
		if prev, ok := bySite[o.FullAQSCode]; ok && !observedAt.After(prev.ObservedAt) {
			continue
		}
		bySite[o.FullAQSCode] = domain.AirNowStation{
			SiteID:     o.FullAQSCode,
			Name:       o.SiteName,
			Agency:     o.AgencyName,
			Coordinate: domain.Coordinate{Latitude: o.Latitude, Longitude: o.Longitude},
			Parameter:  o.Parameter,
			AQI:        o.AQI,
			Category:   o.Category,
			ObservedAt: observedAt,
		}
	}

	out := make([]domain.AirNowStation, 0, len(bySite))
	for _, s := range bySite {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SiteID < out[j].SiteID })
	return out
}

// AirNow API response types.

type observation struct {
	Latitude    float64 `json:"Latitude"`
	Longitude   float64 `json:"Longitude"`
	UTC         string  `json:"UTC"`
	Parameter   string  `json:"Parameter"`
	AQI         int     `json:"AQI"`
	Category    int     `json:"Category"`
	SiteName    string  `json:"SiteName"`
	AgencyName  string  `json:"AgencyName"`
	FullAQSCode string  `json:"FullAQSCode"`
}
