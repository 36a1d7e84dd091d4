package geoapify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/breathe-server/internal/domain"
	"github.com/couchcryptid/breathe-server/internal/observability"
)

const (
	methodReverse  = "reverse"
	methodBoundary = "boundary"
)

// Client implements domain.Geocoder using the Geoapify reverse geocoding and
// place details APIs.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Geoapify client.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// ReverseGeocode resolves a coordinate to the city containing it.
func (c *Client) ReverseGeocode(ctx context.Context, coord domain.Coordinate) (domain.PlaceInfo, bool, error) {
	params := url.Values{
		"lat":    {strconv.FormatFloat(coord.Latitude, 'f', 6, 64)},
		"lon":    {strconv.FormatFloat(coord.Longitude, 'f', 6, 64)},
		"type":   {"city"},
		"format": {"json"},
		"apiKey": {c.apiKey},
	}

	body, err := c.get(ctx, methodReverse, c.baseURL+"/v1/geocode/reverse?"+params.Encode())
	if err != nil {
		return domain.PlaceInfo{}, false, err
	}

	var resp reverseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.observe(methodReverse, "error")
		return domain.PlaceInfo{}, false, fmt.Errorf("decode reverse response: %w", err)
	}

	if len(resp.Results) == 0 || resp.Results[0].PlaceID == "" {
		c.observe(methodReverse, "empty")
		return domain.PlaceInfo{}, false, nil
	}

	r := resp.Results[0]
	name := r.City
	if name == "" {
		name = r.Name
	}
	c.observe(methodReverse, "success")
	return domain.PlaceInfo{
		PlaceID:    r.PlaceID,
		Coordinate: domain.Coordinate{Latitude: r.Lat, Longitude: r.Lon},
		Name:       name,
	}, true, nil
}

// Boundary fetches the outline of a place. Only polygonal geometries count as
// boundaries; a place whose details carry just a point reports false.
func (c *Client) Boundary(ctx context.Context, placeID string) (orb.Geometry, bool, error) {
	params := url.Values{
		"id":       {placeID},
		"features": {"details"},
		"apiKey":   {c.apiKey},
	}

	body, err := c.get(ctx, methodBoundary, c.baseURL+"/v2/place-details?"+params.Encode())
	if err != nil {
		return nil, false, err
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		c.observe(methodBoundary, "error")
		return nil, false, fmt.Errorf("decode place details: %w", err)
	}

	geom := boundaryOf(fc)
	if geom == nil {
		c.observe(methodBoundary, "empty")
		return nil, false, nil
	}
	c.observe(methodBoundary, "success")
	return geom, true, nil
}

// boundaryOf prefers the "details" feature and falls back to any polygonal one.
func boundaryOf(fc *geojson.FeatureCollection) orb.Geometry {
	var fallback orb.Geometry
	for _, f := range fc.Features {
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			continue
		}
		if f.Properties.MustString("feature_type", "") == "details" {
			return f.Geometry
		}
		if fallback == nil {
			fallback = f.Geometry
		}
	}
	return fallback
}

func (c *Client) get(ctx context.Context, method, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.GeocodeAPIDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		c.observe(method, "error")
		return nil, fmt.Errorf("%s request: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe(method, "error")
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.observe(method, "error")
		c.logger.Warn("geoapify request failed", "method", method, "status", resp.StatusCode)
		return nil, fmt.Errorf("geoapify API error: status %d: %s", resp.StatusCode, body)
	}
	return body, nil
}

func (c *Client) observe(method, outcome string) {
	c.metrics.GeocodeRequests.WithLabelValues(method, outcome).Inc()
}

// Geoapify API response types.

type reverseResponse struct {
	Results []reverseResult `json:"results"`
}

type reverseResult struct {
	PlaceID string  `json:"place_id"`
	City    string  `json:"city"`
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}
