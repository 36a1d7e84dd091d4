// Package wildfire fetches active incident locations from the NIFC WFIGS
// ArcGIS feature service.
package wildfire

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/breathe-server/internal/domain"
)

var outFields = []string{
	"IrwinID", "IncidentName", "IncidentSize", "PercentContained", "POOState", "FireDiscoveryDateTime",
}

// Client implements domain.WildfireFeed.
type Client struct {
	httpClient *http.Client
	queryURL   string
	logger     *slog.Logger
}

// NewClient creates a client for the feature layer query endpoint at queryURL.
func NewClient(queryURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		queryURL:   queryURL,
		logger:     logger,
	}
}

// FetchIncidents returns every incident with a point location, largest first.
func (c *Client) FetchIncidents(ctx context.Context) ([]domain.Wildfire, error) {
	params := url.Values{
		"where":     {"1=1"},
		"outFields": {strings.Join(outFields, ",")},
		"outSR":     {"4326"},
		"f":         {"geojson"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.queryURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("incidents request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wildfire API error: status %d: %s", resp.StatusCode, body)
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	fires := make([]domain.Wildfire, 0, len(fc.Features))
	for _, f := range fc.Features {
		if fire, ok := toWildfire(f); ok {
			fires = append(fires, fire)
		}
	}
	sort.SliceStable(fires, func(i, j int) bool { return fires[i].Acres > fires[j].Acres })

	if skipped := len(fc.Features) - len(fires); skipped > 0 {
		c.logger.Debug("wildfire features skipped", "skipped", skipped)
	}
	return fires, nil
}

func toWildfire(f *geojson.Feature) (domain.Wildfire, bool) {
	pt, ok := f.Geometry.(orb.Point)
	if !ok {
		return domain.Wildfire{}, false
	}
	props := f.Properties

	fire := domain.Wildfire{
		ID:               props.MustString("IrwinID", ""),
		Name:             strings.TrimSpace(props.MustString("IncidentName", "")),
		Coordinate:       domain.Coordinate{Latitude: pt.Lat(), Longitude: pt.Lon()},
		Acres:            props.MustFloat64("IncidentSize", 0),
		PercentContained: props.MustFloat64("PercentContained", 0),
		State:            strings.TrimPrefix(props.MustString("POOState", ""), "US-"),
	}
	if fire.ID == "" {
		return domain.Wildfire{}, false
	}
	if ms := props.MustFloat64("FireDiscoveryDateTime", 0); ms > 0 {
		fire.DiscoveredAt = time.UnixMilli(int64(ms)).UTC()
	}
	return fire, true
}
