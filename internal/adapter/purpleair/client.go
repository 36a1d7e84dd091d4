// Package purpleair fetches sensor readings from the PurpleAir API.
package purpleair

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/breathe-server/internal/domain"
)

// Fields requested from /sensors, in response column order after sensor_index.
var requestFields = []string{"name", "latitude", "longitude", "pm2.5", "temperature", "humidity", "location_type"}

// Client implements domain.SensorFeed.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a PurpleAir client. The API key is sent as X-API-Key.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logger,
	}
}

// FetchAll returns the latest reading of every sensor. Rows missing a
// coordinate or carrying an unknown location type are skipped.
func (c *Client) FetchAll(ctx context.Context) ([]domain.Sensor, error) {
	params := url.Values{"fields": {strings.Join(requestFields, ",")}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sensors?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sensors request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("purpleair API error: status %d: %s", resp.StatusCode, body)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	sensors, skipped := payload.sensors()
	if skipped > 0 {
		c.logger.Debug("purpleair rows skipped", "skipped", skipped, "kept", len(sensors))
	}
	return sensors, nil
}

// PurpleAir returns rows as positional arrays described by a fields header.

type response struct {
	Fields []string            `json:"fields"`
	Data   [][]json.RawMessage `json:"data"`
}

func (r response) sensors() ([]domain.Sensor, int) {
	col := make(map[string]int, len(r.Fields))
	for i, f := range r.Fields {
		col[f] = i
	}

	out := make([]domain.Sensor, 0, len(r.Data))
	skipped := 0
	for _, row := range r.Data {
		s, ok := parseRow(row, col)
		if !ok {
			skipped++
			continue
		}
		out = append(out, s)
	}
	return out, skipped
}

func parseRow(row []json.RawMessage, col map[string]int) (domain.Sensor, bool) {
	var (
		s            domain.Sensor
		lat, lon     *float64
		pm25         *float64
		temp, hum    *float64
		locationType *int
		index        *int
	)
	decode(row, col, "sensor_index", &index)
	decode(row, col, "name", &s.Name)
	decode(row, col, "latitude", &lat)
	decode(row, col, "longitude", &lon)
	decode(row, col, "pm2.5", &pm25)
	decode(row, col, "temperature", &temp)
	decode(row, col, "humidity", &hum)
	decode(row, col, "location_type", &locationType)

	if index == nil || lat == nil || lon == nil {
		return domain.Sensor{}, false
	}
	lt := domain.LocationOutdoor
	if locationType != nil {
		var err error
		if lt, err = domain.ParseLocationType(*locationType); err != nil {
			return domain.Sensor{}, false
		}
	}

	s.Index = *index
	s.Coordinate = domain.Coordinate{Latitude: *lat, Longitude: *lon}
	s.LocationType = lt
	if pm25 != nil {
		s.AirQuality = domain.AirQuality{AQI: domain.AQIFromPM25(*pm25), PM25: *pm25}
	}
	if temp != nil {
		s.Temperature = *temp
	}
	if hum != nil {
		s.Humidity = *hum
	}
	return s, true
}

// decode unmarshals a named column into dst, leaving dst untouched when the
// column is absent, null, or of the wrong type.
func decode(row []json.RawMessage, col map[string]int, name string, dst any) {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return
	}
	_ = json.Unmarshal(row[i], dst)
}
