package places

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	httpadapter "github.com/couchcryptid/breathe-server/internal/adapter/http"
	"github.com/couchcryptid/breathe-server/internal/domain"
)

// RegisterRoutes mounts the city query endpoints.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /autocomplete/{city}", s.handleAutocomplete)
	mux.HandleFunc("GET /autocomplete/{$}", s.handleAutocomplete)
	mux.HandleFunc("GET /cities/{topLeftX}/{topLeftY}/{bottomRightX}/{bottomRightY}/{excludedCities}", s.handleCities)
}

func (s *Service) handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	city := r.PathValue("city")
	if city == "" {
		s.fail(w, "autocomplete", fmt.Errorf("%w: city parameter missing: %s", domain.ErrValidation, r.URL.Path))
		return
	}

	cities, err := s.query.Autocomplete(city)
	if err != nil {
		s.fail(w, "autocomplete", err)
		return
	}
	s.metrics.QueryRequests.WithLabelValues("autocomplete", "ok").Inc()
	httpadapter.WriteJSON(w, http.StatusOK, cities)
}

func (s *Service) handleCities(w http.ResponseWriter, r *http.Request) {
	topLeft, bottomRight, err := parseCorners(r)
	if err != nil {
		s.fail(w, "cities", err)
		return
	}

	excluded, err := parseExcluded(r.PathValue("excludedCities"))
	if err != nil {
		s.fail(w, "cities", err)
		return
	}

	cities, err := s.query.BoundingBox(topLeft, bottomRight, excluded)
	if err != nil {
		s.fail(w, "cities", err)
		return
	}
	s.metrics.QueryRequests.WithLabelValues("cities", "ok").Inc()
	httpadapter.WriteJSON(w, http.StatusOK, cities)
}

func parseCorners(r *http.Request) (topLeft, bottomRight Corner, err error) {
	var v [4]float64
	for i, name := range [4]string{"topLeftX", "topLeftY", "bottomRightX", "bottomRightY"} {
		v[i], err = strconv.ParseFloat(r.PathValue(name), 64)
		if err != nil || math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			return Corner{}, Corner{}, fmt.Errorf("%w: %s is missing or malformed", domain.ErrValidation, name)
		}
	}
	return Corner{X: v[0], Y: v[1]}, Corner{X: v[2], Y: v[3]}, nil
}

// parseExcluded decodes the excluded city names. JSON null is rejected.
func parseExcluded(raw string) ([]string, error) {
	var excluded []string
	if strings.TrimSpace(raw) == "null" || json.Unmarshal([]byte(raw), &excluded) != nil {
		return nil, fmt.Errorf("%w: excludedCities must be a JSON array of strings", domain.ErrValidation)
	}
	return excluded, nil
}

func (s *Service) fail(w http.ResponseWriter, kind string, err error) {
	outcome := "error"
	switch httpadapter.StatusFor(err) {
	case http.StatusBadRequest:
		outcome = "invalid"
	case http.StatusNotFound:
		outcome = "not_found"
	default:
		s.logger.Error("query failed", "kind", kind, "error", err)
	}
	s.metrics.QueryRequests.WithLabelValues(kind, outcome).Inc()
	httpadapter.WriteError(w, err)
}
