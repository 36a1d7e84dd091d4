package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// Sensor feed and classification metrics.
	SensorsFetched         prometheus.Gauge
	SensorsIndexed         prometheus.Counter
	ClassificationProgress prometheus.Gauge
	PlacesDiscovered       prometheus.Counter
	CycleDuration          prometheus.Histogram

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: method={reverse,boundary}, outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: method={reverse,boundary}, result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: method={reverse,boundary}

	// Persistence and query metrics.
	CheckpointWrites *prometheus.CounterVec // labels: outcome={success,error}
	QueryRequests    *prometheus.CounterVec // labels: kind={autocomplete,cities}, outcome={ok,invalid,not_found,error}

	// Scheduler metrics.
	RefreshDuration *prometheus.HistogramVec // labels: subsystem
	RefreshErrors   *prometheus.CounterVec   // labels: subsystem
	FeedItems       *prometheus.GaugeVec     // labels: subsystem
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SensorsFetched,
		m.SensorsIndexed,
		m.ClassificationProgress,
		m.PlacesDiscovered,
		m.CycleDuration,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.CheckpointWrites,
		m.QueryRequests,
		m.RefreshDuration,
		m.RefreshErrors,
		m.FeedItems,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SensorsFetched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "breathe",
			Name:      "sensors_fetched",
			Help:      "Number of sensors returned by the last feed refresh.",
		}),
		SensorsIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "breathe",
			Name:      "sensors_indexed_total",
			Help:      "Sensors attached to a place by the boundary resolver.",
		}),
		ClassificationProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "breathe",
			Name:      "classification_progress_ratio",
			Help:      "Indexed sensors divided by outdoor sensors seen in the current cycle.",
		}),
		PlacesDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "breathe",
			Name:      "places_discovered_total",
			Help:      "Places added to the boundary cache after geocoding.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "breathe",
			Name:      "classification_cycle_duration_seconds",
			Help:      "Duration of a complete classification pass.",
			Buckets:   []float64{0.1, 1, 5, 15, 30, 60, 120, 300, 600},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "breathe",
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "breathe",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by method and result.",
		}, []string{"method", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "breathe",
			Name:      "geocode_api_duration_seconds",
			Help:      "Geoapify API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		CheckpointWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "breathe",
			Name:      "checkpoint_writes_total",
			Help:      "Cache checkpoint merge-writes by outcome.",
		}, []string{"outcome"}),
		QueryRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "breathe",
			Name:      "query_requests_total",
			Help:      "City queries by kind and outcome.",
		}, []string{"kind", "outcome"}),
		RefreshDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "breathe",
			Name:      "subsystem_refresh_duration_seconds",
			Help:      "Duration of one periodic subsystem refresh.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 600},
		}, []string{"subsystem"}),
		RefreshErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "breathe",
			Name:      "subsystem_refresh_errors_total",
			Help:      "Failed periodic subsystem refreshes.",
		}, []string{"subsystem"}),
		FeedItems: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "breathe",
			Name:      "feed_items",
			Help:      "Items held from the last successful feed refresh.",
		}, []string{"subsystem"}),
	}
}
