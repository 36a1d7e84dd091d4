package places

import (
	"sort"

	"github.com/couchcryptid/breathe-server/internal/domain"
)

// MinLinkedSensors is the sample size a place must exceed to be summarized.
const MinLinkedSensors = 3

// Aggregator builds city summaries from a place's linked sensors.
type Aggregator struct {
	store    *BoundaryStore
	registry *SensorRegistry
}

func NewAggregator(store *BoundaryStore, registry *SensorRegistry) *Aggregator {
	return &Aggregator{store: store, registry: registry}
}

// Summarize returns the summary for a place, or false when fewer than
// MinLinkedSensors+1 of its sensors have current readings or the place has no
// metadata.
//
// The representative is the median sensor by AQI (the upper median for even
// counts). AQI, temperature and humidity are all taken from that one reading,
// never averaged. Ties in AQI keep ascending sensor index order.
func (a *Aggregator) Summarize(placeID string) (domain.CitySummary, bool) {
	info, ok := a.store.Place(placeID)
	if !ok {
		return domain.CitySummary{}, false
	}

	sensors := a.registry.Lookup(a.store.SensorIndices(placeID))
	if len(sensors) <= MinLinkedSensors {
		return domain.CitySummary{}, false
	}

	sort.SliceStable(sensors, func(i, j int) bool {
		return sensors[i].AirQuality.AQI < sensors[j].AirQuality.AQI
	})
	median := sensors[len(sensors)/2]

	linked := make([]int, len(sensors))
	for i, s := range sensors {
		linked[i] = s.Index
	}

	return domain.CitySummary{
		AirQuality:    median.AirQuality,
		Temperature:   median.Temperature,
		Humidity:      median.Humidity,
		Place:         info,
		LinkedSensors: linked,
	}, true
}
