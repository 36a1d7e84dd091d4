package places

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/breathe-server/internal/domain"
)

func linkedPlace(t *testing.T, id, name string, sensors ...domain.Sensor) (*BoundaryStore, *SensorRegistry) {
	t.Helper()
	store := NewBoundaryStore()
	store.AddPlace(place(id, name), square(0, 0, 1, 1))
	for _, s := range sensors {
		require.True(t, store.Attach(id, s.Index))
	}
	registry := NewSensorRegistry()
	registry.Replace(sensors, time.Now())
	return store, registry
}

func TestAggregator_PicksMedianByAQI(t *testing.T) {
	a := outdoor(1, 0, 0, 10)
	b := outdoor(2, 0, 0, 20)
	c := outdoor(3, 0, 0, 30)
	c.Temperature, c.Humidity = 71, 40
	d := outdoor(4, 0, 0, 40)

	store, registry := linkedPlace(t, "p", "Pleasanton", d, b, c, a)
	summary, ok := NewAggregator(store, registry).Summarize("p")
	require.True(t, ok)

	assert.Equal(t, 30, summary.AirQuality.AQI)
	assert.InDelta(t, 71, summary.Temperature, 1e-9)
	assert.InDelta(t, 40, summary.Humidity, 1e-9)
	assert.Equal(t, "Pleasanton", summary.Place.Name)
	assert.Equal(t, []int{1, 2, 3, 4}, summary.LinkedSensors)
}

func TestAggregator_ThreeSensorsAreNotEnough(t *testing.T) {
	store, registry := linkedPlace(t, "p", "Pleasanton",
		outdoor(1, 0, 0, 10), outdoor(2, 0, 0, 20), outdoor(3, 0, 0, 30))

	_, ok := NewAggregator(store, registry).Summarize("p")
	assert.False(t, ok)
}

func TestAggregator_CountsOnlySensorsWithReadings(t *testing.T) {
	store, registry := linkedPlace(t, "p", "Pleasanton",
		outdoor(1, 0, 0, 10), outdoor(2, 0, 0, 20), outdoor(3, 0, 0, 30))
	store.Attach("p", 99)

	_, ok := NewAggregator(store, registry).Summarize("p")
	assert.False(t, ok)
}

func TestAggregator_UnknownPlace(t *testing.T) {
	_, ok := NewAggregator(NewBoundaryStore(), NewSensorRegistry()).Summarize("missing")
	assert.False(t, ok)
}

func TestAggregator_OddCountPicksMiddle(t *testing.T) {
	store, registry := linkedPlace(t, "p", "Pleasanton",
		outdoor(1, 0, 0, 50), outdoor(2, 0, 0, 5), outdoor(3, 0, 0, 25),
		outdoor(4, 0, 0, 100), outdoor(5, 0, 0, 1))

	summary, ok := NewAggregator(store, registry).Summarize("p")
	require.True(t, ok)
	assert.Equal(t, 25, summary.AirQuality.AQI)
	assert.Equal(t, []int{5, 2, 3, 1, 4}, summary.LinkedSensors)
}
