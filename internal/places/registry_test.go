package places

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/breathe-server/internal/domain"
)

func TestSensorRegistry_ReplaceSwapsWholeSet(t *testing.T) {
	r := NewSensorRegistry()
	assert.True(t, r.UpdatedAt().IsZero())

	at := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	r.Replace([]domain.Sensor{outdoor(2, 0, 0, 10), outdoor(1, 0, 0, 20)}, at)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, at, r.UpdatedAt())

	r.Replace([]domain.Sensor{outdoor(3, 0, 0, 30)}, at.Add(time.Minute))
	_, ok := r.Get(1)
	assert.False(t, ok)
	s, ok := r.Get(3)
	require.True(t, ok)
	assert.Equal(t, 30, s.AirQuality.AQI)
}

func TestSensorRegistry_LookupSkipsUnknown(t *testing.T) {
	r := NewSensorRegistry()
	r.Replace([]domain.Sensor{outdoor(1, 0, 0, 10), outdoor(2, 0, 0, 20)}, time.Now())

	got := r.Lookup([]int{2, 99, 1})
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Index)
	assert.Equal(t, 1, got[1].Index)
}

func TestSensorRegistry_AllSortedByIndex(t *testing.T) {
	r := NewSensorRegistry()
	r.Replace([]domain.Sensor{outdoor(9, 0, 0, 0), outdoor(4, 0, 0, 0), outdoor(6, 0, 0, 0)}, time.Now())

	var indices []int
	for _, s := range r.All() {
		indices = append(indices, s.Index)
	}
	assert.Equal(t, []int{4, 6, 9}, indices)
}
