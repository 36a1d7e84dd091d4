package places

import (
	"sort"
	"sync"
	"time"

	"github.com/couchcryptid/breathe-server/internal/domain"
)

// SensorRegistry holds the latest fetched readings keyed by sensor index.
// Each refresh swaps in a new map; readers never see a partial refresh.
type SensorRegistry struct {
	mu        sync.RWMutex
	sensors   map[int]domain.Sensor
	updatedAt time.Time
}

func NewSensorRegistry() *SensorRegistry {
	return &SensorRegistry{sensors: make(map[int]domain.Sensor)}
}

// Replace installs a fresh set of readings. Later duplicates of an index win.
func (r *SensorRegistry) Replace(sensors []domain.Sensor, at time.Time) {
	next := make(map[int]domain.Sensor, len(sensors))
	for _, s := range sensors {
		next[s.Index] = s
	}

	r.mu.Lock()
	r.sensors = next
	r.updatedAt = at
	r.mu.Unlock()
}

func (r *SensorRegistry) Get(index int) (domain.Sensor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sensors[index]
	return s, ok
}

// Lookup resolves indices to readings, silently skipping unknown ones.
func (r *SensorRegistry) Lookup(indices []int) []domain.Sensor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Sensor, 0, len(indices))
	for _, idx := range indices {
		if s, ok := r.sensors[idx]; ok {
			out = append(out, s)
		}
	}
	return out
}

// All returns every reading ordered by sensor index.
func (r *SensorRegistry) All() []domain.Sensor {
	r.mu.RLock()
	out := make([]domain.Sensor, 0, len(r.sensors))
	for _, s := range r.sensors {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func (r *SensorRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sensors)
}

// UpdatedAt is the time of the last Replace, zero before the first refresh.
func (r *SensorRegistry) UpdatedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.updatedAt
}
