package places

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/couchcryptid/breathe-server/internal/domain"
	"github.com/couchcryptid/breathe-server/internal/observability"
)

// DefaultCheckpointEvery is how many sensors are processed between checkpoints.
const DefaultCheckpointEvery = 10

// PlaceNotifier is told about every newly discovered place.
type PlaceNotifier interface {
	PlaceDiscovered(ctx context.Context, info domain.PlaceInfo, sensorIndex int) error
}

// CycleStats summarizes one classification pass.
type CycleStats struct {
	CycleID    string
	Outdoor    int // outdoor sensors in the input
	Candidates int // outdoor sensors not yet attached to a place
	Classified int // attached to an already known boundary
	Discovered int // attached to a newly geocoded place
	Failed     int // left unassigned after a failed lookup
	Progress   float64
}

// Resolver assigns unattached outdoor sensors to places.
type Resolver struct {
	store           *BoundaryStore
	geocoder        domain.Geocoder
	checkpoints     *Checkpointer
	notifier        PlaceNotifier
	timeout         time.Duration
	checkpointEvery int
	logger          *slog.Logger
	metrics         *observability.Metrics
}

// ResolverOptions configures a Resolver. Geocoder and Notifier may be nil.
type ResolverOptions struct {
	Geocoder        domain.Geocoder
	Notifier        PlaceNotifier
	Timeout         time.Duration // per geocoding call and per notification
	CheckpointEvery int
}

func NewResolver(store *BoundaryStore, checkpoints *Checkpointer, opts ResolverOptions, logger *slog.Logger, metrics *observability.Metrics) *Resolver {
	if opts.CheckpointEvery <= 0 {
		opts.CheckpointEvery = DefaultCheckpointEvery
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Resolver{
		store:           store,
		geocoder:        opts.Geocoder,
		checkpoints:     checkpoints,
		notifier:        opts.Notifier,
		timeout:         opts.Timeout,
		checkpointEvery: opts.CheckpointEvery,
		logger:          logger,
		metrics:         metrics,
	}
}

// Classify returns the first known place whose boundary contains coord.
func (r *Resolver) Classify(coord domain.Coordinate) (string, bool) {
	return r.store.Classify(coord.Point())
}

// Resolve attaches a sensor to a place, geocoding when no known boundary
// contains it. It reports whether the place was newly discovered. Lookup
// failures wrap domain.ErrLookup and leave the sensor unassigned.
func (r *Resolver) Resolve(ctx context.Context, sensor domain.Sensor) (placeID string, discovered bool, err error) {
	if id, ok := r.Classify(sensor.Coordinate); ok {
		r.store.Attach(id, sensor.Index)
		return id, false, nil
	}
	if r.geocoder == nil {
		return "", false, fmt.Errorf("%w: geocoding disabled", domain.ErrLookup)
	}

	info, err := r.reverseGeocode(ctx, sensor.Coordinate)
	if err != nil {
		return "", false, err
	}
	geom, err := r.boundary(ctx, info.PlaceID)
	if err != nil {
		return "", false, err
	}

	r.store.AddPlace(info, geom)
	r.store.Attach(info.PlaceID, sensor.Index)
	return info.PlaceID, true, nil
}

func (r *Resolver) reverseGeocode(ctx context.Context, coord domain.Coordinate) (domain.PlaceInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	info, ok, err := r.geocoder.ReverseGeocode(ctx, coord)
	if err != nil {
		return domain.PlaceInfo{}, fmt.Errorf("%w: reverse geocode %.5f,%.5f: %v", domain.ErrLookup, coord.Latitude, coord.Longitude, err)
	}
	if !ok || info.PlaceID == "" {
		return domain.PlaceInfo{}, fmt.Errorf("%w: no place at %.5f,%.5f", domain.ErrLookup, coord.Latitude, coord.Longitude)
	}
	return info, nil
}

func (r *Resolver) boundary(ctx context.Context, placeID string) (orb.Geometry, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	geom, ok, err := r.geocoder.Boundary(ctx, placeID)
	if err != nil {
		return nil, fmt.Errorf("%w: boundary %s: %v", domain.ErrLookup, placeID, err)
	}
	if !ok || geom == nil {
		return nil, fmt.Errorf("%w: no boundary for %s", domain.ErrLookup, placeID)
	}
	return geom, nil
}

// RunCycle classifies every outdoor sensor that is not yet attached to a
// place. Sensors are processed one at a time in input order, because the
// first matching boundary wins. A checkpoint is triggered every
// checkpointEvery sensors and once more at the end; RunCycle returns after
// all of them have been written.
func (r *Resolver) RunCycle(ctx context.Context, sensors []domain.Sensor) CycleStats {
	start := time.Now()
	stats := CycleStats{CycleID: uuid.NewString()}
	logger := r.logger.With("cycle_id", stats.CycleID)

	candidates := make([]domain.Sensor, 0, len(sensors))
	for _, s := range sensors {
		if !s.Outdoor() {
			continue
		}
		stats.Outdoor++
		if _, ok := r.store.PlaceOf(s.Index); ok {
			continue
		}
		candidates = append(candidates, s)
	}
	stats.Candidates = len(candidates)
	logger.Info("classification started", "outdoor", stats.Outdoor, "candidates", stats.Candidates)

	for i, s := range candidates {
		if ctx.Err() != nil {
			logger.Info("classification interrupted", "processed", i, "reason", ctx.Err())
			break
		}
		if i%r.checkpointEvery == 0 {
			r.checkpoints.Trigger(ctx)
			stats.Progress = r.logProgress(logger, stats, i)
		}

		placeID, discovered, err := r.Resolve(ctx, s)
		if err != nil {
			stats.Failed++
			logger.Warn("sensor left unassigned", "sensor", s.Index, "error", err)
			continue
		}
		r.metrics.SensorsIndexed.Inc()
		if !discovered {
			stats.Classified++
			continue
		}

		stats.Discovered++
		r.metrics.PlacesDiscovered.Inc()
		logger.Info("place discovered", "place_id", placeID, "sensor", s.Index)
		r.notify(ctx, logger, placeID, s.Index)
	}

	r.checkpoints.Trigger(ctx)
	r.checkpoints.Wait()

	stats.Progress = r.logProgress(logger, stats, len(candidates))
	r.metrics.CycleDuration.Observe(time.Since(start).Seconds())
	logger.Info("classification finished",
		"classified", stats.Classified,
		"discovered", stats.Discovered,
		"failed", stats.Failed,
		"duration", time.Since(start),
	)
	return stats
}

func (r *Resolver) notify(ctx context.Context, logger *slog.Logger, placeID string, sensorIndex int) {
	if r.notifier == nil {
		return
	}
	info, ok := r.store.Place(placeID)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.notifier.PlaceDiscovered(ctx, info, sensorIndex); err != nil {
		logger.Warn("place notification failed", "place_id", placeID, "error", err)
	}
}

// logProgress reports the share of this cycle's outdoor sensors that are
// attached to a place.
func (r *Resolver) logProgress(logger *slog.Logger, stats CycleStats, processed int) float64 {
	outdoor := stats.Outdoor
	indexed := outdoor - stats.Candidates + stats.Classified + stats.Discovered
	var progress float64
	if outdoor > 0 {
		progress = float64(indexed) / float64(outdoor)
	}
	r.metrics.ClassificationProgress.Set(progress)
	logger.Info("classification progress",
		"checkpoint", processed/r.checkpointEvery,
		"processed", processed,
		"indexed", indexed,
		"outdoor", outdoor,
		"progress_pct", progress*100,
	)
	return progress
}
