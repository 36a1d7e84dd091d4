package places

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/breathe-server/internal/domain"
	"github.com/couchcryptid/breathe-server/internal/observability"
	"github.com/couchcryptid/breathe-server/internal/persistence"
)

// Options wires a Service to its collaborators.
type Options struct {
	Feed            domain.SensorFeed
	Geocoder        domain.Geocoder // nil disables discovery of new places
	Notifier        PlaceNotifier   // nil disables discovery events
	Store           persistence.Store
	GeocodeTimeout  time.Duration
	CheckpointEvery int
	ForceClean      bool
	Clock           clockwork.Clock
}

// Service groups sensors by place. It owns the shared boundary store and
// sensor registry and hands them to the resolver, aggregator and query engine.
type Service struct {
	store       *BoundaryStore
	registry    *SensorRegistry
	checkpoints *Checkpointer
	resolver    *Resolver
	aggregator  *Aggregator
	query       *QueryEngine

	feed       domain.SensorFeed
	docs       persistence.Store
	forceClean bool
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
}

func NewService(opts Options, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	store := NewBoundaryStore()
	registry := NewSensorRegistry()
	checkpoints := NewCheckpointer(store, persistence.NewWriter(opts.Store), logger, metrics)
	aggregator := NewAggregator(store, registry)

	return &Service{
		store:       store,
		registry:    registry,
		checkpoints: checkpoints,
		resolver: NewResolver(store, checkpoints, ResolverOptions{
			Geocoder:        opts.Geocoder,
			Notifier:        opts.Notifier,
			Timeout:         opts.GeocodeTimeout,
			CheckpointEvery: opts.CheckpointEvery,
		}, logger, metrics),
		aggregator: aggregator,
		query:      NewQueryEngine(store, aggregator),
		feed:       opts.Feed,
		docs:       opts.Store,
		forceClean: opts.ForceClean,
		clock:      opts.Clock,
		logger:     logger.With("subsystem", "places"),
		metrics:    metrics,
	}
}

func (s *Service) Name() string { return "places" }

// Initialize prepares the cache documents and loads them into memory. Failing
// to create missing documents is the only fatal persistence error.
func (s *Service) Initialize(ctx context.Context) error {
	if s.forceClean {
		if err := persistence.DeleteAll(ctx, s.docs, CacheKeys...); err != nil {
			return err
		}
		s.logger.Info("place caches cleared")
	}
	if err := persistence.EnsureAll(ctx, s.docs, CacheKeys...); err != nil {
		return err
	}

	s.store.Restore(LoadDocuments(ctx, s.docs))
	s.logger.Info("place caches loaded",
		"boundaries", s.store.Len(),
		"indexed_sensors", s.store.IndexedCount(),
	)
	return nil
}

// Refresh fetches the latest readings and then classifies newly seen outdoor
// sensors. The two steps always run in that order.
func (s *Service) Refresh(ctx context.Context) error {
	sensors, err := s.feed.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("fetch sensors: %w", err)
	}
	s.registry.Replace(sensors, s.clock.Now())
	s.metrics.SensorsFetched.Set(float64(len(sensors)))
	s.logger.Info("sensor readings refreshed", "sensors", len(sensors))

	s.resolver.RunCycle(ctx, sensors)
	return nil
}

// CheckReadiness reports ready once sensor readings have been fetched.
func (s *Service) CheckReadiness(_ context.Context) error {
	if s.registry.UpdatedAt().IsZero() {
		return errors.New("sensor readings have not been fetched yet")
	}
	return nil
}

// Flush writes the current store synchronously, used at shutdown. Background
// checkpoints stop after the first call.
func (s *Service) Flush(ctx context.Context) error {
	s.checkpoints.Close()
	return s.checkpoints.Flush(ctx)
}

func (s *Service) Store() *BoundaryStore { return s.store }
func (s *Service) Registry() *SensorRegistry { return s.registry }
func (s *Service) Resolver() *Resolver { return s.resolver }
func (s *Service) Aggregator() *Aggregator { return s.aggregator }
func (s *Service) Query() *QueryEngine { return s.query }
