package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/breathe-server/internal/observability"
)

// Subsystem is one independently refreshed data source with its own routes.
type Subsystem interface {
	Name() string
	// Initialize runs once at startup, before the first refresh.
	Initialize(ctx context.Context) error
	// Refresh runs on every tick.
	Refresh(ctx context.Context) error
	RegisterRoutes(mux *http.ServeMux)
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
	// maxAttempts bounds the retries of a failed refresh within one tick.
	maxAttempts = 3
)

// Scheduler refreshes each subsystem on a fixed interval. Every subsystem runs
// in its own goroutine; a tick that fires while the previous refresh of the
// same subsystem is still running is dropped.
type Scheduler struct {
	subsystems []Subsystem
	interval   time.Duration
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics

	primed bool
}

// New creates a Scheduler for the given subsystems.
func New(subsystems []Subsystem, interval time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{
		subsystems: subsystems,
		interval:   interval,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
	}
}

// Initialize prepares every subsystem in order, stopping at the first failure.
func (s *Scheduler) Initialize(ctx context.Context) error {
	for _, sub := range s.subsystems {
		if err := sub.Initialize(ctx); err != nil {
			return fmt.Errorf("initialize %s: %w", sub.Name(), err)
		}
		s.logger.Info("subsystem initialized", "subsystem", sub.Name())
	}
	return nil
}

// RegisterRoutes mounts the routes of every subsystem.
func (s *Scheduler) RegisterRoutes(mux *http.ServeMux) {
	for _, sub := range s.subsystems {
		sub.RegisterRoutes(mux)
	}
}

// Prime refreshes every subsystem once, concurrently, and returns when all of
// them have finished. Failures are retried and logged like any tick. After
// Prime, Run waits for the first tick instead of refreshing immediately.
func (s *Scheduler) Prime(ctx context.Context) {
	var wg sync.WaitGroup
	for _, sub := range s.subsystems {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.refresh(ctx, sub)
		}()
	}
	wg.Wait()
	s.primed = true
	s.logger.Info("initial refresh finished", "subsystems", len(s.subsystems))
}

// Run refreshes every subsystem immediately, unless Prime already did, and
// then once per interval until the context is cancelled. It returns after all
// refreshes have stopped.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "subsystems", len(s.subsystems), "interval", s.interval)

	var wg sync.WaitGroup
	for _, sub := range s.subsystems {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, sub)
		}()
	}
	wg.Wait()

	s.logger.Info("scheduler stopped", "reason", ctx.Err())
	return nil
}

func (s *Scheduler) loop(ctx context.Context, sub Subsystem) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	if !s.primed {
		s.refresh(ctx, sub)
	}
	for {
		// Drop ticks that fired during the refresh.
		select {
		case <-ticker.Chan():
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}
		s.refresh(ctx, sub)
	}
}

// refresh runs one tick's refresh, retrying failures with exponential backoff.
func (s *Scheduler) refresh(ctx context.Context, sub Subsystem) {
	name := sub.Name()
	backoff := initialBackoff

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return
		}

		start := s.clock.Now()
		err := sub.Refresh(ctx)
		s.metrics.RefreshDuration.WithLabelValues(name).Observe(s.clock.Since(start).Seconds())
		if err == nil {
			s.logger.Debug("subsystem refreshed", "subsystem", name, "attempt", attempt)
			return
		}
		if ctx.Err() != nil {
			return
		}

		s.metrics.RefreshErrors.WithLabelValues(name).Inc()
		if attempt >= maxAttempts {
			s.logger.Error("subsystem refresh failed, waiting for next tick",
				"subsystem", name, "attempts", attempt, "error", err)
			return
		}
		s.logger.Warn("subsystem refresh failed, retrying",
			"subsystem", name, "attempt", attempt, "backoff", backoff, "error", err)
		if !s.sleepWithContext(ctx, backoff) {
			return
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

// sleepWithContext waits on the scheduler clock so backoff follows a fake clock in tests.
func (s *Scheduler) sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := s.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
