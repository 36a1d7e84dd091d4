package places

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/breathe-server/internal/observability"
	"github.com/couchcryptid/breathe-server/internal/persistence"
)

const checkpointTimeout = 30 * time.Second

// Checkpointer persists the boundary store in the background.
type Checkpointer struct {
	store   *BoundaryStore
	writer  *persistence.Writer
	logger  *slog.Logger
	metrics *observability.Metrics

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewCheckpointer(store *BoundaryStore, writer *persistence.Writer, logger *slog.Logger, metrics *observability.Metrics) *Checkpointer {
	return &Checkpointer{store: store, writer: writer, logger: logger, metrics: metrics}
}

// Trigger starts a checkpoint without blocking the caller. The store is
// snapshotted when the goroutine runs, not when Trigger is called; since
// entries are only added, a late snapshot is a superset of the caller's view.
// Trigger is a no-op once the checkpointer is closed.
func (c *Checkpointer) Trigger(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.Flush(context.WithoutCancel(ctx)); err != nil {
			c.logger.Error("checkpoint failed", "error", err)
		}
	}()
}

// Flush writes a checkpoint synchronously.
func (c *Checkpointer) Flush(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, checkpointTimeout)
	defer cancel()

	docs := c.store.Snapshot()
	if err := WriteDocuments(ctx, c.writer, docs); err != nil {
		c.metrics.CheckpointWrites.WithLabelValues("error").Inc()
		return err
	}
	c.metrics.CheckpointWrites.WithLabelValues("success").Inc()
	c.logger.Debug("checkpoint written", "places", len(docs.Places), "boundaries", len(docs.Boundaries))
	return nil
}

// Close stops accepting triggers and waits for the running ones to finish.
func (c *Checkpointer) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.wg.Wait()
}

// Wait blocks until every triggered checkpoint has finished.
func (c *Checkpointer) Wait() {
	c.wg.Wait()
}
