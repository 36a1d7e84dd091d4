package places

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/breathe-server/internal/observability"
	"github.com/couchcryptid/breathe-server/internal/persistence"
)

func TestCheckpointer_TriggerAfterCloseIsNoop(t *testing.T) {
	store := NewBoundaryStore()
	store.AddPlace(place("sf", "San Francisco"), square(-122.6, 37.6, -122.3, 37.9))
	metrics := observability.NewMetricsForTesting()
	c := NewCheckpointer(store, persistence.NewWriter(newFileStore(t)), testLogger(), metrics)

	c.Trigger(context.Background())
	c.Close()
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.CheckpointWrites.WithLabelValues("success")), 0)

	c.Trigger(context.Background())
	c.Wait()
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.CheckpointWrites.WithLabelValues("success")), 0)

	require.NoError(t, c.Flush(context.Background()))
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.CheckpointWrites.WithLabelValues("success")), 0)
}
