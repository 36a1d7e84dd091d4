//go:build integration

package persistence

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests need a reachable Redis. Run with:
//   REDIS_ADDR=localhost:6379 go test -tags=integration ./internal/persistence/ -run Redis

func redisStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	prefix := fmt.Sprintf("breathe-test-%d:", time.Now().UnixNano())
	s, err := NewRedisStore(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0, prefix)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = DeleteAll(context.Background(), s, testKey)
		_ = s.Close()
	})
	return s
}

func TestRedisStore_RoundTrip(t *testing.T) {
	s := redisStore(t)
	ctx := context.Background()

	_, err := s.Read(ctx, testKey)
	assert.ErrorIs(t, err, ErrNotExist)

	require.NoError(t, s.Ensure(ctx, testKey))
	data, err := s.Read(ctx, testKey)
	require.NoError(t, err)
	assert.Empty(t, data)

	w := NewWriter(s)
	require.NoError(t, MergeWrite(ctx, w, testKey, map[string][]int{"p": {1}}, MergeMaps[string, []int]))
	require.NoError(t, s.Ensure(ctx, testKey))

	got, ok := Load[map[string][]int](ctx, s, testKey)
	require.True(t, ok)
	assert.Equal(t, map[string][]int{"p": {1}}, got)
}
