//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/breathe-server/internal/adapter/kafka"
	"github.com/couchcryptid/breathe-server/internal/config"
	"github.com/couchcryptid/breathe-server/internal/domain"
)

const testPlacesTopic = "test-discovered-places"

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("breathe-test"))
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start kafka container")

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestPublisher_RoundTrip publishes a discovered place and reads it back.
func TestPublisher_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testPlacesTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaPlacesTopic: testPlacesTopic}
	pub := kafka.NewPublisher(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer pub.Close()

	place := domain.PlaceInfo{
		PlaceID:    "51oak",
		Coordinate: domain.Coordinate{Latitude: 37.8044, Longitude: -122.2712},
		Name:       "Oakland",
	}
	require.NoError(t, pub.PlaceDiscovered(ctx, place, 1234))

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testPlacesTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	defer reader.Close()

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := reader.ReadMessage(readCtx)
	require.NoError(t, err, "read from places topic")

	assert.Equal(t, "51oak", string(msg.Key))
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "place_discovered", headers["event_type"])
	assert.NotEmpty(t, headers["discovered_at"])

	var event kafka.PlaceDiscovered
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, place, event.Place)
	assert.Equal(t, 1234, event.SensorIndex)
	assert.NotEmpty(t, event.EventID)
}
