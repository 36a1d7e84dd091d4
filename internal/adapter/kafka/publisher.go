package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/breathe-server/internal/config"
	"github.com/couchcryptid/breathe-server/internal/domain"
)

// PlaceDiscovered is the event published when a sensor lands in a place that
// was not in the boundary cache.
type PlaceDiscovered struct {
	EventID      string           `json:"eventId"`
	Place        domain.PlaceInfo `json:"place"`
	SensorIndex  int              `json:"sensorIndex"`
	DiscoveredAt time.Time        `json:"discoveredAt"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces discovered-place events to a Kafka topic.
// It implements places.PlaceNotifier.
type Publisher struct {
	writer messageWriter
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured places topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaPlacesTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Publisher{writer: w, clock: clockwork.NewRealClock(), logger: logger}
}

// PlaceDiscovered publishes one event keyed by placeId, so every event for a
// place lands on the same partition.
func (p *Publisher) PlaceDiscovered(ctx context.Context, info domain.PlaceInfo, sensorIndex int) error {
	msg, err := serializeToMessage(PlaceDiscovered{
		EventID:      uuid.NewString(),
		Place:        info,
		SensorIndex:  sensorIndex,
		DiscoveredAt: p.clock.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish place %s: %w", info.PlaceID, err)
	}
	p.logger.Debug("place event published", "place_id", info.PlaceID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a PlaceDiscovered event into a Kafka message.
func serializeToMessage(event PlaceDiscovered) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize place event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.Place.PlaceID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte("place_discovered")},
			{Key: "discovered_at", Value: []byte(event.DiscoveredAt.Format(time.RFC3339))},
		},
	}, nil
}
