// Package events publishes booking lifecycle events to Kafka. The publisher
// is optional: with no brokers configured the service runs with a no-op
// publisher and emits nothing.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/room-reservation/internal/booking"
)

// Event is the wire envelope for one booking lifecycle event.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Booking    BookingPayload `json:"booking"`
}

// BookingPayload is the booking snapshot carried on an event.
type BookingPayload struct {
	ID                 string    `json:"id"`
	RoomID             string    `json:"room_id"`
	UserID             string    `json:"user_id"`
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
	Purpose            string    `json:"purpose,omitempty"`
	Status             string    `json:"status"`
	CancellationReason *string   `json:"cancellation_reason,omitempty"`
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, booking.Booking) error { return nil }

func (NopPublisher) Close() error { return nil }

// KafkaPublisher writes events to a single topic, keyed by room so events for
// one room stay ordered within a partition.
type KafkaPublisher struct {
	writer      *kafka.Writer
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string, idGenerator func() string, now func() time.Time, logger *slog.Logger) *KafkaPublisher {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.Hash{},
	})
	return &KafkaPublisher{writer: writer, idGenerator: idGenerator, now: now, logger: logger}
}

// Publish emits one event. Errors are returned to the caller, which logs and
// moves on; a broker outage never affects the reservation outcome.
func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, b booking.Booking) error {
	event := Event{
		ID:         p.idGenerator(),
		Type:       eventType,
		OccurredAt: p.now().UTC(),
		Booking: BookingPayload{
			ID:                 b.ID,
			RoomID:             b.RoomID,
			UserID:             b.UserID,
			StartTime:          b.Window.Start.UTC(),
			EndTime:            b.Window.End.UTC(),
			Purpose:            b.Purpose,
			Status:             string(b.Status),
			CancellationReason: b.CancellationReason,
		},
	}

	msg, err := newMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write failed: %w", err)
	}

	p.logger.DebugContext(ctx, "event published", "event_id", event.ID, "event_type", event.Type)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func newMessage(event Event) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.Booking.RoomID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.ID)},
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}, nil
}

// SplitBrokers parses a comma separated broker list, dropping blanks.
func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
