// Package events publishes domain events for downstream consumers such as
// the notification layer. Publishing is best effort: a failed write is
// logged and never fails the request that produced it.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Event types emitted by the API.
const (
	TypeSlotCreated      = "slot.created"
	TypeSlotUpdated      = "slot.updated"
	TypeBookingRequested = "booking.requested"
	TypeBookingConfirmed = "booking.confirmed"
	TypeBookingCancelled = "booking.cancelled"
	TypeBookingRated     = "booking.rated"
)

// Envelope is the wire shape of a published event.
type Envelope struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	AggregateID string      `json:"aggregate_id"`
	OccurredAt  time.Time   `json:"occurred_at"`
	Payload     interface{} `json:"payload,omitempty"`
}

// Publisher writes domain events to a Kafka topic, keyed by aggregate ID so
// events for one offering or booking stay ordered.
type Publisher struct {
	writer   *kafka.Writer
	logger   *zap.Logger
	observer func()
}

// NewPublisher builds a publisher. With no brokers configured it becomes a
// no-op.
func NewPublisher(brokers []string, topic string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(brokers) == 0 {
		logger.Info("event publisher disabled (no kafka brokers configured)")
		return &Publisher{logger: logger}
	}

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.Hash{},
	})
	return &Publisher{writer: writer, logger: logger}
}

// Publish emits one event.
func (p *Publisher) Publish(ctx context.Context, eventType, aggregateID string, payload interface{}) {
	if p == nil || p.writer == nil {
		return
	}

	envelope := Envelope{
		ID:          uuid.NewString(),
		Type:        eventType,
		AggregateID: aggregateID,
		OccurredAt:  time.Now().UTC(),
		Payload:     payload,
	}
	value, err := json.Marshal(envelope)
	if err != nil {
		p.logger.Warn("marshal event failed", zap.String("type", eventType), zap.Error(err))
		return
	}

	msg := kafka.Message{
		Key:   []byte(aggregateID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(envelope.ID)},
			{Key: "event_type", Value: []byte(eventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("publish event failed", zap.String("type", eventType), zap.String("aggregate_id", aggregateID), zap.Error(err))
		return
	}
	if p.observer != nil {
		p.observer()
	}
}

// Observe registers a callback invoked after each successful publish.
func (p *Publisher) Observe(fn func()) {
	p.observer = fn
}

// Close releases the underlying writer.
func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
