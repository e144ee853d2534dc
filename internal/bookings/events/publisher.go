// Package events delivers booking lifecycle notifications. Delivery is
// best-effort: no retry, no ordering promise beyond Kafka's per-key hashing,
// and a failed publish never fails the booking that triggered it.
package events

import (
	"context"
	"fmt"
	"resort/pkg/kafka"
	kafka_config "resort/pkg/kafka/config"
	"resort/pkg/logger"
)

const (
	TopicBookingCreated = "booking.created"
	TopicBookingDeleted = "booking.deleted"
)

// Publisher is the coordinator's notification boundary.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload map[string]any) error
	Close() error
}

type kafkaPublisher struct {
	producer *kafka.Producer
	source   string
	log      *logger.Logger
}

// NewKafkaPublisher writes every lifecycle event to one Kafka topic, carrying
// the logical event name ("booking.created", ...) as the event-type header
// and inside the payload.
func NewKafkaPublisher(cfg *kafka_config.Config, topic, source string, log *logger.Logger) (Publisher, error) {
	producer, err := kafka.NewProducer(cfg, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking events producer: %w", err)
	}

	return &kafkaPublisher{
		producer: producer,
		source:   source,
		log:      log,
	}, nil
}

func (p *kafkaPublisher) Publish(ctx context.Context, topic string, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["event"] = topic

	key, _ := payload["booking_id"].(string)
	if key == "" {
		key = topic
	}

	msg := kafka.NewMessage().
		WithKey(key).
		WithValue(payload).
		WithEventType(topic).
		WithSource(p.source).
		Build()

	return p.producer.Publish(ctx, msg)
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher drops every event. Used when events are disabled and in
// tests.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, map[string]any) error { return nil }

func (NoopPublisher) Close() error { return nil }
