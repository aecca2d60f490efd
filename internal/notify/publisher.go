// Package notify publishes case lifecycle events to Kafka. Publishing is
// best-effort: delivery failures are logged and surfaced to the caller but
// must never fail the case that produced the event.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/casewright/petition-service/internal/domain"
)

// Publisher delivers case lifecycle events to an external broker.
type Publisher interface {
	// PublishCaseEvent publishes one event. The event's case ID is used as
	// the partition key so events for a case stay ordered.
	PublishCaseEvent(ctx context.Context, event *domain.CaseEvent) error
	// Close releases broker resources.
	Close() error
}

// EventRecorder receives publish outcomes for instrumentation. A nil
// recorder disables recording.
type EventRecorder interface {
	RecordEventPublished(outcome string)
}

// messageWriter is the subset of kafka.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic is the topic for case lifecycle events.
	Topic string
	// BatchSize is the maximum number of messages to batch before sending.
	BatchSize int
	// BatchTimeout is the maximum time to wait for a batch to fill.
	BatchTimeout time.Duration
}

// KafkaPublisher publishes case events to a Kafka topic.
type KafkaPublisher struct {
	writer  messageWriter
	logger  zerolog.Logger
	metrics EventRecorder
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher backed by a kafka-go writer.
func NewKafkaPublisher(cfg Config, logger zerolog.Logger, metrics EventRecorder) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaPublisher{
		writer:  writer,
		logger:  logger.With().Str("component", "kafka_publisher").Logger(),
		metrics: metrics,
	}
}

// PublishCaseEvent publishes one event keyed by case ID.
func (p *KafkaPublisher) PublishCaseEvent(ctx context.Context, event *domain.CaseEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	value, err := json.Marshal(event)
	if err != nil {
		p.record("error")
		return fmt.Errorf("failed to marshal case event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.CaseID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.record("error")
		p.logger.Error().Err(err).
			Str("event_type", event.EventType).
			Str("case_id", event.CaseID).
			Msg("failed to publish case event")
		return fmt.Errorf("failed to publish case event: %w", err)
	}

	p.record("success")
	p.logger.Debug().
		Str("event_type", event.EventType).
		Str("case_id", event.CaseID).
		Msg("published case event")
	return nil
}

// Close closes the underlying Kafka writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func (p *KafkaPublisher) record(outcome string) {
	if p.metrics != nil {
		p.metrics.RecordEventPublished(outcome)
	}
}

// NopPublisher discards all events. Used when Kafka is disabled.
type NopPublisher struct{}

var _ Publisher = (*NopPublisher)(nil)

// PublishCaseEvent discards the event.
func (NopPublisher) PublishCaseEvent(context.Context, *domain.CaseEvent) error { return nil }

// Close is a no-op.
func (NopPublisher) Close() error { return nil }
