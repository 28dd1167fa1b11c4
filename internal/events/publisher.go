package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/taskstream/taskstream/internal/config"
)

// Publisher publishes domain-event envelopes to the bus. Implementations
// must partition by the given key so per-entity ordering holds.
type Publisher interface {
	// Publish sends the envelope to the topic, keyed for partitioning.
	Publish(ctx context.Context, topic string, key []byte, envelope *Envelope) error
}

// KafkaPublisher is a Publisher backed by a kafka-go writer. One writer
// serves all topics; each message names its topic and the hash balancer
// maps equal keys to the same partition.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// Ensure KafkaPublisher implements Publisher interface
var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher connected to the configured brokers.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *slog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{
		writer: writer,
		logger: logger.With("component", "kafka_publisher"),
	}
}

// Publish sends the envelope to the given topic.
func (p *KafkaPublisher) Publish(ctx context.Context, topic string, key []byte, envelope *Envelope) error {
	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to encode %s envelope: %w", envelope.Kind, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s event to %s: %w", envelope.Kind, topic, err)
	}

	p.logger.Debug("published event",
		"event_id", envelope.ID,
		"kind", envelope.Kind,
		"topic", topic)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
