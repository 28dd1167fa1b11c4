// Package statistics maintains the statistics service's replica of task
// and time-entry state by consuming the event bus.
package statistics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/taskstream/taskstream/internal/config"
	"github.com/taskstream/taskstream/internal/events"
	"github.com/taskstream/taskstream/internal/store"
)

// errBadMessage marks messages that can never be applied, no matter how
// often they are redelivered. They are committed and skipped so one
// poison message cannot stall the partition.
var errBadMessage = errors.New("malformed event message")

// consumedTopics are the bus topics the replica follows.
var consumedTopics = []string{
	events.TopicTaskCreated,
	events.TopicTaskUpdated,
	events.TopicTaskDeleted,
	events.TopicTimeEntry,
}

// retryBackoff is how long a topic loop sleeps after a transient failure
// before reconnecting.
const retryBackoff = 5 * time.Second

// Reader is the subset of kafka.Reader the consumer uses. Offsets are
// committed only after an event is durably applied, so delivery is at
// least once and every apply must be idempotent.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ReaderFactory opens a Reader for one topic. Production wires this to
// NewTopicReader; tests substitute fakes.
type ReaderFactory func(topic string) Reader

// NewTopicReader opens a group reader for a single topic.
func NewTopicReader(cfg config.KafkaConfig, groupID, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		GroupID: groupID,
		Topic:   topic,
	})
}

// Consumer applies bus events to the replica store.
type Consumer struct {
	replica store.ReplicaStore
	readers ReaderFactory
	logger  *slog.Logger
}

// NewConsumer creates a Consumer over the given replica.
func NewConsumer(replica store.ReplicaStore, readers ReaderFactory, logger *slog.Logger) *Consumer {
	return &Consumer{
		replica: replica,
		readers: readers,
		logger:  logger,
	}
}

// Run consumes all replica topics until the context is cancelled. Each
// topic gets its own reader and loop; a loop that fails reconnects after
// a backoff instead of taking the whole consumer down.
func (c *Consumer) Run(ctx context.Context) {
	done := make(chan struct{}, len(consumedTopics))

	for _, topic := range consumedTopics {
		go func(topic string) {
			defer func() { done <- struct{}{} }()
			for ctx.Err() == nil {
				reader := c.readers(topic)
				err := c.consume(ctx, topic, reader)
				if closeErr := reader.Close(); closeErr != nil {
					c.logger.Warn("failed to close reader",
						slog.String("topic", topic),
						slog.String("error", closeErr.Error()))
				}
				if err != nil && ctx.Err() == nil {
					c.logger.Error("consumer loop failed, reconnecting",
						slog.String("topic", topic),
						slog.String("error", err.Error()))
					select {
					case <-time.After(retryBackoff):
					case <-ctx.Done():
					}
				}
			}
		}(topic)
	}

	for range consumedTopics {
		<-done
	}
}

// consume runs one fetch/apply/commit loop. Messages that can never be
// applied are committed and skipped; a store failure aborts the loop
// without committing so the message is delivered again.
func (c *Consumer) consume(ctx context.Context, topic string, reader Reader) error {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetching message: %w", err)
		}

		if err := c.Apply(ctx, topic, msg.Value); err != nil {
			if !errors.Is(err, errBadMessage) {
				return fmt.Errorf("applying event from %s: %w", topic, err)
			}
			c.logger.Warn("skipping unprocessable message",
				slog.String("topic", topic),
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()))
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("committing offset: %w", err)
		}
	}
}

// Apply applies a single raw bus message to the replica. It is exported
// for tests; Run is the production entry point.
func (c *Consumer) Apply(ctx context.Context, topic string, value []byte) error {
	var envelope events.Envelope
	if err := json.Unmarshal(value, &envelope); err != nil {
		return fmt.Errorf("%w: %v", errBadMessage, err)
	}

	switch envelope.Kind {
	case events.KindTaskCreated, events.KindTaskUpdated:
		return c.applyTaskUpsert(ctx, &envelope)
	case events.KindTaskDeleted:
		return c.applyTaskDelete(ctx, &envelope)
	case events.KindTimeEntryRecorded:
		return c.applyTimeEntry(ctx, &envelope)
	default:
		return fmt.Errorf("%w: unknown event kind %q on topic %s",
			errBadMessage, envelope.Kind, topic)
	}
}

func (c *Consumer) applyTaskUpsert(ctx context.Context, envelope *events.Envelope) error {
	var snapshot events.TaskSnapshot
	if err := envelope.UnmarshalPayload(&snapshot); err != nil {
		return fmt.Errorf("%w: %v", errBadMessage, err)
	}

	task, err := snapshot.Task()
	if err != nil {
		return fmt.Errorf("%w: %v", errBadMessage, err)
	}

	applied, err := c.replica.UpsertTask(ctx, task)
	if err != nil {
		return err
	}
	if !applied {
		c.logger.Debug("ignored stale task snapshot",
			slog.Int("task_id", task.ID),
			slog.Time("snapshot_updated_at", task.UpdatedAt))
	}
	return nil
}

func (c *Consumer) applyTaskDelete(ctx context.Context, envelope *events.Envelope) error {
	var snapshot events.TaskSnapshot
	if err := envelope.UnmarshalPayload(&snapshot); err != nil {
		return fmt.Errorf("%w: %v", errBadMessage, err)
	}
	return c.replica.DeleteTask(ctx, snapshot.ID)
}

func (c *Consumer) applyTimeEntry(ctx context.Context, envelope *events.Envelope) error {
	var snapshot events.TimeEntrySnapshot
	if err := envelope.UnmarshalPayload(&snapshot); err != nil {
		return fmt.Errorf("%w: %v", errBadMessage, err)
	}
	return c.replica.UpsertTimeEntry(ctx, snapshot.TimeEntry())
}
