package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// Handler processes one log message. Returning an error stops the consumer
// before the offset is committed, so the message is redelivered when
// consumption resumes; handlers that have their own failure path, like
// dead-lettering, should return nil.
type Handler func(ctx context.Context, msg kafka.Message) error

// messageReader is the slice of kafka.Reader the consume loop needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic sequentially as part of a consumer group.
// Messages of a partition are handled strictly in order; scaling out adds
// consumer instances, it does not add concurrency within a partition.
type Consumer struct {
	reader messageReader
	log    *slog.Logger
}

func NewConsumer(brokers []string, groupID, topic string, log *slog.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}),
		log: log,
	}
}

// Run consumes until ctx is cancelled. Each message is committed only after
// the handler returns nil; a handler error surfaces with the offset still
// uncommitted rather than being skipped over.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		if err := handle(ctx, msg); err != nil {
			c.log.Error("message handling failed, stopping with offset uncommitted",
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
			return fmt.Errorf("handle message at offset %d: %w", msg.Offset, err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("commit offset: %w", err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
