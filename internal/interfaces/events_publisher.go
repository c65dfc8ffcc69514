package interfaces

import "context"

// EventPublisher appends a message to a topic of the event log. The key is
// the partition key: all messages for the same transaction id must carry the
// same key so the log preserves their relative order. Operators must not
// repartition topics without preserving this key.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}
