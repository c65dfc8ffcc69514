package kafka

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader hands out a fixed set of messages, then reports the context as
// cancelled the way a real reader does on shutdown.
type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		return kafka.Message{}, context.Canceled
	}
	msg := f.msgs[0]
	f.msgs = f.msgs[1:]
	return msg, nil
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, msg := range msgs {
		f.committed = append(f.committed, msg.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error { return nil }

func newTestConsumer(msgs ...kafka.Message) (*Consumer, *fakeReader) {
	reader := &fakeReader{msgs: msgs}
	return &Consumer{reader: reader, log: slog.New(slog.DiscardHandler)}, reader
}

func TestRunCommitsEachMessageAfterHandling(t *testing.T) {
	consumer, reader := newTestConsumer(
		kafka.Message{Offset: 0, Value: []byte("a")},
		kafka.Message{Offset: 1, Value: []byte("b")},
	)

	var handled []string
	err := consumer.Run(context.Background(), func(ctx context.Context, msg kafka.Message) error {
		handled = append(handled, string(msg.Value))
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, handled)
	assert.Equal(t, []int64{0, 1}, reader.committed)
}

func TestRunStopsOnHandlerErrorWithoutCommitting(t *testing.T) {
	consumer, reader := newTestConsumer(
		kafka.Message{Offset: 7, Value: []byte("a")},
		kafka.Message{Offset: 8, Value: []byte("b")},
	)

	handlerErr := errors.New("boom")
	err := consumer.Run(context.Background(), func(ctx context.Context, msg kafka.Message) error {
		return handlerErr
	})

	require.ErrorIs(t, err, handlerErr)
	assert.Empty(t, reader.committed, "a failed message's offset must stay uncommitted")
}
