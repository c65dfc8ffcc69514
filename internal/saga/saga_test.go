package saga

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	events "github.com/sheikh-saqib/transfer-saga/internal/events/kafka"
	"github.com/sheikh-saqib/transfer-saga/internal/models"
	"github.com/sheikh-saqib/transfer-saga/internal/platform/metrics"
	"github.com/sheikh-saqib/transfer-saga/internal/storage/memory"
)

type published struct {
	topic string
	key   string
	event any
}

// fakePublisher captures published messages and can be told to fail a topic
// a given number of times.
type fakePublisher struct {
	mu       sync.Mutex
	msgs     []published
	failures map[string]int
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{failures: make(map[string]int)}
}

func (f *fakePublisher) Publish(ctx context.Context, topic string, key string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failures[topic] > 0 {
		f.failures[topic]--
		return errors.New("broker unavailable")
	}
	f.msgs = append(f.msgs, published{topic: topic, key: key, event: event})
	return nil
}

func (f *fakePublisher) failTopic(topic string, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[topic] = times
}

func (f *fakePublisher) eventsFor(correlationID string) []models.DomainEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.DomainEvent
	for _, m := range f.msgs {
		ev, ok := m.event.(models.DomainEvent)
		if ok && m.topic == events.TopicEvents && ev.CorrelationID == correlationID {
			out = append(out, ev)
		}
	}
	return out
}

func (f *fakePublisher) deadLetters() []models.DeadLetter {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.DeadLetter
	for _, m := range f.msgs {
		if dl, ok := m.event.(models.DeadLetter); ok && m.topic == events.TopicDeadLetters {
			out = append(out, dl)
		}
	}
	return out
}

type stubEvaluator struct {
	assessment models.RiskAssessment
	err        error
}

func (s *stubEvaluator) Evaluate(ctx context.Context, cmd models.Command) (models.RiskAssessment, error) {
	return s.assessment, s.err
}

func newTestOrchestrator(t *testing.T, evaluator *stubEvaluator) (*Orchestrator, *memory.MemoryTransactionStore, *fakePublisher) {
	t.Helper()

	store := memory.NewMemoryTransactionStore()
	publisher := newFakePublisher()
	log := slog.New(slog.DiscardHandler)
	m := metrics.NewOrchestrator(prometheus.NewRegistry())

	o := NewOrchestrator(store, publisher, evaluator, log, m)
	o.newBackoff = func() backoffPolicy {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, maxRetries)
	}
	return o, store, publisher
}

func testCommand() models.Command {
	return models.Command{
		ID:            "cmd-1",
		TransactionID: "T1",
		UserID:        "U1",
		Payload: models.CommandPayload{
			FromAccount: "A",
			ToAccount:   "B",
			Amount:      decimal.NewFromInt(100),
			Currency:    "USD",
		},
	}
}

func eventTypes(evs []models.DomainEvent) []models.EventType {
	types := make([]models.EventType, len(evs))
	for i, ev := range evs {
		types[i] = ev.Type
	}
	return types
}

func TestLowRiskPathCommits(t *testing.T) {
	o, store, publisher := newTestOrchestrator(t, &stubEvaluator{
		assessment: models.RiskAssessment{Risk: models.RiskLow, Score: 25},
	})
	cmd := testCommand()

	require.NoError(t, o.Process(context.Background(), cmd))

	evs := publisher.eventsFor(cmd.ID)
	require.Equal(t, []models.EventType{
		models.EventFundsReserved,
		models.EventFraudChecked,
		models.EventCommitted,
		models.EventNotified,
	}, eventTypes(evs))

	for _, ev := range evs {
		assert.Equal(t, "T1", ev.TransactionID)
		assert.Equal(t, "U1", ev.UserID)
		assert.Equal(t, cmd.ID, ev.CorrelationID)
		assert.Equal(t, 1, ev.Version)
		assert.NotEmpty(t, ev.ID)
	}

	checked := evs[1].Payload.(models.FraudCheckedPayload)
	assert.Equal(t, models.RiskLow, checked.Risk)

	record, err := store.FindByID(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, record.Status)
	assert.Equal(t, 25, record.FraudScore)
	assert.Empty(t, publisher.deadLetters())
}

func TestHighRiskPathReverses(t *testing.T) {
	o, store, publisher := newTestOrchestrator(t, &stubEvaluator{
		assessment: models.RiskAssessment{Risk: models.RiskHigh, Score: 85},
	})
	cmd := testCommand()

	require.NoError(t, o.Process(context.Background(), cmd))

	evs := publisher.eventsFor(cmd.ID)
	require.Equal(t, []models.EventType{
		models.EventFundsReserved,
		models.EventFraudChecked,
		models.EventReversed,
	}, eventTypes(evs))

	checked := evs[1].Payload.(models.FraudCheckedPayload)
	assert.Equal(t, models.RiskHigh, checked.Risk)
	reversed := evs[2].Payload.(models.ReversedPayload)
	assert.NotEmpty(t, reversed.Reason)

	record, err := store.FindByID(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFraudDetected, record.Status)
	assert.Equal(t, 85, record.FraudScore)
	assert.Empty(t, publisher.deadLetters())
}

func TestEvaluatorFailureDeadLetters(t *testing.T) {
	o, store, publisher := newTestOrchestrator(t, &stubEvaluator{
		err: errors.New("scoring service down"),
	})
	cmd := testCommand()

	require.NoError(t, o.Process(context.Background(), cmd))

	dls := publisher.deadLetters()
	require.Len(t, dls, 1)
	assert.Equal(t, "T1", dls[0].TransactionID)
	assert.Contains(t, dls[0].Error, "scoring service down")
	assert.False(t, dls[0].DLQTimestamp.IsZero())

	// The saga stopped before deciding: no terminal event was emitted.
	for _, ev := range publisher.eventsFor(cmd.ID) {
		assert.NotEqual(t, models.EventCommitted, ev.Type)
		assert.NotEqual(t, models.EventReversed, ev.Type)
	}

	record, err := store.FindByID(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, record.Status)
}

func TestTransientPublishFailureIsRetried(t *testing.T) {
	o, store, publisher := newTestOrchestrator(t, &stubEvaluator{
		assessment: models.RiskAssessment{Risk: models.RiskLow, Score: 25},
	})
	publisher.failTopic(events.TopicEvents, 2)
	cmd := testCommand()

	require.NoError(t, o.Process(context.Background(), cmd))

	assert.Empty(t, publisher.deadLetters())
	record, err := store.FindByID(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, record.Status)
}

func TestExhaustedPublishRetriesDeadLetter(t *testing.T) {
	o, store, publisher := newTestOrchestrator(t, &stubEvaluator{
		assessment: models.RiskAssessment{Risk: models.RiskLow, Score: 25},
	})
	// More failures than the retry budget; the dead-letter topic is healthy.
	publisher.failTopic(events.TopicEvents, maxRetries+10)
	cmd := testCommand()

	require.NoError(t, o.Process(context.Background(), cmd))

	dls := publisher.deadLetters()
	require.Len(t, dls, 1)
	assert.Equal(t, "T1", dls[0].TransactionID)

	record, err := store.FindByID(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, record.Status)
}

func TestReplayedCommandRunsASecondSaga(t *testing.T) {
	// Replay protection is a documented gap: processing the same command
	// twice runs two full, independent sagas.
	o, store, publisher := newTestOrchestrator(t, &stubEvaluator{
		assessment: models.RiskAssessment{Risk: models.RiskLow, Score: 25},
	})
	cmd := testCommand()

	require.NoError(t, o.Process(context.Background(), cmd))
	require.NoError(t, o.Process(context.Background(), cmd))

	evs := publisher.eventsFor(cmd.ID)
	assert.Len(t, evs, 8)

	first := evs[0].Payload.(models.FundsReservedPayload)
	second := evs[4].Payload.(models.FundsReservedPayload)
	assert.NotEqual(t, first.HoldID, second.HoldID)

	record, err := store.FindByID(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, record.Status)
}

func TestRecordPreCreatedByIngress(t *testing.T) {
	o, store, publisher := newTestOrchestrator(t, &stubEvaluator{
		assessment: models.RiskAssessment{Risk: models.RiskLow, Score: 25},
	})
	cmd := testCommand()
	require.NoError(t, store.Create(context.Background(), models.NewTransactionRecord(cmd)))

	require.NoError(t, o.Process(context.Background(), cmd))

	assert.Empty(t, publisher.deadLetters())
	record, err := store.FindByID(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, record.Status)
}

// flakyStore wraps the memory store to fail Create and count write attempts.
type flakyStore struct {
	*memory.MemoryTransactionStore
	createErr error

	mu                sync.Mutex
	createCalls       int
	updateStatusCalls int
}

func (s *flakyStore) Create(ctx context.Context, record models.TransactionRecord) error {
	s.mu.Lock()
	s.createCalls++
	s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	return s.MemoryTransactionStore.Create(ctx, record)
}

func (s *flakyStore) UpdateStatus(ctx context.Context, transactionID string, status models.Status) error {
	s.mu.Lock()
	s.updateStatusCalls++
	s.mu.Unlock()
	return s.MemoryTransactionStore.UpdateStatus(ctx, transactionID, status)
}

func TestPermanentStoreErrorIsNotRetried(t *testing.T) {
	o, _, publisher := newTestOrchestrator(t, &stubEvaluator{
		assessment: models.RiskAssessment{Risk: models.RiskLow, Score: 25},
	})
	store := &flakyStore{
		MemoryTransactionStore: memory.NewMemoryTransactionStore(),
		createErr:              errors.New("db down"),
	}
	o.store = store
	cmd := testCommand()

	require.NoError(t, o.Process(context.Background(), cmd))

	// The infra outage is transient: Create burned the full retry budget.
	assert.Equal(t, 1+maxRetries, store.createCalls)

	// With no record, marking it failed in the dead-letter path hits a
	// permanent not-found and must not be retried.
	assert.Equal(t, 1, store.updateStatusCalls)

	dls := publisher.deadLetters()
	require.Len(t, dls, 1)
	assert.Equal(t, "T1", dls[0].TransactionID)
}

func TestMalformedCommandIsDropped(t *testing.T) {
	o, _, publisher := newTestOrchestrator(t, &stubEvaluator{})

	msg := kafka.Message{Value: []byte("{not json")}
	require.NoError(t, o.HandleMessage(context.Background(), msg))

	assert.Empty(t, publisher.msgs)
}

func TestHandleMessageDecodesCommand(t *testing.T) {
	o, store, _ := newTestOrchestrator(t, &stubEvaluator{
		assessment: models.RiskAssessment{Risk: models.RiskLow, Score: 25},
	})

	value := `{"id":"cmd-9","transactionId":"T9","userId":"U9",
		"payload":{"fromAccount":"A","toAccount":"B","amount":50,"currency":"EUR"}}`
	require.NoError(t, o.HandleMessage(context.Background(), kafka.Message{Value: []byte(value)}))

	record, err := store.FindByID(context.Background(), "T9")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, record.Status)
	assert.Equal(t, "U9", record.UserID)
	assert.Equal(t, "EUR", record.Currency)
}
