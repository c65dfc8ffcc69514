package saga

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	events "github.com/sheikh-saqib/transfer-saga/internal/events/kafka"
	interfaces "github.com/sheikh-saqib/transfer-saga/internal/interfaces"
	"github.com/sheikh-saqib/transfer-saga/internal/models"
	"github.com/sheikh-saqib/transfer-saga/internal/platform/metrics"
)

// Orchestrator runs the transfer workflow for every command consumed from
// the command stream. Commands of one partition are processed strictly in
// order, one at a time, so no two steps of the same transaction ever run
// concurrently.
//
// For every accepted command exactly one terminal branch is reached:
// Committed+Notified, Reversed, or a dead-letter record. Commands are never
// silently dropped. The workflow is not idempotent: replaying a command runs
// a second, independent saga.
type Orchestrator struct {
	store     interfaces.TransactionStore
	publisher interfaces.EventPublisher
	risk      interfaces.RiskEvaluator
	log       *slog.Logger
	metrics   *metrics.Orchestrator

	newBackoff func() backoffPolicy
}

func NewOrchestrator(
	store interfaces.TransactionStore,
	publisher interfaces.EventPublisher,
	evaluator interfaces.RiskEvaluator,
	log *slog.Logger,
	m *metrics.Orchestrator,
) *Orchestrator {
	return &Orchestrator{
		store:      store,
		publisher:  publisher,
		risk:       evaluator,
		log:        log,
		metrics:    m,
		newBackoff: defaultBackoff,
	}
}

// HandleMessage decodes one command from the log and processes it. It always
// returns nil so the consumer commits the offset: failed sagas are
// dead-lettered, not redelivered.
func (o *Orchestrator) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var cmd models.Command
	if err := json.Unmarshal(msg.Value, &cmd); err != nil {
		o.log.Error("dropping malformed command",
			"partition", msg.Partition, "offset", msg.Offset, "err", err)
		return nil
	}
	return o.Process(ctx, cmd)
}

// Process runs the full workflow for one command. Any error raised by the
// steps routes the command to the dead-letter stream and marks the record
// failed; Process itself never fails.
func (o *Orchestrator) Process(ctx context.Context, cmd models.Command) error {
	o.metrics.CommandsProcessed.Inc()
	o.log.Info("processing transfer",
		"transactionId", cmd.TransactionID, "userId", cmd.UserID, "commandId", cmd.ID)

	if err := o.run(ctx, cmd); err != nil {
		o.deadLetter(ctx, cmd, err)
	}
	return nil
}

func (o *Orchestrator) run(ctx context.Context, cmd models.Command) error {
	if err := o.ensureRecord(ctx, cmd); err != nil {
		return err
	}

	// 1. Reserve funds.
	reserved := models.NewDomainEvent(models.EventFundsReserved, cmd, models.FundsReservedPayload{
		OK:     true,
		HoldID: uuid.New().String(),
		Amount: cmd.Payload.Amount,
	})
	if err := o.emit(ctx, reserved); err != nil {
		return err
	}
	if err := o.setStatus(ctx, cmd.TransactionID, models.StatusFundsReserved); err != nil {
		return err
	}

	// 2. Evaluate risk. A failing evaluator is a workflow error, not a
	// transient one: it dead-letters immediately instead of retrying.
	assessment, err := o.risk.Evaluate(ctx, cmd)
	if err != nil {
		return fmt.Errorf("evaluate risk: %w", err)
	}
	checked := models.NewDomainEvent(models.EventFraudChecked, cmd, models.FraudCheckedPayload{
		Risk: assessment.Risk,
	})
	if err := o.emit(ctx, checked); err != nil {
		return err
	}
	if err := o.setFraudScore(ctx, cmd.TransactionID, assessment.Score); err != nil {
		return err
	}

	// 3. Decide. Reversal is a terminal declaration: the reserved hold is
	// not compensated beyond the status flip.
	if assessment.Risk == models.RiskHigh {
		reversed := models.NewDomainEvent(models.EventReversed, cmd, models.ReversedPayload{
			Reason: "high fraud risk detected",
		})
		if err := o.emit(ctx, reversed); err != nil {
			return err
		}
		return o.setStatus(ctx, cmd.TransactionID, models.StatusFraudDetected)
	}

	committed := models.NewDomainEvent(models.EventCommitted, cmd, models.CommittedPayload{
		LedgerTxID: uuid.New().String(),
	})
	if err := o.emit(ctx, committed); err != nil {
		return err
	}
	if err := o.setStatus(ctx, cmd.TransactionID, models.StatusCompleted); err != nil {
		return err
	}

	notified := models.NewDomainEvent(models.EventNotified, cmd, models.NotifiedPayload{
		Channels: []string{"email", "push"},
	})
	return o.emit(ctx, notified)
}

// ensureRecord creates the pending record on first command receipt. An
// existing record (the ingress API may have created it already, or the
// command is a replay) is fine.
func (o *Orchestrator) ensureRecord(ctx context.Context, cmd models.Command) error {
	err := o.withRetry(ctx, func() error {
		err := o.store.Create(ctx, models.NewTransactionRecord(cmd))
		if errors.Is(err, interfaces.ErrAlreadyExists) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}

func (o *Orchestrator) emit(ctx context.Context, event models.DomainEvent) error {
	err := o.withRetry(ctx, func() error {
		return o.publisher.Publish(ctx, events.TopicEvents, event.TransactionID, event)
	})
	if err != nil {
		return fmt.Errorf("emit %s: %w", event.Type, err)
	}
	o.metrics.EventsEmitted.WithLabelValues(string(event.Type)).Inc()
	o.log.Info("event emitted", "type", event.Type, "transactionId", event.TransactionID)
	return nil
}

func (o *Orchestrator) setStatus(ctx context.Context, transactionID string, status models.Status) error {
	err := o.withRetry(ctx, func() error {
		return permanentStoreErr(o.store.UpdateStatus(ctx, transactionID, status))
	})
	if err != nil {
		return fmt.Errorf("update status to %s: %w", status, err)
	}
	return nil
}

func (o *Orchestrator) setFraudScore(ctx context.Context, transactionID string, score int) error {
	err := o.withRetry(ctx, func() error {
		return permanentStoreErr(o.store.UpdateFraudScore(ctx, transactionID, score))
	})
	if err != nil {
		return fmt.Errorf("update fraud score: %w", err)
	}
	return nil
}

// deadLetter is the single escape hatch for failed sagas. The original
// command plus the error is appended to the dead-letter stream and the
// record is marked failed. No automatic retry or replay follows; replay is
// an operational concern.
func (o *Orchestrator) deadLetter(ctx context.Context, cmd models.Command, cause error) {
	o.log.Error("saga failed, routing command to dead-letter stream",
		"transactionId", cmd.TransactionID, "err", cause)

	dl := models.DeadLetter{
		Command:      cmd,
		Error:        cause.Error(),
		DLQTimestamp: time.Now().UTC(),
	}
	err := o.withRetry(ctx, func() error {
		return o.publisher.Publish(ctx, events.TopicDeadLetters, cmd.TransactionID, dl)
	})
	if err != nil {
		o.log.Error("dead-letter publish failed", "transactionId", cmd.TransactionID, "err", err)
	}

	if err := o.setStatus(ctx, cmd.TransactionID, models.StatusFailed); err != nil {
		o.log.Error("marking record failed did not succeed", "transactionId", cmd.TransactionID, "err", err)
	}
	o.metrics.DeadLetters.Inc()
}
