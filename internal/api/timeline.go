package api

import (
	"github.com/sheikh-saqib/transfer-saga/internal/models"
	"github.com/sheikh-saqib/transfer-saga/internal/risk"
)

// Timeline reconstructs the event history of a transaction from its record.
// The record store keeps only the latest projection, so timestamps and ids
// are synthesized; the sequence mirrors what the saga emitted as far as the
// record's status shows it progressed.
func Timeline(record models.TransactionRecord) []models.DomainEvent {
	tl := []models.DomainEvent{
		timelineEvent(record, models.EventTransactionInitiated, "initiated", 0, map[string]any{
			"fromAccount": record.FromAccount,
			"toAccount":   record.ToAccount,
			"amount":      record.Amount,
			"currency":    record.Currency,
			"description": record.Description,
		}),
	}
	if record.Status == models.StatusPending {
		return tl
	}

	tl = append(tl, timelineEvent(record, models.EventFundsReserved, "reserved", 1, map[string]any{
		"amount":   record.Amount,
		"currency": record.Currency,
	}))
	if record.Status == models.StatusFundsReserved {
		return tl
	}

	// A failed record does not tell us which step raised, so no further
	// steps are synthesized for it.
	if record.Status == models.StatusFailed {
		return tl
	}

	assessment := risk.Assess(record.FraudScore)
	tl = append(tl, timelineEvent(record, models.EventFraudChecked, "fraud", 2, map[string]any{
		"fraudScore": record.FraudScore,
		"risk":       assessment.Risk,
	}))

	switch record.Status {
	case models.StatusCompleted:
		tl = append(tl,
			timelineEvent(record, models.EventCommitted, "committed", 3, map[string]any{
				"status": record.Status,
			}),
			timelineEvent(record, models.EventNotified, "notified", 4, map[string]any{
				"channels": []string{"email", "push"},
			}),
		)
	case models.StatusFraudDetected:
		tl = append(tl, timelineEvent(record, models.EventReversed, "reversed", 3, map[string]any{
			"reason":     "high fraud risk detected",
			"fraudScore": record.FraudScore,
		}))
	}
	return tl
}

func timelineEvent(record models.TransactionRecord, typ models.EventType, suffix string, step int, payload map[string]any) models.DomainEvent {
	return models.DomainEvent{
		ID:            record.TransactionID + "-" + suffix,
		Type:          typ,
		Version:       1,
		TS:            record.CreatedAt.UnixMilli() + int64(step)*1000,
		TransactionID: record.TransactionID,
		UserID:        record.UserID,
		Payload:       payload,
	}
}
