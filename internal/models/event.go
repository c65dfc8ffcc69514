package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType is the closed set of domain event types.
type EventType string

const (
	EventTransactionInitiated EventType = "TransactionInitiated"
	EventFundsReserved        EventType = "FundsReserved"
	EventFraudChecked         EventType = "FraudChecked"
	EventCommitted            EventType = "Committed"
	EventReversed             EventType = "Reversed"
	EventNotified             EventType = "Notified"
)

// DomainEvent is an immutable fact about a transaction. CorrelationID always
// equals the id of the command that started the saga, so the full causal
// chain of a transfer can be reconstructed from the event stream.
type DomainEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	Version       int       `json:"version"`
	TS            int64     `json:"ts"`
	TransactionID string    `json:"transactionId"`
	UserID        string    `json:"userId"`
	CorrelationID string    `json:"correlationId"`
	Payload       any       `json:"payload"`
}

// NewDomainEvent builds an event for the given command with a fresh identity
// and the current wall-clock timestamp in epoch milliseconds.
func NewDomainEvent(typ EventType, cmd Command, payload any) DomainEvent {
	return DomainEvent{
		ID:            uuid.New().String(),
		Type:          typ,
		Version:       1,
		TS:            time.Now().UnixMilli(),
		TransactionID: cmd.TransactionID,
		UserID:        cmd.UserID,
		CorrelationID: cmd.ID,
		Payload:       payload,
	}
}

// FundsReservedPayload records the hold placed on the source account.
type FundsReservedPayload struct {
	OK     bool            `json:"ok"`
	HoldID string          `json:"holdId"`
	Amount decimal.Decimal `json:"amount"`
}

// FraudCheckedPayload carries the outcome of the risk evaluation.
type FraudCheckedPayload struct {
	Risk Risk `json:"risk"`
}

// CommittedPayload references the ledger transaction written on commit.
type CommittedPayload struct {
	LedgerTxID string `json:"ledgerTxId"`
}

// ReversedPayload explains why a transfer was reversed.
type ReversedPayload struct {
	Reason string `json:"reason"`
}

// NotifiedPayload lists the channels the user was notified on.
type NotifiedPayload struct {
	Channels []string `json:"channels"`
}
