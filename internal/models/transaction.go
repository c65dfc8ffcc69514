package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the finite set of transaction record states. Transitions are
// monotonic along the saga's path; no step ever moves a record back to an
// earlier status.
type Status string

const (
	StatusPending       Status = "pending"
	StatusFundsReserved Status = "funds_reserved"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
	StatusFraudDetected Status = "fraud_detected"
)

// TransactionRecord is the mutable projection of the latest known state of a
// transfer, keyed by transaction id. Records are created on first command
// receipt, mutated once per saga step, and never deleted.
type TransactionRecord struct {
	TransactionID string          `json:"transactionId"`
	UserID        string          `json:"userId"`
	FromAccount   string          `json:"fromAccount"`
	ToAccount     string          `json:"toAccount"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Description   string          `json:"description"`
	Status        Status          `json:"status"`
	FraudScore    int             `json:"fraudScore"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// NewTransactionRecord builds the initial pending record for a command.
func NewTransactionRecord(cmd Command) TransactionRecord {
	now := time.Now()
	return TransactionRecord{
		TransactionID: cmd.TransactionID,
		UserID:        cmd.UserID,
		FromAccount:   cmd.Payload.FromAccount,
		ToAccount:     cmd.Payload.ToAccount,
		Amount:        cmd.Payload.Amount,
		Currency:      cmd.Payload.Currency,
		Description:   cmd.Payload.Description,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
