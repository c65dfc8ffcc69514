package interfaces

import (
	"context"
	"errors"

	"github.com/sheikh-saqib/transfer-saga/internal/models"
)

// ErrNotFound is returned when no record exists for a transaction id.
var ErrNotFound = errors.New("transaction not found")

// ErrAlreadyExists is returned by Create when a record with the same
// transaction id is already present.
var ErrAlreadyExists = errors.New("transaction already exists")

// TransactionStore is the durable record of transaction state, can be any
// storage implementation.
type TransactionStore interface {
	Create(ctx context.Context, record models.TransactionRecord) error
	UpdateStatus(ctx context.Context, transactionID string, status models.Status) error
	UpdateFraudScore(ctx context.Context, transactionID string, score int) error
	FindAll(ctx context.Context) ([]models.TransactionRecord, error)
	FindByID(ctx context.Context, transactionID string) (models.TransactionRecord, error)
}
