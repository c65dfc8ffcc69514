package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	interfaces "github.com/sheikh-saqib/transfer-saga/internal/interfaces"
	"github.com/sheikh-saqib/transfer-saga/internal/models"
)

// MemoryTransactionStore is an in-memory implementation of
// interfaces.TransactionStore. It is thread-safe and used by unit tests and
// local development in place of Postgres.
type MemoryTransactionStore struct {
	mu      sync.Mutex // protects records from concurrent access
	records map[string]models.TransactionRecord
}

// NewMemoryTransactionStore creates and returns a new MemoryTransactionStore instance
func NewMemoryTransactionStore() *MemoryTransactionStore {
	return &MemoryTransactionStore{
		records: make(map[string]models.TransactionRecord),
	}
}

func (m *MemoryTransactionStore) Create(ctx context.Context, record models.TransactionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[record.TransactionID]; exists {
		return interfaces.ErrAlreadyExists
	}
	m.records[record.TransactionID] = record
	return nil
}

func (m *MemoryTransactionStore) UpdateStatus(ctx context.Context, transactionID string, status models.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, exists := m.records[transactionID]
	if !exists {
		return interfaces.ErrNotFound
	}
	record.Status = status
	record.UpdatedAt = time.Now()
	m.records[transactionID] = record
	return nil
}

func (m *MemoryTransactionStore) UpdateFraudScore(ctx context.Context, transactionID string, score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, exists := m.records[transactionID]
	if !exists {
		return interfaces.ErrNotFound
	}
	record.FraudScore = score
	record.UpdatedAt = time.Now()
	m.records[transactionID] = record
	return nil
}

// FindAll returns a copy of all records, newest first.
func (m *MemoryTransactionStore) FindAll(ctx context.Context) ([]models.TransactionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := make([]models.TransactionRecord, 0, len(m.records))
	for _, record := range m.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

func (m *MemoryTransactionStore) FindByID(ctx context.Context, transactionID string) (models.TransactionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, exists := m.records[transactionID]
	if !exists {
		return models.TransactionRecord{}, interfaces.ErrNotFound
	}
	return record, nil
}

// Compile-time check: ensure MemoryTransactionStore implements TransactionStore
var _ interfaces.TransactionStore = (*MemoryTransactionStore)(nil)
