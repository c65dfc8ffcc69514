package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	interfaces "github.com/sheikh-saqib/transfer-saga/internal/interfaces"
	"github.com/sheikh-saqib/transfer-saga/internal/models"
)

// PostgresTransactionStore persists transaction records in the
// `transactions` table. Records are inserted once and updated in place as
// the saga progresses; rows are never deleted.
type PostgresTransactionStore struct {
	db *sql.DB
}

func NewPostgresTransactionStore(db *sql.DB) *PostgresTransactionStore {
	return &PostgresTransactionStore{
		db: db,
	}
}

func (p *PostgresTransactionStore) Create(ctx context.Context, record models.TransactionRecord) error {
	const query = `INSERT INTO transactions
		(transaction_id, user_id, from_account, to_account, amount, currency, description, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	_, err := p.db.ExecContext(ctx, query,
		record.TransactionID, record.UserID, record.FromAccount, record.ToAccount,
		record.Amount, record.Currency, record.Description, record.Status,
		record.CreatedAt, record.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return interfaces.ErrAlreadyExists
	}
	return err
}

func (p *PostgresTransactionStore) UpdateStatus(ctx context.Context, transactionID string, status models.Status) error {
	const query = `UPDATE transactions SET status = $2, updated_at = now() WHERE transaction_id = $1`

	res, err := p.db.ExecContext(ctx, query, transactionID, status)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (p *PostgresTransactionStore) UpdateFraudScore(ctx context.Context, transactionID string, score int) error {
	const query = `UPDATE transactions SET fraud_score = $2, updated_at = now() WHERE transaction_id = $1`

	res, err := p.db.ExecContext(ctx, query, transactionID, score)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (p *PostgresTransactionStore) FindAll(ctx context.Context) ([]models.TransactionRecord, error) {
	const query = `SELECT transaction_id, user_id, from_account, to_account, amount, currency, description, status, fraud_score, created_at, updated_at
		FROM transactions ORDER BY created_at DESC`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.TransactionRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (p *PostgresTransactionStore) FindByID(ctx context.Context, transactionID string) (models.TransactionRecord, error) {
	const query = `SELECT transaction_id, user_id, from_account, to_account, amount, currency, description, status, fraud_score, created_at, updated_at
		FROM transactions WHERE transaction_id = $1`

	row := p.db.QueryRowContext(ctx, query, transactionID)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TransactionRecord{}, interfaces.ErrNotFound
	}
	if err != nil {
		return models.TransactionRecord{}, err
	}
	return record, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (models.TransactionRecord, error) {
	var record models.TransactionRecord
	var fraudScore sql.NullInt64

	err := s.Scan(
		&record.TransactionID,
		&record.UserID,
		&record.FromAccount,
		&record.ToAccount,
		&record.Amount,
		&record.Currency,
		&record.Description,
		&record.Status,
		&fraudScore,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return models.TransactionRecord{}, err
	}
	record.FraudScore = int(fraudScore.Int64)
	return record, nil
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

var _ interfaces.TransactionStore = (*PostgresTransactionStore)(nil)
