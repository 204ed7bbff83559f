package matching

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/Dmoment/StmtIQ-sub005/internal/domain/statement"
	"github.com/Dmoment/StmtIQ-sub005/pkg/money"
)

// DB is the subset of pgxpool.Pool the store needs; pgxmock satisfies it in
// tests.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore persists transaction links in the transactions table.
type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const findCandidatesQuery = `
	SELECT id, owner_id, date, description, original_description,
		amount, type, balance, reference, linked_invoice_id
	FROM transactions
	WHERE owner_id = $1
		AND type = 'debit'
		AND linked_invoice_id IS NULL
		AND amount BETWEEN $2 AND $3
		AND date BETWEEN $4 AND $5
	ORDER BY date DESC
	LIMIT $6
`

func (s *PostgresStore) FindCandidates(ctx context.Context, q CandidateQuery) ([]*statement.Transaction, error) {
	rows, err := s.db.Query(ctx, findCandidatesQuery,
		q.OwnerID, q.MinAmount, q.MaxAmount, q.From, q.To, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("querying candidates: %w", err)
	}
	defer rows.Close()

	var txs []*statement.Transaction
	for rows.Next() {
		var (
			tx     statement.Transaction
			amount decimal.Decimal
		)
		if err := rows.Scan(
			&tx.ID, &tx.OwnerID, &tx.Date, &tx.Description, &tx.OriginalDescription,
			&amount, &tx.Type, &tx.Balance, &tx.Reference, &tx.LinkedInvoiceID,
		); err != nil {
			return nil, fmt.Errorf("scanning candidate: %w", err)
		}
		tx.Amount = money.NewFromDecimal(amount, money.INR)
		txs = append(txs, &tx)
	}
	return txs, rows.Err()
}

// Link sets the transaction's invoice pointer under a row lock,
// re-validating owner and unlinked state immediately before the write so
// that concurrent attempts commit at most one link.
func (s *PostgresStore) Link(ctx context.Context, txID, invoiceID, ownerID uuid.UUID) error {
	dbTx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning link transaction: %w", err)
	}
	defer dbTx.Rollback(ctx)

	var (
		owner  uuid.UUID
		linked *uuid.UUID
	)
	err = dbTx.QueryRow(ctx,
		`SELECT owner_id, linked_invoice_id FROM transactions WHERE id = $1 FOR UPDATE`,
		txID,
	).Scan(&owner, &linked)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrTransactionNotFound
	}
	if err != nil {
		return fmt.Errorf("locking transaction row: %w", err)
	}

	if owner != ownerID {
		return ErrTransactionNotFound
	}
	if linked != nil {
		return ErrAlreadyLinked
	}

	if _, err := dbTx.Exec(ctx,
		`UPDATE transactions SET linked_invoice_id = $1 WHERE id = $2`,
		invoiceID, txID,
	); err != nil {
		return fmt.Errorf("writing invoice link: %w", err)
	}
	return dbTx.Commit(ctx)
}
