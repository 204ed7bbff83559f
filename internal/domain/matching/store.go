package matching

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Dmoment/StmtIQ-sub005/internal/domain/statement"
)

var (
	// ErrAlreadyLinked reports that another invoice claimed the
	// transaction first.
	ErrAlreadyLinked = errors.New("transaction already has a linked invoice")
	// ErrTransactionNotFound covers both a missing row and a row owned by
	// someone else.
	ErrTransactionNotFound = errors.New("transaction not found")
)

// CandidateQuery restricts retrieval to plausible candidates before scoring:
// unlinked debits for one owner, inside an amount band and a date window.
type CandidateQuery struct {
	OwnerID   uuid.UUID
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
	From      time.Time
	To        time.Time
	Limit     int
}

// TransactionStore is the engine's view of persisted transactions. The link
// commit must be at-most-once under concurrent attempts.
type TransactionStore interface {
	// FindCandidates returns matching transactions most recent first,
	// capped at q.Limit.
	FindCandidates(ctx context.Context, q CandidateQuery) ([]*statement.Transaction, error)
	// Link sets the transaction's invoice pointer. Returns
	// ErrAlreadyLinked when the transaction is no longer unlinked, and
	// ErrTransactionNotFound when it does not exist or belongs to a
	// different owner.
	Link(ctx context.Context, txID, invoiceID, ownerID uuid.UUID) error
}
