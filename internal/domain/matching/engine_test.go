package matching

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dmoment/StmtIQ-sub005/internal/domain/statement"
	"github.com/Dmoment/StmtIQ-sub005/pkg/config"
)

// memoryStore is an in-memory TransactionStore with the same at-most-once
// link semantics as the postgres store.
type memoryStore struct {
	mu  sync.Mutex
	txs map[uuid.UUID]*statement.Transaction
}

func newMemoryStore(txs ...*statement.Transaction) *memoryStore {
	m := &memoryStore{txs: make(map[uuid.UUID]*statement.Transaction)}
	for _, tx := range txs {
		m.txs[tx.ID] = tx
	}
	return m
}

func (m *memoryStore) FindCandidates(_ context.Context, q CandidateQuery) ([]*statement.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*statement.Transaction
	for _, tx := range m.txs {
		if tx.OwnerID != q.OwnerID || tx.Type != statement.TypeDebit || tx.IsLinked() {
			continue
		}
		amount := tx.Amount.ToDecimal()
		if amount.LessThan(q.MinAmount) || amount.GreaterThan(q.MaxAmount) {
			continue
		}
		if tx.Date.Before(q.From) || tx.Date.After(q.To) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memoryStore) Link(_ context.Context, txID, invoiceID, ownerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.txs[txID]
	if !ok || tx.OwnerID != ownerID {
		return ErrTransactionNotFound
	}
	if tx.IsLinked() {
		return ErrAlreadyLinked
	}
	tx.LinkedInvoiceID = &invoiceID
	return nil
}

func matchingConfig() config.MatchingConfig {
	return config.MatchingConfig{
		AutoMatchThreshold:  70,
		SuggestThreshold:    40,
		AmountWindowPercent: 5,
		MinAmountTolerance:  10,
		DateWindowDays:      7,
		FallbackWindowDays:  30,
		MaxCandidates:       25,
		MaxSuggestions:      3,
	}
}

func ownedCandidate(owner uuid.UUID, amount float64, date time.Time, description string) *statement.Transaction {
	tx := candidateOf(amount, date, description)
	tx.ID = uuid.New()
	tx.OwnerID = owner
	return tx
}

func TestEngine_Match(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	t.Run("score 85 auto-links with confidence 0.85", func(t *testing.T) {
		// exact amount (50) + one day apart (25) + shared word (10)
		tx := ownedCandidate(owner, 450, d0.AddDate(0, 0, -1), "POS ZOMATO BANGALORE")
		store := newMemoryStore(tx)
		engine := NewEngine(store, nil, matchingConfig(), slog.Default())

		inv := invoiceOf(450, d0, "Zomato Foods")
		inv.ID = uuid.New()
		inv.OwnerID = owner

		res, err := engine.Match(ctx, inv)
		require.NoError(t, err)

		assert.Equal(t, DecisionAuto, res.Decision)
		assert.Equal(t, "auto", res.Method)
		require.NotNil(t, res.Linked)
		assert.Equal(t, 85.0, res.Linked.Total)
		assert.InDelta(t, 0.85, res.Confidence, 0.001)
		require.NotNil(t, tx.LinkedInvoiceID)
		assert.Equal(t, inv.ID, *tx.LinkedInvoiceID)
	})

	t.Run("score 50 stays unmatched with one suggestion", func(t *testing.T) {
		// 2% deviation (30) + two days apart (20), unrelated vendor
		tx := ownedCandidate(owner, 1020, d0.AddDate(0, 0, 2), "NEFT ACME SUPPLIES")
		store := newMemoryStore(tx)
		engine := NewEngine(store, nil, matchingConfig(), slog.Default())

		inv := invoiceOf(1000, d0, "Zomato")
		inv.OwnerID = owner

		res, err := engine.Match(ctx, inv)
		require.NoError(t, err)

		assert.Equal(t, DecisionSuggest, res.Decision)
		assert.Nil(t, res.Linked)
		require.Len(t, res.Suggestions, 1)
		assert.Equal(t, 50.0, res.Suggestions[0].Total)
		assert.Nil(t, tx.LinkedInvoiceID)
	})

	t.Run("score 10 is a no-match with zero suggestions", func(t *testing.T) {
		// 10% deviation (0) + five days apart (10); retrieval keeps it
		// because the absolute tolerance floor widens the small-amount band
		tx := ownedCandidate(owner, 110, d0.AddDate(0, 0, 5), "NEFT ACME SUPPLIES")
		store := newMemoryStore(tx)
		engine := NewEngine(store, nil, matchingConfig(), slog.Default())

		inv := invoiceOf(100, d0, "Zomato")
		inv.OwnerID = owner

		res, err := engine.Match(ctx, inv)
		require.NoError(t, err)

		assert.Equal(t, DecisionNoMatch, res.Decision)
		assert.Empty(t, res.Suggestions)
	})

	t.Run("suggestions are ranked and capped", func(t *testing.T) {
		gofakeit.Seed(11)
		txs := []*statement.Transaction{
			ownedCandidate(owner, 1000, d0, gofakeit.Company()),        // 50+30 = 80... would auto-link
			ownedCandidate(owner, 1020, d0.AddDate(0, 0, 2), gofakeit.Company()), // 30+20 = 50
			ownedCandidate(owner, 1040, d0.AddDate(0, 0, 3), gofakeit.Company()), // 20+20 = 40
			ownedCandidate(owner, 1050, d0.AddDate(0, 0, 5), gofakeit.Company()), // 20+10 = 30
		}
		// pre-link the would-be auto match so only suggest-tier remains
		someone := uuid.New()
		txs[0].LinkedInvoiceID = &someone

		store := newMemoryStore(txs...)
		engine := NewEngine(store, nil, matchingConfig(), slog.Default())

		inv := invoiceOf(1000, d0, "")
		inv.OwnerID = owner

		res, err := engine.Match(ctx, inv)
		require.NoError(t, err)

		assert.Equal(t, DecisionSuggest, res.Decision)
		require.Len(t, res.Suggestions, 2)
		assert.Equal(t, 50.0, res.Suggestions[0].Total)
		assert.Equal(t, 40.0, res.Suggestions[1].Total)
	})

	t.Run("other owners' transactions are invisible", func(t *testing.T) {
		tx := ownedCandidate(uuid.New(), 450, d0, "UPI/ZOMATO")
		store := newMemoryStore(tx)
		engine := NewEngine(store, nil, matchingConfig(), slog.Default())

		inv := invoiceOf(450, d0, "Zomato")
		inv.OwnerID = owner

		res, err := engine.Match(ctx, inv)
		require.NoError(t, err)
		assert.Equal(t, DecisionNoMatch, res.Decision)
	})

	t.Run("zero amount invoice never matches", func(t *testing.T) {
		store := newMemoryStore()
		engine := NewEngine(store, nil, matchingConfig(), slog.Default())

		res, err := engine.Match(ctx, &Invoice{OwnerID: owner, TotalAmount: decimal.Zero})
		require.NoError(t, err)
		assert.Equal(t, DecisionNoMatch, res.Decision)
	})
}

func TestEngine_ConcurrentMatch(t *testing.T) {
	owner := uuid.New()
	tx := ownedCandidate(owner, 450, d0, "UPI/ZOMATO/Order")
	store := newMemoryStore(tx)
	engine := NewEngine(store, nil, matchingConfig(), slog.Default())

	invoices := []*Invoice{
		{ID: uuid.New(), OwnerID: owner, VendorName: "Zomato", TotalAmount: decimal.NewFromInt(450), InvoiceDate: &d0},
		{ID: uuid.New(), OwnerID: owner, VendorName: "Zomato", TotalAmount: decimal.NewFromInt(450), InvoiceDate: &d0},
	}

	results := make([]*MatchResult, len(invoices))
	errs := make([]error, len(invoices))
	var wg sync.WaitGroup
	for i, inv := range invoices {
		wg.Add(1)
		go func(i int, inv *Invoice) {
			defer wg.Done()
			results[i], errs[i] = engine.Match(context.Background(), inv)
		}(i, inv)
	}
	wg.Wait()

	var autos int
	for i, res := range results {
		require.NoError(t, errs[i])
		if res.Decision == DecisionAuto {
			autos++
		}
	}
	assert.Equal(t, 1, autos, "exactly one attempt may win the link")
	require.NotNil(t, tx.LinkedInvoiceID)
}
