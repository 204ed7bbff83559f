// Package matching links extracted invoices to the bank transaction that
// paid them. Retrieval narrows the field cheaply, independent scorers rank
// what remains, and a threshold policy decides between linking automatically,
// surfacing suggestions, or giving up.
package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Dmoment/StmtIQ-sub005/internal/domain/statement"
	"github.com/Dmoment/StmtIQ-sub005/pkg/config"
)

// Decision is the outcome tier of one match run.
type Decision string

const (
	DecisionAuto    Decision = "auto"
	DecisionSuggest Decision = "suggest"
	DecisionNoMatch Decision = "no_match"
)

// Invoice is the matching engine's view of an extracted invoice.
type Invoice struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	VendorName  string
	TotalAmount decimal.Decimal
	InvoiceDate *time.Time
}

// CandidateScore is the scored evaluation of one candidate transaction.
// Computed on demand, never persisted.
type CandidateScore struct {
	Transaction *statement.Transaction
	Total       float64
	Breakdown   map[string]float64
	Details     map[string]string
}

// MatchResult is what a match run hands back to the caller.
type MatchResult struct {
	Decision    Decision
	Linked      *CandidateScore
	Confidence  float64
	Method      string
	Suggestions []CandidateScore
}

// Engine wires retrieval, an ordered scorer list and the decision policy.
type Engine struct {
	store   TransactionStore
	scorers []Scorer
	cfg     config.MatchingConfig
	logger  *slog.Logger
}

func NewEngine(store TransactionStore, scorers []Scorer, cfg config.MatchingConfig, logger *slog.Logger) *Engine {
	if len(scorers) == 0 {
		scorers = DefaultScorers()
	}
	return &Engine{store: store, scorers: scorers, cfg: cfg, logger: logger}
}

// Match retrieves candidates for the invoice, scores them and either links
// the best one, returns ranked suggestions, or reports no match.
func (e *Engine) Match(ctx context.Context, inv *Invoice) (*MatchResult, error) {
	if !inv.TotalAmount.IsPositive() {
		return &MatchResult{Decision: DecisionNoMatch}, nil
	}

	candidates, err := e.store.FindCandidates(ctx, e.candidateQuery(inv))
	if err != nil {
		return nil, fmt.Errorf("retrieving candidates: %w", err)
	}

	scored := e.scoreAll(inv, candidates)

	if best := e.tryAutoLink(ctx, inv, scored); best != nil {
		e.logger.Info("invoice auto-linked",
			"invoice_id", inv.ID,
			"transaction_id", best.Transaction.ID,
			"score", best.Total)
		return &MatchResult{
			Decision:   DecisionAuto,
			Linked:     best,
			Confidence: best.Total / 100,
			Method:     "auto",
		}, nil
	}

	suggestions := make([]CandidateScore, 0, e.cfg.MaxSuggestions)
	for _, c := range scored {
		if c.Total < e.cfg.SuggestThreshold {
			break
		}
		suggestions = append(suggestions, c)
		if len(suggestions) == e.cfg.MaxSuggestions {
			break
		}
	}

	if len(suggestions) == 0 {
		return &MatchResult{Decision: DecisionNoMatch}, nil
	}
	return &MatchResult{Decision: DecisionSuggest, Suggestions: suggestions}, nil
}

// candidateQuery builds the retrieval window: amount within a percentage
// band (floored by an absolute tolerance), dates within the configured
// window around the invoice date, or a trailing window when the invoice has
// no date.
func (e *Engine) candidateQuery(inv *Invoice) CandidateQuery {
	tol := inv.TotalAmount.Mul(decimal.NewFromFloat(e.cfg.AmountWindowPercent / 100))
	minTol := decimal.NewFromFloat(e.cfg.MinAmountTolerance)
	if tol.LessThan(minTol) {
		tol = minTol
	}

	q := CandidateQuery{
		OwnerID:   inv.OwnerID,
		MinAmount: inv.TotalAmount.Sub(tol),
		MaxAmount: inv.TotalAmount.Add(tol),
		Limit:     e.cfg.MaxCandidates,
	}
	if q.MinAmount.IsNegative() {
		q.MinAmount = decimal.Zero
	}

	if inv.InvoiceDate != nil {
		q.From = inv.InvoiceDate.AddDate(0, 0, -e.cfg.DateWindowDays)
		q.To = inv.InvoiceDate.AddDate(0, 0, e.cfg.DateWindowDays)
	} else {
		now := time.Now()
		q.From = now.AddDate(0, 0, -e.cfg.FallbackWindowDays)
		q.To = now
	}
	return q
}

// scoreAll evaluates every candidate and sorts best first. The sort is
// stable so the store's most-recent-first order breaks ties.
func (e *Engine) scoreAll(inv *Invoice, candidates []*statement.Transaction) []CandidateScore {
	scored := make([]CandidateScore, 0, len(candidates))
	for _, tx := range candidates {
		if tx.IsLinked() || tx.Type != statement.TypeDebit {
			continue
		}

		c := CandidateScore{
			Transaction: tx,
			Breakdown:   make(map[string]float64, len(e.scorers)),
			Details:     make(map[string]string, len(e.scorers)),
		}
		for _, s := range e.scorers {
			points := s.Score(inv, tx)
			c.Breakdown[s.Name()] = points
			c.Details[s.Name()] = s.Breakdown(inv, tx)
			c.Total += points
		}
		if c.Total > 100 {
			c.Total = 100
		}
		scored = append(scored, c)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Total > scored[j].Total
	})
	return scored
}

// tryAutoLink walks the ranked candidates above the auto threshold and
// commits the first link that wins the store's at-most-once check. Losing a
// race to another invoice moves on to the next candidate.
func (e *Engine) tryAutoLink(ctx context.Context, inv *Invoice, scored []CandidateScore) *CandidateScore {
	for i := range scored {
		c := &scored[i]
		if c.Total < e.cfg.AutoMatchThreshold {
			return nil
		}

		err := e.store.Link(ctx, c.Transaction.ID, inv.ID, inv.OwnerID)
		switch {
		case err == nil:
			return c
		case errors.Is(err, ErrAlreadyLinked), errors.Is(err, ErrTransactionNotFound):
			e.logger.Warn("candidate no longer available, trying next",
				"transaction_id", c.Transaction.ID, "error", err)
		default:
			e.logger.Error("link commit failed", "transaction_id", c.Transaction.ID, "error", err)
			return nil
		}
	}
	return nil
}
