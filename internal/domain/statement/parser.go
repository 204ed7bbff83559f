// Package statement converts raw bank statement exports into canonical
// transactions. A profile-keyed registry selects one parser per
// (bank, account type) pair; all parsers share the base utilities for header
// location, date and amount handling so a new bank only has to describe how
// to extract one row.
package statement

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cloudflare/ahocorasick"
	"github.com/shopspring/decimal"

	"github.com/Dmoment/StmtIQ-sub005/pkg/money"
)

// Severity grades a diagnostic. Warnings are row-level and parsing continues;
// errors are file-level and abort with an empty transaction list.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic reports one problem found while parsing.
type Diagnostic struct {
	Severity Severity
	Row      int
	Message  string
}

func (d Diagnostic) String() string {
	if d.Row > 0 {
		return fmt.Sprintf("%s: row %d: %s", d.Severity, d.Row, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

// ParseResult carries the transactions and any diagnostics from one file.
type ParseResult struct {
	Transactions []*Transaction
	Diagnostics  []Diagnostic
	TotalRows    int
	ParsedRows   int
	SkippedRows  int
}

// Failed reports whether parsing aborted at file level.
func (r *ParseResult) Failed() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// RowExtractor converts one header-keyed row into a transaction. Each
// (bank, account type) pair implements only this plus its own alias and
// skip-pattern additions.
type RowExtractor interface {
	ExtractRow(row Row, p *FormatProfile) (*Transaction, error)
	Aliases() map[Field][]string
	SkipPatterns() []string
}

// Parser parses statement files for the profiles its registry knows about.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a parser. The logger receives row-level warnings.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// Parse converts raw statement bytes into canonical transactions. It never
// panics and never fails on a single bad row: malformed rows are reported as
// warnings and skipped, while file-level problems (unreadable data, missing
// header, unregistered profile) produce an empty list plus an error
// diagnostic.
func (p *Parser) Parse(data []byte, profile *FormatProfile) *ParseResult {
	result := &ParseResult{}

	extractor, ok := Lookup(profile.Bank, profile.AccountType)
	if !ok {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Severity: SeverityError,
			Message:  fmt.Sprintf("no parser registered for %s/%s", profile.Bank, profile.AccountType),
		})
		return result
	}

	rows, err := readRows(data, profile)
	if err != nil {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Severity: SeverityError,
			Message:  err.Error(),
		})
		return result
	}

	skipPatterns := append(append([]string{}, profile.SkipPatterns...), extractor.SkipPatterns()...)

	for _, row := range rows {
		result.TotalRows++

		if row.IsBlank() {
			result.SkippedRows++
			continue
		}
		if row.matchesAny(skipPatterns) {
			result.SkippedRows++
			continue
		}

		tx, err := extractor.ExtractRow(row, profile)
		if err != nil {
			p.logger.Warn("skipping statement row",
				"bank", profile.Bank,
				"row", row.Num,
				"error", err,
			)
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Severity: SeverityWarning,
				Row:      row.Num,
				Message:  err.Error(),
			})
			continue
		}

		result.Transactions = append(result.Transactions, tx)
		result.ParsedRows++
	}

	return result
}

// ----------------------------------------------------------------------------
// shared row utilities
// ----------------------------------------------------------------------------

// spreadsheet serial dates count days from this epoch (the 1900 leap-year bug
// included).
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var errNoDate = errors.New("missing or unparseable date")

// base carries the utilities every bank extractor shares.
type base struct{}

// parseDate tries the profile's layouts in order; for spreadsheet sources a
// numeric value is additionally interpreted as a serial day offset.
func (base) parseDate(raw string, p *FormatProfile) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, errNoDate
	}

	for _, layout := range p.DateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	if p.FileFormat == FormatXLSX {
		if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
			days := int(serial)
			return serialEpoch.AddDate(0, 0, days), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", errNoDate, raw)
}

// parseAmount parses a positive-magnitude amount cell.
func (base) parseAmount(raw string) (decimal.Decimal, error) {
	d, err := money.ParseDecimal(raw)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Abs(), nil
}

// splitColumnAmount derives amount and polarity from separate withdrawal and
// deposit columns: whichever is non-zero wins.
func (b base) splitColumnAmount(withdrawal, deposit string) (decimal.Decimal, TxType, error) {
	if strings.TrimSpace(withdrawal) != "" {
		d, err := b.parseAmount(withdrawal)
		if err == nil && !d.IsZero() {
			return d, TypeDebit, nil
		}
	}
	if strings.TrimSpace(deposit) != "" {
		d, err := b.parseAmount(deposit)
		if err == nil && !d.IsZero() {
			return d, TypeCredit, nil
		}
	}
	return decimal.Zero, "", errors.New("neither withdrawal nor deposit column carries an amount")
}

// indicatorType reads the credit/debit indicator against the profile's
// tokens. With no usable indicator it falls back to scanning the description
// for credit-ish keywords, defaulting to debit. The keyword path is
// best-effort: free-text descriptions carry no guarantee.
func (base) indicatorType(indicator, description string, p *FormatProfile) TxType {
	token := strings.ToLower(strings.TrimSpace(indicator))
	if token != "" {
		for _, c := range p.CreditTokens {
			if token == strings.ToLower(c) {
				return TypeCredit
			}
		}
		for _, d := range p.DebitTokens {
			if token == strings.ToLower(d) {
				return TypeDebit
			}
		}
	}

	if len(creditKeywords.Match([]byte(strings.ToLower(description)))) > 0 {
		return TypeCredit
	}
	return TypeDebit
}

// parseBalance reads the optional running-balance column.
func (b base) parseBalance(row Row, p *FormatProfile, aliases map[Field][]string) *decimal.Decimal {
	raw := row.Get(FieldBalance, p, aliases)
	if raw == "" {
		return nil
	}
	d, err := money.ParseDecimal(raw)
	if err != nil {
		return nil
	}
	return &d
}

// creditKeywords infer credit polarity from free text when no indicator
// column exists (credit card refunds, cashbacks, bill payments).
var creditKeywords = ahocorasick.NewStringMatcher([]string{
	"payment received",
	"payment credit",
	"refund",
	"cashback",
	"reversal",
	"credited",
})
