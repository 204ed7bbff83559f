package statement

import (
	"fmt"
	"strings"
	"sync"
)

// registry maps bank/accountType to its row extractor. Adding a bank means
// registering a new extractor; existing ones are never touched.
var (
	registryMu sync.RWMutex
	registry   = map[string]RowExtractor{}
)

func registryKey(bank string, accountType AccountType) string {
	return strings.ToLower(bank) + "/" + string(accountType)
}

// Register adds an extractor for a (bank, account type) pair.
func Register(bank string, accountType AccountType, e RowExtractor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[registryKey(bank, accountType)] = e
}

// Lookup returns the extractor registered for the pair, if any.
func Lookup(bank string, accountType AccountType) (RowExtractor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	e, ok := registry[registryKey(bank, accountType)]
	return e, ok
}

func init() {
	Register("hdfc", AccountSavings, hdfcSavings{})
	Register("sbi", AccountSavings, sbiSavings{})
	Register("icici", AccountCurrent, iciciCurrent{})
	Register("axis", AccountCreditCard, axisCreditCard{})
}

// ----------------------------------------------------------------------------
// split-column savings accounts
// ----------------------------------------------------------------------------

type hdfcSavings struct{ base }

func (hdfcSavings) Aliases() map[Field][]string {
	return map[Field][]string{
		FieldDate:        {"Date", "Txn Date", "Value Date"},
		FieldDescription: {"Narration", "Particulars", "Description"},
		FieldWithdrawal:  {"Withdrawal Amt.", "Withdrawal Amount", "Debit", "DR"},
		FieldDeposit:     {"Deposit Amt.", "Deposit Amount", "Credit", "CR"},
		FieldBalance:     {"Closing Balance", "Balance", "BAL"},
		FieldReference:   {"Chq./Ref.No.", "Chq/Ref Number", "Ref No"},
	}
}

func (hdfcSavings) SkipPatterns() []string {
	return []string{"statement of account", "generated on"}
}

func (e hdfcSavings) ExtractRow(row Row, p *FormatProfile) (*Transaction, error) {
	return extractSplitColumnRow(e.base, row, p, e.Aliases())
}

type sbiSavings struct{ base }

func (sbiSavings) Aliases() map[Field][]string {
	return map[Field][]string{
		FieldDate:        {"Txn Date", "Date", "Value Date"},
		FieldDescription: {"Description", "Particulars", "Narration"},
		FieldWithdrawal:  {"Debit", "Withdrawal", "DR"},
		FieldDeposit:     {"Credit", "Deposit", "CR"},
		FieldBalance:     {"Balance", "BAL"},
		FieldReference:   {"Ref No./Cheque No.", "Ref No", "Cheque No"},
	}
}

func (sbiSavings) SkipPatterns() []string {
	return []string{"interest rate", "branch code"}
}

func (e sbiSavings) ExtractRow(row Row, p *FormatProfile) (*Transaction, error) {
	return extractSplitColumnRow(e.base, row, p, e.Aliases())
}

// extractSplitColumnRow handles layouts with separate withdrawal and deposit
// columns; polarity is implied by which column is populated.
func extractSplitColumnRow(b base, row Row, p *FormatProfile, aliases map[Field][]string) (*Transaction, error) {
	date, err := b.parseDate(row.Get(FieldDate, p, aliases), p)
	if err != nil {
		return nil, err
	}

	description := row.Get(FieldDescription, p, aliases)
	if description == "" {
		return nil, fmt.Errorf("row %d: missing description", row.Num)
	}

	amount, txType, err := b.splitColumnAmount(
		row.Get(FieldWithdrawal, p, aliases),
		row.Get(FieldDeposit, p, aliases),
	)
	if err != nil {
		return nil, fmt.Errorf("row %d: %w", row.Num, err)
	}

	tx := newTransaction(p, row.Num, date, description, amount, txType)
	tx.Balance = b.parseBalance(row, p, aliases)
	tx.Reference = row.Get(FieldReference, p, aliases)
	return tx, nil
}

// ----------------------------------------------------------------------------
// signed-indicator accounts
// ----------------------------------------------------------------------------

type iciciCurrent struct{ base }

func (iciciCurrent) Aliases() map[Field][]string {
	return map[Field][]string{
		FieldDate:        {"Transaction Date", "Txn Posted Date", "Value Date"},
		FieldDescription: {"Transaction Remarks", "Description", "Particulars"},
		FieldAmount:      {"Transaction Amount(INR)", "Amount", "Amount (INR)"},
		FieldIndicator:   {"Cr/Dr", "Dr/Cr", "Type"},
		FieldBalance:     {"Available Balance(INR)", "Balance", "Available Balance"},
		FieldReference:   {"Cheque no /Ref No", "Ref No", "Transaction ID"},
	}
}

func (iciciCurrent) SkipPatterns() []string {
	return []string{"transactions legend", "page total"}
}

func (e iciciCurrent) ExtractRow(row Row, p *FormatProfile) (*Transaction, error) {
	return extractIndicatorRow(e.base, row, p, e.Aliases())
}

type axisCreditCard struct{ base }

func (axisCreditCard) Aliases() map[Field][]string {
	return map[Field][]string{
		FieldDate:        {"Transaction Date", "Date"},
		FieldDescription: {"Transaction Details", "Merchant", "Description"},
		FieldAmount:      {"Amount (INR)", "Amount", "Amount(INR)"},
		FieldIndicator:   {"Debit/Credit", "DR/CR", "Type"},
		FieldReference:   {"Reference Number", "Ref No"},
	}
}

func (axisCreditCard) SkipPatterns() []string {
	return []string{"reward points", "credit limit", "card number"}
}

func (e axisCreditCard) ExtractRow(row Row, p *FormatProfile) (*Transaction, error) {
	return extractIndicatorRow(e.base, row, p, e.Aliases())
}

// extractIndicatorRow handles layouts with one amount column and an explicit
// credit/debit indicator. A missing indicator falls back to description
// keywords, defaulting to debit.
func extractIndicatorRow(b base, row Row, p *FormatProfile, aliases map[Field][]string) (*Transaction, error) {
	date, err := b.parseDate(row.Get(FieldDate, p, aliases), p)
	if err != nil {
		return nil, err
	}

	description := row.Get(FieldDescription, p, aliases)
	if description == "" {
		return nil, fmt.Errorf("row %d: missing description", row.Num)
	}

	amountRaw := row.Get(FieldAmount, p, aliases)
	if amountRaw == "" {
		return nil, fmt.Errorf("row %d: missing amount", row.Num)
	}
	amount, err := b.parseAmount(amountRaw)
	if err != nil {
		return nil, fmt.Errorf("row %d: %w", row.Num, err)
	}
	if amount.IsZero() {
		return nil, fmt.Errorf("row %d: zero amount", row.Num)
	}

	txType := b.indicatorType(row.Get(FieldIndicator, p, aliases), description, p)

	tx := newTransaction(p, row.Num, date, description, amount, txType)
	tx.Balance = b.parseBalance(row, p, aliases)
	tx.Reference = row.Get(FieldReference, p, aliases)
	return tx, nil
}
