package statement

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Dmoment/StmtIQ-sub005/pkg/money"
)

// TxType is the polarity of a transaction. Amounts are always non-negative
// magnitudes; polarity lives exclusively here.
type TxType string

const (
	TypeDebit  TxType = "debit"
	TypeCredit TxType = "credit"
)

// Metadata keys set by the parser framework.
const (
	MetaBank        = "bank"
	MetaAccountType = "account_type"
	MetaSource      = "source"
)

const maxDescriptionLen = 100

// Transaction is the canonical, normalized representation of one statement
// line. Created once per parsed row; immutable afterwards except for fields
// owned by other subsystems (LinkedInvoiceID belongs to the matching engine).
type Transaction struct {
	ID                  uuid.UUID
	OwnerID             uuid.UUID
	Date                time.Time
	Description         string
	OriginalDescription string
	Amount              *money.Money
	Type                TxType
	Balance             *decimal.Decimal
	Reference           string
	Metadata            map[string]string
	LinkedInvoiceID     *uuid.UUID
}

// IsLinked reports whether an invoice has already been linked.
func (t *Transaction) IsLinked() bool {
	return t.LinkedInvoiceID != nil
}

// newTransaction builds a canonical transaction. The ID is a deterministic
// fingerprint of the row's content so that parsing the same file twice yields
// identical output.
func newTransaction(p *FormatProfile, rowNum int, date time.Time, description string, amount decimal.Decimal, txType TxType) *Transaction {
	original := collapseSpaces(description)
	fingerprint := fmt.Sprintf("%s|%s|%d|%s|%s|%s|%s",
		p.Bank, p.AccountType, rowNum, date.Format("2006-01-02"), original, amount.Abs().String(), txType)
	return &Transaction{
		ID:                  uuid.NewSHA1(uuid.NameSpaceOID, []byte(fingerprint)),
		Date:                date,
		Description:         truncate(original, maxDescriptionLen),
		OriginalDescription: original,
		Amount:              money.NewFromDecimal(amount.Abs(), money.INR),
		Type:                txType,
		Metadata: map[string]string{
			MetaBank:        p.Bank,
			MetaAccountType: string(p.AccountType),
			MetaSource:      string(p.FileFormat),
		},
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
