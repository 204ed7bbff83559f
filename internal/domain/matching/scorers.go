package matching

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/Dmoment/StmtIQ-sub005/internal/domain/statement"
)

// Scorer contributes one independent factor to a candidate's total score.
// New factors implement this and get appended to the engine's scorer list;
// existing scorers and the aggregation never change.
type Scorer interface {
	Name() string
	NominalWeight() float64
	Score(inv *Invoice, tx *statement.Transaction) float64
	Breakdown(inv *Invoice, tx *statement.Transaction) string
}

// DefaultScorers returns the standard factor list in evaluation order.
func DefaultScorers() []Scorer {
	return []Scorer{AmountScorer{}, DateScorer{}, NewVendorScorer()}
}

// AmountScorer awards points by percentage deviation between the invoice
// total and the transaction amount. Bands widen to 5% to absorb rounding and
// small discounts; beyond that the amounts are not the same payment.
type AmountScorer struct{}

func (AmountScorer) Name() string           { return "amount" }
func (AmountScorer) NominalWeight() float64 { return 50 }

func (AmountScorer) Score(inv *Invoice, tx *statement.Transaction) float64 {
	dev := amountDeviation(inv, tx)
	if dev < 0 {
		return 0
	}
	switch {
	case dev <= 0.01:
		return 50
	case dev <= 1:
		return 40
	case dev <= 2.5:
		return 30
	case dev <= 5:
		return 20
	default:
		return 0
	}
}

func (s AmountScorer) Breakdown(inv *Invoice, tx *statement.Transaction) string {
	dev := amountDeviation(inv, tx)
	if dev < 0 {
		return "amount not comparable"
	}
	return fmt.Sprintf("amount deviation %.2f%%", dev)
}

// amountDeviation returns the percentage deviation, or -1 when either amount
// is unusable.
func amountDeviation(inv *Invoice, tx *statement.Transaction) float64 {
	if tx.Amount == nil || !inv.TotalAmount.IsPositive() {
		return -1
	}
	txAmount := tx.Amount.ToDecimal()
	diff := txAmount.Sub(inv.TotalAmount).Abs()
	dev, _ := diff.Div(inv.TotalAmount).Mul(decimal.NewFromInt(100)).Float64()
	return dev
}

// DateScorer awards points by how many days separate the invoice date from
// the transaction date. Card settlements commonly lag a few days.
type DateScorer struct{}

func (DateScorer) Name() string           { return "date" }
func (DateScorer) NominalWeight() float64 { return 30 }

func (DateScorer) Score(inv *Invoice, tx *statement.Transaction) float64 {
	days := dayDifference(inv, tx)
	switch {
	case days < 0:
		return 0
	case days == 0:
		return 30
	case days == 1:
		return 25
	case days <= 3:
		return 20
	case days <= 7:
		return 10
	default:
		return 0
	}
}

func (s DateScorer) Breakdown(inv *Invoice, tx *statement.Transaction) string {
	days := dayDifference(inv, tx)
	if days < 0 {
		return "invoice has no date"
	}
	return fmt.Sprintf("%d day(s) apart", days)
}

// dayDifference returns whole calendar days between the two dates, or -1
// when the invoice has no date.
func dayDifference(inv *Invoice, tx *statement.Transaction) int {
	if inv.InvoiceDate == nil {
		return -1
	}
	a := dateOnly(*inv.InvoiceDate)
	b := dateOnly(tx.Date)
	days := int(a.Sub(b).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// VendorScorer compares the invoice vendor against the transaction
// description. Normalized forms are cached since descriptions repeat across
// evaluations.
type VendorScorer struct {
	mu    sync.RWMutex
	cache map[string]string
}

func NewVendorScorer() *VendorScorer {
	return &VendorScorer{cache: make(map[string]string)}
}

func (*VendorScorer) Name() string           { return "vendor" }
func (*VendorScorer) NominalWeight() float64 { return 20 }

func (s *VendorScorer) Score(inv *Invoice, tx *statement.Transaction) float64 {
	vendor := s.normalized(inv.VendorName)
	desc := s.normalized(tx.OriginalDescription)
	if vendor == "" || desc == "" {
		return 0
	}

	compactVendor := strings.ReplaceAll(vendor, " ", "")
	compactDesc := strings.ReplaceAll(desc, " ", "")
	if strings.Contains(compactDesc, compactVendor) || strings.Contains(compactVendor, compactDesc) {
		return 20
	}

	descWords := make(map[string]bool)
	for _, w := range strings.Fields(desc) {
		descWords[w] = true
	}
	for _, w := range strings.Fields(vendor) {
		if len(w) > 2 && descWords[w] {
			return 10
		}
	}
	return 0
}

func (s *VendorScorer) Breakdown(inv *Invoice, tx *statement.Transaction) string {
	switch s.Score(inv, tx) {
	case 20:
		return "vendor name contained in description"
	case 10:
		return "vendor shares a significant word with description"
	default:
		return "no vendor overlap"
	}
}

// normalized lower-cases, collapses separators and strips everything that is
// not a letter, digit or space.
func (s *VendorScorer) normalized(raw string) string {
	s.mu.RLock()
	if cached, ok := s.cache[raw]; ok {
		s.mu.RUnlock()
		return cached
	}
	s.mu.RUnlock()

	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '/' || r == '-' || r == '_' || r == '*' || unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	norm := strings.Join(strings.Fields(b.String()), " ")

	s.mu.Lock()
	if len(s.cache) < 4096 {
		s.cache[raw] = norm
	}
	s.mu.Unlock()
	return norm
}
