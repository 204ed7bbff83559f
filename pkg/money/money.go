// Package money provides currency-safe amounts for statement and invoice
// processing using integer minor units. It wraps go-money for arithmetic and
// shopspring/decimal for parsing precision.
package money

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency codes the pipeline deals with. Statements are INR; invoices may
// declare another currency which is preserved as-is.
const (
	INR = "INR"
	USD = "USD"
	EUR = "EUR"
)

// Money is a monetary magnitude with currency. Statement amounts are always
// non-negative; polarity lives on the transaction type, never here.
type Money struct {
	m *money.Money
}

// New creates Money from minor units (paise for INR).
func New(minorUnits int64, currencyCode string) *Money {
	return &Money{m: money.New(minorUnits, currencyCode)}
}

// NewFromDecimal creates Money from a decimal major-unit amount.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currency = money.GetCurrency(INR)
	}
	multiplier := decimal.New(1, int32(currency.Fraction))
	return New(amount.Mul(multiplier).Round(0).IntPart(), currencyCode)
}

// Zero returns a zero value for the given currency.
func Zero(currencyCode string) *Money {
	return New(0, currencyCode)
}

// ParseDecimal parses a statement or invoice amount string into a decimal.
// It strips currency markers (₹, Rs., INR, $, €), thousands separators and
// surrounding whitespace, and understands "(1,234.50)" and trailing-minus
// negatives. The returned decimal keeps its sign; callers decide polarity.
func ParseDecimal(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.Trim(s, "()")
	}
	if strings.HasSuffix(s, "-") {
		negative = true
		s = strings.TrimSuffix(s, "-")
	}

	for _, marker := range []string{"₹", "Rs.", "Rs ", "RS.", "INR", "$", "€", "£"} {
		s = strings.ReplaceAll(s, marker, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("no digits in amount %q", raw)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// Parse parses an amount string directly into Money in the given currency.
func Parse(raw string, currencyCode string) (*Money, error) {
	d, err := ParseDecimal(raw)
	if err != nil {
		return nil, err
	}
	return NewFromDecimal(d, currencyCode), nil
}

// Amount returns the value in minor units.
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 currency code.
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

// IsZero reports whether the amount is zero.
func (m *Money) IsZero() bool {
	return m == nil || m.m == nil || m.m.IsZero()
}

// IsNegative reports whether the amount is below zero.
func (m *Money) IsNegative() bool {
	return m != nil && m.m != nil && m.m.IsNegative()
}

// Abs returns the absolute value.
func (m *Money) Abs() *Money {
	if m == nil || m.m == nil {
		return Zero(INR)
	}
	return &Money{m: m.m.Absolute()}
}

// Equals compares value and currency.
func (m *Money) Equals(other *Money) bool {
	if m.IsZero() && other.IsZero() {
		return true
	}
	if m == nil || m.m == nil || other == nil || other.m == nil {
		return false
	}
	eq, err := m.m.Equals(other.m)
	return err == nil && eq
}

// ToDecimal converts to a major-unit decimal for precise comparisons.
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	divisor := decimal.New(1, int32(m.m.Currency().Fraction))
	return decimal.NewFromInt(m.m.Amount()).Div(divisor)
}

// Display returns a human-readable formatted amount (e.g. "₹4,550.00").
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return "₹0.00"
	}
	return m.m.Display()
}

// String returns the amount as a bare decimal string.
func (m *Money) String() string {
	return m.ToDecimal().StringFixed(2)
}

// MarshalJSON emits {"amount": minorUnits, "currency": code}.
func (m *Money) MarshalJSON() ([]byte, error) {
	if m == nil || m.m == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(map[string]any{
		"amount":   m.Amount(),
		"currency": m.Currency(),
	})
}

// UnmarshalJSON accepts the MarshalJSON shape.
func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.Currency == "" {
		v.Currency = INR
	}
	m.m = money.New(v.Amount, v.Currency)
	return nil
}
