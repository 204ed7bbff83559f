package extraction

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Dmoment/StmtIQ-sub005/pkg/money"
)

// Field weights for the rule confidence score. Amount carries the most
// weight, document number and tax identifier the least.
const (
	weightAmount  = 0.35
	weightDate    = 0.20
	weightVendor  = 0.20
	weightNumber  = 0.15
	weightTaxID   = 0.10
	weightMaximum = weightAmount + weightDate + weightVendor + weightNumber + weightTaxID
)

// maxPlausibleAmount bounds labeled totals; anything at or above it is
// treated as OCR noise.
var maxPlausibleAmount = decimal.NewFromInt(100_000_000)

// Pattern families run most-specific first; the first match in a family wins.
var (
	labeledAmountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)grand\s*total\s*[:\-]?\s*(?:₹|rs\.?|inr)?\s*([\d,]+(?:\.\d{1,2})?)`),
		regexp.MustCompile(`(?i)total\s*amount\s*(?:payable|due)?\s*[:\-]?\s*(?:₹|rs\.?|inr)?\s*([\d,]+(?:\.\d{1,2})?)`),
		regexp.MustCompile(`(?i)amount\s*(?:payable|due|paid)\s*[:\-]?\s*(?:₹|rs\.?|inr)?\s*([\d,]+(?:\.\d{1,2})?)`),
		regexp.MustCompile(`(?i)net\s*(?:amount|payable)\s*[:\-]?\s*(?:₹|rs\.?|inr)?\s*([\d,]+(?:\.\d{1,2})?)`),
		regexp.MustCompile(`(?i)\btotal\b\s*[:\-]?\s*(?:₹|rs\.?|inr)?\s*([\d,]+(?:\.\d{1,2})?)`),
	}
	genericAmountPattern = regexp.MustCompile(`(?i)(?:₹|rs\.?\s|inr\s)\s*([\d,]+(?:\.\d{1,2})?)`)

	labeledDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:invoice|bill|receipt)\s*date\s*[:\-]?\s*([\d]{1,2}[-/\.][\d]{1,2}[-/\.][\d]{2,4}|[\d]{1,2}\s+[A-Za-z]{3,9},?\s+[\d]{4}|[A-Za-z]{3,9}\s+[\d]{1,2},?\s+[\d]{4}|\d{4}-\d{2}-\d{2})`),
		regexp.MustCompile(`(?i)\bdated?\s*[:\-]?\s*([\d]{1,2}[-/\.][\d]{1,2}[-/\.][\d]{2,4})`),
	}
	genericDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`),
		regexp.MustCompile(`\b(\d{1,2}[-/\.]\d{1,2}[-/\.]\d{2,4})\b`),
		regexp.MustCompile(`\b(\d{1,2}\s+[A-Za-z]{3,9},?\s+\d{4})\b`),
		regexp.MustCompile(`\b([A-Za-z]{3,9}\s+\d{1,2},?\s+\d{4})\b`),
	}

	// GSTIN: state code, PAN, entity digit, Z, checksum.
	gstinPattern = regexp.MustCompile(`\b(\d{2}[A-Z]{5}\d{4}[A-Z][1-9A-Z]Z[0-9A-Z])\b`)

	invoiceNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)invoice\s*(?:no|number|#)\.?\s*[:\-]?\s*([A-Za-z0-9][A-Za-z0-9/\-]{1,48}[A-Za-z0-9])`),
		regexp.MustCompile(`(?i)(?:bill|receipt|order)\s*(?:no|number|#|id)\.?\s*[:\-]?\s*([A-Za-z0-9][A-Za-z0-9/\-]{1,48}[A-Za-z0-9])`),
	}

	rupeeAbbrev = regexp.MustCompile(`(?i)\brs\.?\s*\d`)

	dateLayouts = []string{
		"02/01/2006", "02-01-2006", "02.01.2006",
		"02/01/06", "02-01-06",
		"2 January 2006", "2 January, 2006", "2 Jan 2006", "2 Jan, 2006",
		"January 2, 2006", "January 2 2006", "Jan 2, 2006", "Jan 2 2006",
		"2006-01-02",
	}
)

// RuleExtractor derives invoice fields from text with ordered regex
// families. Pure function of its input, no I/O.
type RuleExtractor struct {
	vendors *VendorDictionary
}

func NewRuleExtractor(vendors *VendorDictionary) *RuleExtractor {
	return &RuleExtractor{vendors: vendors}
}

// Parse extracts whatever fields the text yields and scores the result by
// the weight of the fields found.
func (r *RuleExtractor) Parse(text string) *InvoiceFields {
	fields := &InvoiceFields{Method: MethodRules, Currency: detectCurrency(text)}

	var found float64
	if amount := extractAmount(text); amount != nil {
		fields.TotalAmount = amount
		found += weightAmount
	}
	if date := extractDate(text); date != nil {
		fields.InvoiceDate = date
		found += weightDate
	}
	if vendor := r.vendors.Find(text); vendor != "" {
		fields.VendorName = vendor
		found += weightVendor
	}
	if number := extractInvoiceNumber(text); number != "" {
		fields.InvoiceNumber = number
		found += weightNumber
	}
	if m := gstinPattern.FindStringSubmatch(text); m != nil {
		fields.VendorTaxID = m[1]
		found += weightTaxID
	}

	fields.Confidence = found / weightMaximum
	return fields
}

func extractAmount(text string) *decimal.Decimal {
	for _, p := range labeledAmountPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			if d := plausibleAmount(m[1]); d != nil {
				return d
			}
		}
	}
	if m := genericAmountPattern.FindStringSubmatch(text); m != nil {
		return plausibleAmount(m[1])
	}
	return nil
}

func plausibleAmount(raw string) *decimal.Decimal {
	d, err := money.ParseDecimal(raw)
	if err != nil || !d.IsPositive() || d.GreaterThanOrEqual(maxPlausibleAmount) {
		return nil
	}
	return &d
}

func extractDate(text string) *time.Time {
	for _, p := range labeledDatePatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			if t := plausibleDate(m[1]); t != nil {
				return t
			}
		}
	}
	for _, p := range genericDatePatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			if t := plausibleDate(m[1]); t != nil {
				return t
			}
		}
	}
	return nil
}

func plausibleDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if t.Year() < 2000 || t.After(time.Now().AddDate(1, 0, 0)) {
			continue
		}
		return &t
	}
	return nil
}

func extractInvoiceNumber(text string) string {
	for _, p := range invoiceNumberPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			candidate := strings.TrimSpace(m[1])
			if len(candidate) >= 3 && len(candidate) <= 50 {
				return candidate
			}
		}
	}
	return ""
}

func detectCurrency(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(text, "₹") || strings.Contains(lower, "inr") ||
		rupeeAbbrev.MatchString(text):
		return money.INR
	case strings.Contains(text, "€") || strings.Contains(lower, "eur"):
		return money.EUR
	case strings.Contains(text, "$") || strings.Contains(lower, "usd"):
		return money.USD
	default:
		return money.INR
	}
}
