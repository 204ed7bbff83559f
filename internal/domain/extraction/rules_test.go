package extraction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleInvoice = `TAX INVOICE
Zomato Limited
GSTIN: 27AAPFU0939F1ZV
Invoice No: ZOM/2024/001234
Invoice Date: 01/03/2024

Order delivery charges
Subtotal: ₹420.00
CGST: ₹15.00
SGST: ₹15.00
Grand Total: ₹450.00
`

func newRuleExtractor() *RuleExtractor {
	return NewRuleExtractor(NewVendorDictionary(nil))
}

func TestRuleExtractor_Parse(t *testing.T) {
	r := newRuleExtractor()

	t.Run("full invoice", func(t *testing.T) {
		fields := r.Parse(sampleInvoice)

		require.NotNil(t, fields.TotalAmount)
		assert.Equal(t, "450", fields.TotalAmount.String())
		require.NotNil(t, fields.InvoiceDate)
		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *fields.InvoiceDate)
		assert.Equal(t, "Zomato", fields.VendorName)
		assert.Equal(t, "ZOM/2024/001234", fields.InvoiceNumber)
		assert.Equal(t, "27AAPFU0939F1ZV", fields.VendorTaxID)
		assert.Equal(t, "INR", fields.Currency)
		assert.InDelta(t, 1.0, fields.Confidence, 0.001)
	})

	t.Run("labeled total beats line items", func(t *testing.T) {
		fields := r.Parse("Item one Rs. 99.00\nItem two Rs. 120.00\nTotal Amount: Rs. 219.00")
		require.NotNil(t, fields.TotalAmount)
		assert.Equal(t, "219", fields.TotalAmount.String())
	})

	t.Run("generic currency number as last resort", func(t *testing.T) {
		fields := r.Parse("Thanks for shopping with us! You paid ₹1,299.50 today.")
		require.NotNil(t, fields.TotalAmount)
		assert.Equal(t, "1299.5", fields.TotalAmount.String())
	})

	t.Run("implausible amounts rejected", func(t *testing.T) {
		fields := r.Parse("Total: ₹999,999,999,999")
		assert.Nil(t, fields.TotalAmount)
	})

	t.Run("date sanity bounds", func(t *testing.T) {
		assert.Nil(t, r.Parse("Invoice Date: 01/03/1997").InvoiceDate)

		future := time.Now().AddDate(3, 0, 0).Format("02/01/2006")
		assert.Nil(t, r.Parse("Invoice Date: "+future).InvoiceDate)
	})

	t.Run("gstin grammar is exact", func(t *testing.T) {
		assert.Empty(t, r.Parse("GSTIN: 27AAPFU0939F1XV").VendorTaxID)  // missing Z
		assert.Empty(t, r.Parse("GSTIN: 2AAPFU0939F1ZV").VendorTaxID)   // short state code
		assert.Equal(t, "29AABCT1332L1ZU", r.Parse("GSTIN 29AABCT1332L1ZU").VendorTaxID)
	})

	t.Run("empty text yields zero confidence", func(t *testing.T) {
		fields := r.Parse("")
		assert.Zero(t, fields.Confidence)
		assert.Nil(t, fields.TotalAmount)
		assert.Empty(t, fields.VendorName)
	})

	t.Run("confidence reflects weights", func(t *testing.T) {
		amountOnly := r.Parse("Grand Total: ₹100")
		dateOnly := r.Parse("Invoice Date: 05/06/2024")
		assert.Greater(t, amountOnly.Confidence, dateOnly.Confidence)
	})
}

func TestVendorDictionary(t *testing.T) {
	d := NewVendorDictionary(nil)

	t.Run("alias containment", func(t *testing.T) {
		assert.Equal(t, "Swiggy", d.Find("BUNDL TECHNOLOGIES PRIVATE LIMITED order #8812"))
		assert.Equal(t, "Amazon", d.Find("sold on amazon.in marketplace"))
	})

	t.Run("longest alias wins", func(t *testing.T) {
		assert.Equal(t, "Amazon", d.Find("amazon seller services pvt ltd"))
	})

	t.Run("labeled seller with suffix cleanup", func(t *testing.T) {
		got := d.Find("Sold By: Chai Point Beverages Pvt Ltd")
		assert.Equal(t, "Chai Point Beverages", got)
	})

	t.Run("unknown text yields empty", func(t *testing.T) {
		assert.Empty(t, d.Find("completely unrelated text"))
	})
}

func TestCleanVendorName(t *testing.T) {
	for raw, want := range map[string]string{
		"Zomato Limited":              "Zomato",
		"Bundl Technologies Pvt Ltd":  "Bundl Technologies",
		"Acme Solutions LLP":          "Acme Solutions",
		"Widget Corp.":                "Widget",
		"No Suffix Here":              "No Suffix Here",
		"Trailing Comma Traders, Ltd": "Trailing Comma Traders",
	} {
		assert.Equal(t, want, CleanVendorName(raw), raw)
	}
}
