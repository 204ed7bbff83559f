package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Dmoment/StmtIQ-sub005/pkg/config"
)

// fakePDF wraps lines of text into a minimal PDF with an uncompressed
// content stream, enough for the stream-decoding fallback path.
func fakePDF(lines ...string) []byte {
	var ops strings.Builder
	ops.WriteString("BT /F1 12 Tf 50 700 Td\n")
	for _, line := range lines {
		line = strings.ReplaceAll(line, `\`, `\\`)
		line = strings.ReplaceAll(line, "(", `\(`)
		line = strings.ReplaceAll(line, ")", `\)`)
		fmt.Fprintf(&ops, "(%s) Tj 0 -14 Td\n", line)
	}
	ops.WriteString("ET\n")

	content := ops.String()
	return []byte(fmt.Sprintf(
		"%%PDF-1.4\n1 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n%%%%EOF\n",
		len(content), content))
}

func offlineExtractionConfig() config.ExtractionConfig {
	return config.ExtractionConfig{
		MaxFileSizeBytes: 20 << 20,
		MinTextLength:    200,
		QualityThreshold: 0.4,
		// force the content-stream fallback so tests do not depend on
		// poppler being installed
		PdftotextBinary: "pdftotext-not-installed",
	}
}

var invoiceLines = []string{
	"TAX INVOICE",
	"Zomato Limited",
	"GSTIN: 27AAPFU0939F1ZV",
	"Invoice No: ZOM/2024/001234",
	"Invoice Date: 01/03/2024",
	"Order: 1x Paneer Tikka, 2x Butter Naan, 1x Dal Makhani delivery",
	"Subtotal: Rs. 420.00",
	"CGST 2.5%: Rs. 15.00",
	"SGST 2.5%: Rs. 15.00",
	"Grand Total: Rs. 450.00",
	"Payment received via UPI. Thank you for ordering with Zomato!",
}

func TestTextExtractor_Extract(t *testing.T) {
	e := NewTextExtractor(offlineExtractionConfig(), slog.Default())
	ctx := context.Background()

	t.Run("text rich document skips OCR", func(t *testing.T) {
		res := e.Extract(ctx, fakePDF(invoiceLines...))

		assert.Equal(t, MethodPDFText, res.Method)
		assert.False(t, res.NeedsOCR)
		assert.GreaterOrEqual(t, res.QualityScore, 0.4)
		assert.Contains(t, res.Text, "Zomato")
		assert.Contains(t, res.Text, "450.00")
	})

	t.Run("short text always flags OCR", func(t *testing.T) {
		res := e.Extract(ctx, fakePDF("Invoice", "Total: Rs. 100"))

		assert.True(t, res.NeedsOCR)
		assert.Less(t, len(res.Text), 200)
	})

	t.Run("scanned document degrades to empty text", func(t *testing.T) {
		res := e.Extract(ctx, []byte("%PDF-1.4\nno streams here\n%%EOF"))

		assert.Empty(t, res.Text)
		assert.True(t, res.NeedsOCR)
	})
}

func TestTextQuality(t *testing.T) {
	t.Run("invoice text outscores garbage", func(t *testing.T) {
		invoice := strings.Join(invoiceLines, "\n")
		garbage := strings.Repeat("\x01\x02~~^^### ", 40)
		assert.Greater(t, textQuality(invoice), textQuality(garbage))
	})

	t.Run("empty text scores zero", func(t *testing.T) {
		assert.Zero(t, textQuality(""))
	})

	t.Run("score stays within bounds", func(t *testing.T) {
		long := strings.Repeat(strings.Join(invoiceLines, " "), 20)
		score := textQuality(long)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	})
}

func TestCleanText(t *testing.T) {
	in := "Line  one\t extra\n\n\n\nLine two\x00\x01\nLine   three  "
	got := cleanText(in)

	assert.Equal(t, "Line one extra\n\nLine two\nLine three", got)
}
