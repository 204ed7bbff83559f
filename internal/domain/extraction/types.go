// Package extraction reduces an invoice or receipt document to structured
// fields. Direct text extraction runs first; OCR and a language-model pass
// are fallback stages that only run when the earlier stage did not yield
// enough signal. External tool failures degrade the pipeline, they never
// abort it.
package extraction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status tracks one document through the pipeline.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusExtracted  Status = "extracted"
	StatusFailed     Status = "failed"
)

// Method tags name the stages that contributed to a result. The orchestrator
// joins them in execution order, e.g. "pdf_text+ocr+rules+llm".
const (
	MethodPDFText = "pdf_text"
	MethodOCR     = "ocr"
	MethodRules   = "rules"
	MethodLLM     = "llm"
)

// InvoiceFields is the structured output of an extraction run. Pointer fields
// are nil when no stage could produce the value.
type InvoiceFields struct {
	VendorName    string
	VendorTaxID   string
	InvoiceNumber string
	InvoiceDate   *time.Time
	TotalAmount   *decimal.Decimal
	Currency      string
	Confidence    float64
	Method        string
}

// HasAmount reports whether a usable total was found.
func (f *InvoiceFields) HasAmount() bool {
	return f.TotalAmount != nil && f.TotalAmount.IsPositive()
}

// TextResult is the outcome of the direct text extraction stage.
type TextResult struct {
	Text         string
	Method       string
	NeedsOCR     bool
	QualityScore float64
}

// OCRResult is the outcome of the OCR fallback stage. Available is false when
// the OCR binaries are not installed, which is a soft condition.
type OCRResult struct {
	Text      string
	Available bool
}

// Document is the raw input to an extraction run.
type Document struct {
	Filename     string
	DeclaredType string
	Data         []byte
}

// Result is what the orchestrator hands back to the caller.
type Result struct {
	Status  Status
	Fields  *InvoiceFields
	Failure string
}
