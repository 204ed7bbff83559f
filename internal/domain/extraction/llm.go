package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Dmoment/StmtIQ-sub005/pkg/config"
	"github.com/Dmoment/StmtIQ-sub005/pkg/money"
)

const llmSystemPrompt = `You extract structured fields from invoice text. ` +
	`Respond with a single JSON object and nothing else, using exactly these keys: ` +
	`vendor_name, gstin, invoice_number, invoice_date (DD/MM/YYYY), total_amount (number), ` +
	`confidence (0 to 1). Use null for any field you cannot determine.`

// LLMExtractor sends bounded document text to a chat-completion endpoint as
// a last resort when rules were not conclusive. Every failure path is soft:
// the caller keeps the rule-based result.
type LLMExtractor struct {
	cfg        config.LLMConfig
	httpClient *http.Client
	logger     *slog.Logger
}

func NewLLMExtractor(cfg config.LLMConfig, logger *slog.Logger) *LLMExtractor {
	return &LLMExtractor{
		cfg:        cfg,
		logger:     logger,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// ShouldRun implements the trigger policy: low rule confidence, a missing
// amount, or a middling result with no recognized vendor.
func (e *LLMExtractor) ShouldRun(fields *InvoiceFields) bool {
	if e.cfg.APIKey == "" {
		return false
	}
	switch {
	case fields.Confidence < e.cfg.AmbiguityThreshold:
		return true
	case !fields.HasAmount():
		return true
	case fields.Confidence < e.cfg.VendorThreshold && fields.VendorName == "":
		return true
	}
	return false
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type llmFields struct {
	VendorName    *string  `json:"vendor_name"`
	GSTIN         *string  `json:"gstin"`
	InvoiceNumber *string  `json:"invoice_number"`
	InvoiceDate   *string  `json:"invoice_date"`
	TotalAmount   *float64 `json:"total_amount"`
	Confidence    float64  `json:"confidence"`
}

// Extract asks the model to fill in fields, passing the rule results as
// hints. Returns nil on any transport, decode or validation failure.
func (e *LLMExtractor) Extract(ctx context.Context, text string, hints *InvoiceFields) *InvoiceFields {
	if len(text) > e.cfg.MaxDocumentChars {
		text = text[:e.cfg.MaxDocumentChars]
	}

	payload, err := json.Marshal(chatRequest{
		Model:       e.cfg.Model,
		Temperature: 0.1,
		Messages: []chatMessage{
			{Role: "system", Content: llmSystemPrompt},
			{Role: "user", Content: buildUserPrompt(text, hints)},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		e.logger.Warn("encoding LLM request", "error", err)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		e.logger.Warn("building LLM request", "error", err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		e.logger.Warn("LLM request failed", "error", err)
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		e.logger.Warn("reading LLM response", "error", err)
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		e.logger.Warn("LLM endpoint returned error", "status", resp.StatusCode)
		return nil
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil || len(cr.Choices) == 0 {
		e.logger.Warn("malformed LLM response envelope", "error", err)
		return nil
	}

	return e.parseContent(cr.Choices[0].Message.Content)
}

func buildUserPrompt(text string, hints *InvoiceFields) string {
	var b strings.Builder
	b.WriteString("Invoice text:\n")
	b.WriteString(text)
	b.WriteString("\n\nCandidates already extracted by rules (may be wrong or incomplete):\n")
	if hints.VendorName != "" {
		fmt.Fprintf(&b, "vendor_name: %s\n", hints.VendorName)
	}
	if hints.InvoiceNumber != "" {
		fmt.Fprintf(&b, "invoice_number: %s\n", hints.InvoiceNumber)
	}
	if hints.VendorTaxID != "" {
		fmt.Fprintf(&b, "gstin: %s\n", hints.VendorTaxID)
	}
	if hints.InvoiceDate != nil {
		fmt.Fprintf(&b, "invoice_date: %s\n", hints.InvoiceDate.Format("02/01/2006"))
	}
	if hints.TotalAmount != nil {
		fmt.Fprintf(&b, "total_amount: %s\n", hints.TotalAmount.String())
	}
	return b.String()
}

// parseContent decodes and validates the model's JSON. Fields that fail
// their grammar or parse checks are dropped rather than trusted.
func (e *LLMExtractor) parseContent(content string) *InvoiceFields {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var raw llmFields
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err != nil {
		e.logger.Warn("LLM returned non-JSON content", "error", err)
		return nil
	}

	fields := &InvoiceFields{Method: MethodLLM}
	if raw.VendorName != nil {
		fields.VendorName = CleanVendorName(*raw.VendorName)
	}
	if raw.GSTIN != nil {
		gstin := strings.ToUpper(strings.TrimSpace(*raw.GSTIN))
		if gstinPattern.MatchString(gstin) {
			fields.VendorTaxID = gstin
		}
	}
	if raw.InvoiceNumber != nil {
		n := strings.TrimSpace(*raw.InvoiceNumber)
		if len(n) >= 3 && len(n) <= 50 {
			fields.InvoiceNumber = n
		}
	}
	if raw.InvoiceDate != nil {
		if t, err := time.Parse("02/01/2006", strings.TrimSpace(*raw.InvoiceDate)); err == nil {
			fields.InvoiceDate = &t
		}
	}
	if raw.TotalAmount != nil && *raw.TotalAmount > 0 {
		if d := plausibleAmount(fmt.Sprintf("%.2f", *raw.TotalAmount)); d != nil {
			fields.TotalAmount = d
			fields.Currency = money.INR
		}
	}

	fields.Confidence = clamp01(raw.Confidence)
	return fields
}

// Merge fills only the fields the rule stage left empty and keeps the higher
// of the two confidences.
func Merge(rules, llm *InvoiceFields) *InvoiceFields {
	if llm == nil {
		return rules
	}
	merged := *rules
	if merged.VendorName == "" {
		merged.VendorName = llm.VendorName
	}
	if merged.VendorTaxID == "" {
		merged.VendorTaxID = llm.VendorTaxID
	}
	if merged.InvoiceNumber == "" {
		merged.InvoiceNumber = llm.InvoiceNumber
	}
	if merged.InvoiceDate == nil {
		merged.InvoiceDate = llm.InvoiceDate
	}
	if merged.TotalAmount == nil {
		merged.TotalAmount = llm.TotalAmount
		if merged.Currency == "" {
			merged.Currency = llm.Currency
		}
	}
	if llm.Confidence > merged.Confidence {
		merged.Confidence = llm.Confidence
	}
	return &merged
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
