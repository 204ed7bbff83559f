package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Dmoment/StmtIQ-sub005/pkg/config"
)

const maxFailureMessageLen = 200

var (
	ErrFileTooLarge  = errors.New("file exceeds the maximum allowed size")
	ErrTypeMismatch  = errors.New("file content does not match its declared type")
	ErrUnsupported   = errors.New("unsupported document type")
	ErrNoUsableText  = errors.New("no usable text could be extracted from the document")
	ErrEmptyDocument = errors.New("document is empty")
)

var allowedTypes = map[string]bool{
	"application/pdf": true,
}

// Orchestrator runs a document through the extraction pipeline:
// direct text, OCR when flagged, rules, and the LLM pass when triggered.
type Orchestrator struct {
	cfg    config.ExtractionConfig
	text   *TextExtractor
	ocr    *OCREngine
	rules  *RuleExtractor
	llm    *LLMExtractor
	logger *slog.Logger
}

func NewOrchestrator(cfg *config.Config, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg.Extraction,
		text:   NewTextExtractor(cfg.Extraction, logger),
		ocr:    NewOCREngine(cfg.OCR, logger),
		rules:  NewRuleExtractor(NewVendorDictionary(nil)),
		llm:    NewLLMExtractor(cfg.LLM, logger),
		logger: logger,
	}
}

// Process takes a document from pending to extracted or failed. Validation
// runs before any extraction work; stage failures after that point degrade
// rather than abort.
func (o *Orchestrator) Process(ctx context.Context, doc Document) Result {
	if err := o.validate(doc); err != nil {
		o.logger.Warn("document rejected before extraction",
			"filename", doc.Filename, "error", err)
		return failure(err)
	}

	log := o.logger.With("filename", doc.Filename)
	log.Info("extraction started", "bytes", len(doc.Data))

	stages := []string{}

	textRes := o.text.Extract(ctx, doc.Data)
	stages = append(stages, textRes.Method)
	text := textRes.Text

	if textRes.NeedsOCR {
		ocrRes := o.ocr.Recognize(ctx, doc.Data)
		if !ocrRes.Available {
			log.Warn("OCR unavailable, continuing with direct text only")
		} else {
			stages = append(stages, MethodOCR)
			if len(ocrRes.Text) > len(text) {
				text = ocrRes.Text
			}
		}
	}

	if strings.TrimSpace(text) == "" {
		return failure(ErrNoUsableText)
	}

	fields := o.rules.Parse(text)
	stages = append(stages, MethodRules)

	if o.llm.ShouldRun(fields) {
		if llmFields := o.llm.Extract(ctx, text, fields); llmFields != nil {
			fields = Merge(fields, llmFields)
			stages = append(stages, MethodLLM)
		}
	}

	fields.Method = strings.Join(stages, "+")
	fields.Confidence = clamp01(fields.Confidence)

	log.Info("extraction finished",
		"method", fields.Method,
		"confidence", fields.Confidence,
		"vendor", fields.VendorName)

	return Result{Status: StatusExtracted, Fields: fields}
}

// validate enforces size, magic-byte and declared-type checks before any
// CPU is spent on the file.
func (o *Orchestrator) validate(doc Document) error {
	if len(doc.Data) == 0 {
		return ErrEmptyDocument
	}
	if o.cfg.MaxFileSizeBytes > 0 && int64(len(doc.Data)) > o.cfg.MaxFileSizeBytes {
		return ErrFileTooLarge
	}

	detected := mimetype.Detect(doc.Data)
	if !allowedTypes[detected.String()] {
		return fmt.Errorf("%w: detected %s", ErrUnsupported, detected.String())
	}
	if doc.DeclaredType != "" && !detected.Is(doc.DeclaredType) {
		return fmt.Errorf("%w: declared %s, detected %s",
			ErrTypeMismatch, doc.DeclaredType, detected.String())
	}
	return nil
}

// failure builds a terminal result with a bounded, sanitized message.
func failure(err error) Result {
	msg := err.Error()
	if len(msg) > maxFailureMessageLen {
		msg = msg[:maxFailureMessageLen]
	}
	return Result{Status: StatusFailed, Failure: msg}
}
