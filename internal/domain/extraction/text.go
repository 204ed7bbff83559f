package extraction

import (
	"bytes"
	"compress/zlib"
	"context"
	"io"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
	"unicode"

	"github.com/Dmoment/StmtIQ-sub005/pkg/config"
)

// TextExtractor pulls embedded text out of a PDF. It shells out to pdftotext
// when the binary is on PATH and otherwise falls back to decoding the
// document's content streams directly.
type TextExtractor struct {
	cfg    config.ExtractionConfig
	logger *slog.Logger
}

func NewTextExtractor(cfg config.ExtractionConfig, logger *slog.Logger) *TextExtractor {
	return &TextExtractor{cfg: cfg, logger: logger}
}

// Extract never returns an error: every failure mode degrades to an
// empty-text result flagged for OCR.
func (e *TextExtractor) Extract(ctx context.Context, data []byte) TextResult {
	text, err := e.pdftotext(ctx, data)
	if err != nil {
		e.logger.Debug("pdftotext unavailable, decoding content streams", "error", err)
		text = extractContentStreams(data)
	}

	text = cleanText(text)
	if len(text) < e.cfg.MinTextLength {
		return TextResult{Text: text, Method: MethodPDFText, NeedsOCR: true}
	}

	score := textQuality(text)
	return TextResult{
		Text:         text,
		Method:       MethodPDFText,
		NeedsOCR:     score < e.cfg.QualityThreshold,
		QualityScore: score,
	}
}

func (e *TextExtractor) pdftotext(ctx context.Context, data []byte) (string, error) {
	bin := e.cfg.PdftotextBinary
	if bin == "" {
		bin = "pdftotext"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, path, "-layout", "-", "-")
	cmd.Stdin = bytes.NewReader(data)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		e.logger.Warn("pdftotext failed", "error", err, "stderr", stderr.String())
		return "", err
	}
	return stdout.String(), nil
}

var streamStart = regexp.MustCompile(`stream\r?\n`)

// extractContentStreams decodes FlateDecode content streams and collects the
// text-showing operators. Handles most digitally produced invoices; scanned
// documents come out empty and route to OCR.
func extractContentStreams(data []byte) string {
	var out strings.Builder
	end := []byte("endstream")

	for _, pos := range streamStart.FindAllIndex(data, -1) {
		start := pos[1]
		endIdx := bytes.Index(data[start:], end)
		if endIdx == -1 {
			continue
		}
		stream := bytes.TrimRight(data[start:start+endIdx], "\r\n")

		decoded := stream
		if r, err := zlib.NewReader(bytes.NewReader(stream)); err == nil {
			if d, err := io.ReadAll(r); err == nil {
				decoded = d
			}
			r.Close()
		}

		out.WriteString(textOperators(decoded))
	}
	return out.String()
}

var (
	tjOp      = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)\s*(?:Tj|')`)
	tjArrayOp = regexp.MustCompile(`\[((?:\((?:\\.|[^\\)])*\)|[^\]])*)\]\s*TJ`)
	parenStr  = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)
	tdOp      = regexp.MustCompile(`[\d.-]+\s+(-[\d.]+)\s+Td`)
)

func textOperators(stream []byte) string {
	var out strings.Builder
	content := string(stream)

	for _, m := range tjOp.FindAllStringSubmatch(content, -1) {
		out.WriteString(decodePDFString(m[1]))
		out.WriteString(" ")
	}
	for _, m := range tjArrayOp.FindAllStringSubmatch(content, -1) {
		for _, inner := range parenStr.FindAllStringSubmatch(m[1], -1) {
			out.WriteString(decodePDFString(inner[1]))
		}
		out.WriteString(" ")
	}
	if tdOp.MatchString(content) {
		out.WriteString("\n")
	}
	return out.String()
}

func decodePDFString(s string) string {
	r := strings.NewReplacer(
		`\n`, "\n", `\r`, "\r", `\t`, "\t",
		`\(`, "(", `\)`, ")", `\\`, `\`,
	)
	s = r.Replace(s)

	var clean strings.Builder
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			clean.WriteRune(c)
		}
	}
	return clean.String()
}

// cleanText strips control characters and collapses runs of blank lines and
// horizontal whitespace.
func cleanText(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\t' || unicode.IsPrint(r) {
			b.WriteRune(r)
		}
	}
	lines := strings.Split(b.String(), "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

var invoiceKeywords = []string{
	"invoice", "bill", "receipt", "total", "amount", "gst", "gstin",
	"tax", "payment", "due", "subtotal", "cgst", "sgst", "igst",
}

var (
	amountShaped = regexp.MustCompile(`(?:₹|rs\.?|inr)\s*[\d,]+(?:\.\d{1,2})?`)
	dateShaped   = regexp.MustCompile(`\d{1,2}[-/]\d{1,2}[-/]\d{2,4}|\d{4}-\d{2}-\d{2}`)
	taxIDShaped  = regexp.MustCompile(`\d{2}[A-Z]{5}\d{4}[A-Z]`)
)

// textQuality scores how much the text looks like a readable invoice, 0 to 1.
// A weighted composite of length, character makeup, token shape, domain
// keyword hits and the presence of amount/date/tax-ID shaped substrings.
func textQuality(text string) float64 {
	if text == "" {
		return 0
	}

	lengthScore := float64(len(text)) / 1000
	if lengthScore > 1 {
		lengthScore = 1
	}

	var alnum, garbage int
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			alnum++
		case !unicode.IsSpace(r) && !unicode.IsPunct(r) && !unicode.IsSymbol(r):
			garbage++
		}
	}
	total := float64(len([]rune(text)))
	alnumRatio := float64(alnum) / total
	garbageScore := 1 - float64(garbage)/total

	tokens := strings.Fields(text)
	var tokenScore float64
	if len(tokens) > 0 {
		var sum int
		for _, t := range tokens {
			sum += len(t)
		}
		avg := float64(sum) / float64(len(tokens))
		// readable text averages 3-10 chars per token
		if avg >= 3 && avg <= 10 {
			tokenScore = 1
		} else if avg > 1 {
			tokenScore = 0.5
		}
	}

	lower := strings.ToLower(text)
	var hits int
	for _, kw := range invoiceKeywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	var keywordScore float64
	if hits >= 2 {
		keywordScore = float64(hits) / 6
		if keywordScore > 1 {
			keywordScore = 1
		}
	}

	var shapeScore float64
	if amountShaped.MatchString(lower) {
		shapeScore += 0.4
	}
	if dateShaped.MatchString(text) {
		shapeScore += 0.3
	}
	if taxIDShaped.MatchString(text) {
		shapeScore += 0.3
	}

	score := 0.15*lengthScore + 0.2*alnumRatio + 0.15*garbageScore +
		0.15*tokenScore + 0.2*keywordScore + 0.15*shapeScore
	if score > 1 {
		score = 1
	}
	return score
}
