package extraction

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Dmoment/StmtIQ-sub005/pkg/config"
)

// PageBreak separates per-page OCR output in the concatenated text.
const PageBreak = "\n--- PAGE BREAK ---\n"

// OCREngine rasterizes document pages with pdftoppm and reads them with
// tesseract. Both binaries are optional: when either is missing the engine
// reports Available=false and the pipeline continues without OCR text.
type OCREngine struct {
	cfg    config.OCRConfig
	logger *slog.Logger
}

func NewOCREngine(cfg config.OCRConfig, logger *slog.Logger) *OCREngine {
	return &OCREngine{cfg: cfg, logger: logger}
}

// Recognize OCRs up to the configured page limit and joins the page texts
// with an explicit page-break marker.
func (e *OCREngine) Recognize(ctx context.Context, data []byte) OCRResult {
	pdftoppm, err := exec.LookPath(e.cfg.PdftoppmBinary)
	if err != nil {
		e.logger.Warn("pdftoppm not installed, skipping OCR")
		return OCRResult{Available: false}
	}
	tesseract, err := exec.LookPath(e.cfg.TesseractBinary)
	if err != nil {
		e.logger.Warn("tesseract not installed, skipping OCR")
		return OCRResult{Available: false}
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	dir, err := os.MkdirTemp("", "ocr-pages-")
	if err != nil {
		e.logger.Error("creating OCR scratch dir", "error", err)
		return OCRResult{Available: true}
	}
	defer os.RemoveAll(dir)

	images, err := e.rasterize(ctx, pdftoppm, dir, data)
	if err != nil {
		e.logger.Warn("page rasterization failed", "error", err)
		return OCRResult{Available: true}
	}

	pages := make([]string, 0, len(images))
	for _, img := range images {
		text, err := e.recognizePage(ctx, tesseract, img, e.cfg.Languages)
		if err != nil && e.cfg.RetryLanguage != "" && e.cfg.RetryLanguage != e.cfg.Languages {
			e.logger.Debug("retrying OCR with fallback language",
				"page", filepath.Base(img), "language", e.cfg.RetryLanguage)
			text, err = e.recognizePage(ctx, tesseract, img, e.cfg.RetryLanguage)
		}
		if err != nil {
			e.logger.Warn("OCR failed for page", "page", filepath.Base(img), "error", err)
			continue
		}
		pages = append(pages, cleanText(text))
	}

	return OCRResult{Text: strings.Join(pages, PageBreak), Available: true}
}

func (e *OCREngine) rasterize(ctx context.Context, bin, dir string, data []byte) ([]string, error) {
	maxPages := e.cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 2
	}

	cmd := exec.CommandContext(ctx, bin,
		"-png", "-r", "300",
		"-f", "1", "-l", fmt.Sprint(maxPages),
		"-", filepath.Join(dir, "page"))
	cmd.Stdin = bytes.NewReader(data)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	images, err := filepath.Glob(filepath.Join(dir, "page*.png"))
	if err != nil {
		return nil, err
	}
	sort.Strings(images)
	return images, nil
}

func (e *OCREngine) recognizePage(ctx context.Context, bin, image, languages string) (string, error) {
	cmd := exec.CommandContext(ctx, bin, image, "stdout", "-l", languages, "--psm", "6")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
