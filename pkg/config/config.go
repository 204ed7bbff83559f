// Package config reads pipeline configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"time"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"
)

// Config holds all tunables for the parsing, extraction and matching core.
type Config struct {
	Extraction ExtractionConfig
	OCR        OCRConfig
	LLM        LLMConfig
	Matching   MatchingConfig
	Database   DatabaseConfig
}

// ExtractionConfig controls the text extraction and validation stage.
type ExtractionConfig struct {
	MaxFileSizeBytes int64
	MinTextLength    int
	QualityThreshold float64
	PdftotextBinary  string
}

// OCRConfig controls the OCR fallback stage.
type OCRConfig struct {
	TesseractBinary string
	PdftoppmBinary  string
	Languages       string
	RetryLanguage   string
	MaxPages        int
	Timeout         time.Duration
}

// LLMConfig controls the last-resort structured extraction stage.
type LLMConfig struct {
	Endpoint           string
	APIKey             string
	Model              string
	Timeout            time.Duration
	MaxDocumentChars   int
	AmbiguityThreshold float64
	VendorThreshold    float64
}

// MatchingConfig controls candidate retrieval and decision thresholds.
type MatchingConfig struct {
	AutoMatchThreshold  float64
	SuggestThreshold    float64
	AmountWindowPercent float64
	MinAmountTolerance  float64
	DateWindowDays      int
	FallbackWindowDays  int
	MaxCandidates       int
	MaxSuggestions      int
}

// DatabaseConfig points at the transaction store used for link commits.
type DatabaseConfig struct {
	DSN string
}

// Load reads configuration from environment variables with defaults that
// match the documented pipeline behavior.
func Load() *Config {
	return &Config{
		Extraction: ExtractionConfig{
			MaxFileSizeBytes: getEnvAsInt64("EXTRACT_MAX_FILE_BYTES", 20<<20),
			MinTextLength:    getEnvAsInt("EXTRACT_MIN_TEXT_LENGTH", 200),
			QualityThreshold: getEnvAsFloat("EXTRACT_QUALITY_THRESHOLD", 0.4),
			PdftotextBinary:  getEnv("PDFTOTEXT_BINARY", "pdftotext"),
		},
		OCR: OCRConfig{
			TesseractBinary: getEnv("TESSERACT_BINARY", "tesseract"),
			PdftoppmBinary:  getEnv("PDFTOPPM_BINARY", "pdftoppm"),
			Languages:       getEnv("OCR_LANGUAGES", "eng+hin"),
			RetryLanguage:   getEnv("OCR_RETRY_LANGUAGE", "eng"),
			MaxPages:        getEnvAsInt("OCR_MAX_PAGES", 2),
			Timeout:         getEnvAsDuration("OCR_TIMEOUT", 60*time.Second),
		},
		LLM: LLMConfig{
			Endpoint:           getEnv("LLM_ENDPOINT", "https://api.openai.com/v1/chat/completions"),
			APIKey:             getEnv("LLM_API_KEY", ""),
			Model:              getEnv("LLM_MODEL", "gpt-4o-mini"),
			Timeout:            getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
			MaxDocumentChars:   getEnvAsInt("LLM_MAX_DOCUMENT_CHARS", 6000),
			AmbiguityThreshold: getEnvAsFloat("LLM_AMBIGUITY_THRESHOLD", 0.5),
			VendorThreshold:    getEnvAsFloat("LLM_VENDOR_THRESHOLD", 0.75),
		},
		Matching: MatchingConfig{
			AutoMatchThreshold:  getEnvAsFloat("MATCH_AUTO_THRESHOLD", 70),
			SuggestThreshold:    getEnvAsFloat("MATCH_SUGGEST_THRESHOLD", 40),
			AmountWindowPercent: getEnvAsFloat("MATCH_AMOUNT_WINDOW_PERCENT", 5),
			MinAmountTolerance:  getEnvAsFloat("MATCH_MIN_AMOUNT_TOLERANCE", 10),
			DateWindowDays:      getEnvAsInt("MATCH_DATE_WINDOW_DAYS", 7),
			FallbackWindowDays:  getEnvAsInt("MATCH_FALLBACK_WINDOW_DAYS", 30),
			MaxCandidates:       getEnvAsInt("MATCH_MAX_CANDIDATES", 25),
			MaxSuggestions:      getEnvAsInt("MATCH_MAX_SUGGESTIONS", 3),
		},
		Database: DatabaseConfig{
			DSN: getEnv("DATABASE_DSN", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}
