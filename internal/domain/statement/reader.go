package statement

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"
)

// headerScanLimit bounds how many leading rows are searched for the header.
const headerScanLimit = 20

var (
	ErrEmptyFile      = errors.New("statement file is empty")
	ErrNoHeader       = errors.New("could not locate statement header row")
	ErrUnsupported    = errors.New("unsupported statement file format")
	ErrUnreadableFile = errors.New("statement file could not be read")
)

// Row is one data row keyed by normalized physical column name.
type Row struct {
	Num    int
	Fields map[string]string
}

// Get resolves a logical field against the profile's primary column name and
// the extractor's ordered alias fallbacks. The first present, non-empty
// column wins.
func (r Row) Get(field Field, p *FormatProfile, aliases map[Field][]string) string {
	candidates := make([]string, 0, 4)
	if name, ok := p.Columns[field]; ok {
		candidates = append(candidates, name)
	}
	candidates = append(candidates, aliases[field]...)

	for _, name := range candidates {
		if v, ok := r.Fields[normKey(name)]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// IsBlank reports whether every cell is empty.
func (r Row) IsBlank() bool {
	for _, v := range r.Fields {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// matchesAny reports whether any cell contains one of the patterns
// (case-insensitive substring).
func (r Row) matchesAny(patterns []string) bool {
	for _, v := range r.Fields {
		lower := strings.ToLower(v)
		for _, pat := range patterns {
			if pat != "" && strings.Contains(lower, strings.ToLower(pat)) {
				return true
			}
		}
	}
	return false
}

func init() {
	// Bank exports are frequently hand-assembled: tolerate stray quotes and
	// ragged rows the way the importer always has.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.LazyQuotes = true
		r.TrimLeadingSpace = true
		r.FieldsPerRecord = -1
		return r
	})
}

// readRows decodes the raw file into header-keyed rows, locating the header
// row among leading metadata lines first.
func readRows(data []byte, p *FormatProfile) ([]Row, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	switch p.FileFormat {
	case FormatCSV:
		return readCSVRows(data, p)
	case FormatXLSX:
		return readXLSXRows(data, p)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, p.FileFormat)
	}
}

func readCSVRows(data []byte, p *FormatProfile) ([]Row, error) {
	data = stripBOM(data)
	lines := strings.Split(string(data), "\n")

	headerIdx, ok := locateHeaderLine(lines, p.HeaderTokens)
	if !ok {
		return nil, ErrNoHeader
	}

	body := strings.Join(lines[headerIdx:], "\n")
	maps, err := gocsv.CSVToMaps(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}

	rows := make([]Row, 0, len(maps))
	for i, m := range maps {
		rows = append(rows, Row{Num: headerIdx + i + 2, Fields: normalizeKeys(m)})
	}
	return rows, nil
}

func readXLSXRows(data []byte, p *FormatProfile) ([]Row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	defer f.Close()

	sheet := pickSheet(f)
	if sheet == "" {
		return nil, ErrUnreadableFile
	}

	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}

	headerIdx, ok := locateHeaderCells(raw, p.HeaderTokens)
	if !ok {
		return nil, ErrNoHeader
	}

	header := raw[headerIdx]
	rows := make([]Row, 0, len(raw)-headerIdx-1)
	for i := headerIdx + 1; i < len(raw); i++ {
		fields := make(map[string]string, len(header))
		for j, name := range header {
			if name == "" {
				continue
			}
			value := ""
			if j < len(raw[i]) {
				value = raw[i][j]
			}
			fields[normKey(name)] = value
		}
		rows = append(rows, Row{Num: i + 1, Fields: fields})
	}
	return rows, nil
}

// pickSheet prefers sheets with statement-like names, falling back to the
// first sheet.
func pickSheet(f *excelize.File) string {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ""
	}
	for _, preferred := range []string{"transactions", "statement", "account statement", "sheet1"} {
		for _, s := range sheets {
			if strings.EqualFold(s, preferred) {
				return s
			}
		}
	}
	return sheets[0]
}

// locateHeaderLine finds the header among the first headerScanLimit lines by
// case-insensitive substring match against the profile's indicator tokens.
func locateHeaderLine(lines []string, tokens []string) (int, bool) {
	for i, line := range lines {
		if i >= headerScanLimit {
			break
		}
		if headerTokenHits(strings.ToLower(line), tokens) >= requiredHits(tokens) {
			return i, true
		}
	}
	return 0, false
}

func locateHeaderCells(rows [][]string, tokens []string) (int, bool) {
	for i, cells := range rows {
		if i >= headerScanLimit {
			break
		}
		joined := strings.ToLower(strings.Join(cells, " | "))
		if headerTokenHits(joined, tokens) >= requiredHits(tokens) {
			return i, true
		}
	}
	return 0, false
}

func headerTokenHits(lower string, tokens []string) int {
	hits := 0
	for _, tok := range tokens {
		if tok != "" && strings.Contains(lower, strings.ToLower(tok)) {
			hits++
		}
	}
	return hits
}

// requiredHits demands two token matches when the profile configures two or
// more, so a metadata line mentioning a single keyword cannot win.
func requiredHits(tokens []string) int {
	if len(tokens) >= 2 {
		return 2
	}
	return 1
}

func normalizeKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[normKey(k)] = v
	}
	return out
}

func normKey(s string) string {
	return collapseSpaces(strings.ToLower(strings.TrimSpace(s)))
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}

func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}
