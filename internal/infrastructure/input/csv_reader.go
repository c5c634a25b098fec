package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// DefaultColumn is the header of the identifier column
const DefaultColumn = "asin"

// ErrMissingColumn is returned when the header has no identifier column
var ErrMissingColumn = errors.New("identifier column not found")

// CSVReader loads product identifiers from a delimited file with a header row
type CSVReader struct {
	filePath string
	column   string
}

// NewCSVReader creates a reader for the given file and identifier column
func NewCSVReader(filePath, column string) *CSVReader {
	if strings.TrimSpace(column) == "" {
		column = DefaultColumn
	}
	return &CSVReader{filePath: filePath, column: column}
}

// ReadIdentifiers opens the file and returns its identifiers in file order
func (r *CSVReader) ReadIdentifiers() ([]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	ids, err := ParseIdentifiers(file, r.column)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.filePath, err)
	}

	log.Printf("[INPUT] Loaded %d identifiers from %s", len(ids), r.filePath)
	return ids, nil
}

// ParseIdentifiers reads the named column from CSV data. Values are trimmed
// and blank cells skipped; duplicates are kept for the orchestrator to drop.
func ParseIdentifiers(src io.Reader, column string) ([]string, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idx := -1
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		if strings.EqualFold(strings.TrimSpace(name), column) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, column)
	}

	var ids []string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if idx >= len(row) {
			continue
		}
		if id := strings.TrimSpace(row[idx]); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
