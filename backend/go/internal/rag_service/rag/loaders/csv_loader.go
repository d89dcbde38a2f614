package loaders

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"Aethena/backend/go/internal/rag_service/rag/interfaces"
	"Aethena/backend/go/internal/rag_service/rag/schema"
)

// CsvLoader implements the Loader interface for CSV files.
// The first record is the header; every following record becomes one
// fragment rendered as "column: value" lines and tagged with its 1-based row.
type CsvLoader struct{}

// NewCsvLoader creates a new CsvLoader.
func NewCsvLoader() *CsvLoader {
	return &CsvLoader{}
}

// Load reads the CSV file at path.
func (l *CsvLoader) Load(ctx context.Context, path string) ([]schema.Fragment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open csv: %w", schema.ErrLoad, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read csv header: %w", schema.ErrLoad, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var fragments []schema.Fragment
	for row := 1; ; row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read csv row %d: %w", schema.ErrLoad, row, err)
		}
		fragments = append(fragments, schema.Fragment{
			Text:     renderRow(header, record),
			Metadata: map[string]interface{}{schema.MetadataKeyRow: row},
		})
	}
	return fragments, nil
}

func renderRow(header, record []string) string {
	var sb strings.Builder
	for i, value := range record {
		name := fmt.Sprintf("column%d", i+1)
		if i < len(header) && header[i] != "" {
			name = header[i]
		}
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(strings.TrimSpace(value))
	}
	return sanitize(sb.String())
}

// compile-time check to ensure CsvLoader implements the Loader interface
var _ interfaces.Loader = (*CsvLoader)(nil)
