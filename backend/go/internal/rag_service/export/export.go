// Package export renders a tenant's query history as a downloadable file.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"Aethena/backend/go/internal/models"
	"Aethena/backend/go/internal/rag_service/rag/schema"
	"github.com/xuri/excelize/v2"
)

// Format is a supported export format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

const sheetName = "History"

var header = []string{"Date", "Question", "Answer"}

// ParseFormat accepts a format name case-insensitively; empty means csv.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatJSON, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("%w: export format %q", schema.ErrInvalidInput, s)
	}
}

// Filename returns chat-history-YYYY-MM-DD.<ext> for the given day.
func Filename(f Format, now time.Time) string {
	return fmt.Sprintf("chat-history-%s.%s", now.UTC().Format("2006-01-02"), f)
}

// ContentType returns the MIME type of the format.
func ContentType(f Format) string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Write renders records to w in the given format.
func Write(w io.Writer, f Format, records []*models.QueryHistory) error {
	switch f {
	case FormatCSV:
		return writeCSV(w, records)
	case FormatJSON:
		return writeJSON(w, records)
	case FormatXLSX:
		return writeXLSX(w, records)
	default:
		return fmt.Errorf("%w: export format %q", schema.ErrInvalidInput, f)
	}
}

func row(r *models.QueryHistory) []string {
	return []string{r.CreatedAt.UTC().Format(time.RFC3339), r.Question, r.Answer}
}

func writeCSV(w io.Writer, records []*models.QueryHistory) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(row(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, records []*models.QueryHistory) error {
	if records == nil {
		records = []*models.QueryHistory{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func writeXLSX(w io.Writer, records []*models.QueryHistory) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}
	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row(r)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheetName, "A", "A", 22); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "B", "C", 60); err != nil {
		return err
	}
	return f.Write(w)
}
