package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"outlierx/internal/models"
	"outlierx/internal/validator"
	"outlierx/pkg/metadata"
)

// Export formats.
const (
	FormatTXT  = "txt"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// batchReportJSON adds the derived figures to the exported report.
type batchReportJSON struct {
	validator.BatchReport
	TotalErrors        int     `json:"total_errors"`
	ValidityPercentage float64 `json:"validity_percentage"`
	IsValid            bool    `json:"is_valid"`
}

// WriteText writes a rendered report to path with a signed metadata block.
func WriteText(path, content string, meta metadata.Metadata) error {
	return writeFile(path, []byte(metadata.Sign(content, meta)))
}

// VerifyFile checks the metadata block of a report written by WriteText.
func VerifyFile(path string) (*metadata.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report %s: %w", path, err)
	}

	return metadata.Verify(string(data))
}

// WriteJSON writes v as JSON.
func WriteJSON(path string, v any, pretty bool) error {
	var (
		data []byte
		err  error
	)

	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}

	return writeFile(path, append(data, '\n'))
}

// WriteBatchReport exports a batch report as txt, json or csv. The csv form
// lists violation counts per field.
func WriteBatchReport(path, format string, r validator.BatchReport, gen *Generator, meta metadata.Metadata) error {
	switch format {
	case FormatTXT:
		return WriteText(path, gen.Validation(r), meta)
	case FormatJSON:
		return WriteJSON(path, batchReportJSON{
			BatchReport:        r,
			TotalErrors:        r.TotalErrors(),
			ValidityPercentage: r.ValidityPercentage(),
			IsValid:            r.IsValid(),
		}, true)
	case FormatCSV:
		rows := make([][]string, 0, len(r.ErrorsByField)+1)

		rows = append(rows, []string{"field", "errors"})
		for _, fc := range r.SortedByCount() {
			rows = append(rows, []string{fc.Field, fmt.Sprint(fc.Count)})
		}

		return writeCSV(path, rows)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// WriteTable exports records as json or csv. Columns defaults to the table's
// columns; csv cells for null values are empty.
func WriteTable(path, format string, table models.Table, columns []string, pretty bool) error {
	switch format {
	case FormatJSON:
		if table == nil {
			table = models.Table{}
		}

		return WriteJSON(path, table, pretty)
	case FormatCSV:
		if len(columns) == 0 {
			columns = table.Columns()
		}

		rows := make([][]string, 0, len(table)+1)
		rows = append(rows, columns)

		for _, rec := range table {
			row := make([]string, len(columns))
			for i, col := range columns {
				row[i] = csvCell(rec[col])
			}

			rows = append(rows, row)
		}

		return writeCSV(path, rows)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func csvCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []string:
		return strings.Join(t, "; ")
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return formatValue(v)
	}
}

func writeCSV(path string, rows [][]string) error {
	var sb strings.Builder

	w := csv.NewWriter(&sb)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to encode csv %s: %w", path, err)
	}

	return writeFile(path, []byte(sb.String()))
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}
