package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"outlierx/internal/models"
)

// JSONSource reads a JSON file holding one object or an array of objects.
type JSONSource struct {
	name string
	path string
	tag  Tag
}

// NewJSONSource creates a JSON file source.
func NewJSONSource(name, path string, tag Tag) *JSONSource {
	return &JSONSource{name: name, path: path, tag: tag}
}

// Name returns the source name.
func (s *JSONSource) Name() string {
	return s.name
}

// Check verifies the file exists.
func (s *JSONSource) Check(context.Context) error {
	return checkFile(s.path)
}

// Fetch reads and decodes the file.
func (s *JSONSource) Fetch(ctx context.Context) (models.Table, error) {
	f, err := openFile(ctx, s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table, err := decodeRecords(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}

	s.tag.apply(table)

	return table, nil
}

// CSVSource reads a headed CSV file, inferring scalar types per cell.
type CSVSource struct {
	name  string
	path  string
	tag   Tag
	comma rune
}

// NewCSVSource creates a CSV file source.
func NewCSVSource(name, path string, tag Tag) *CSVSource {
	return &CSVSource{name: name, path: path, tag: tag, comma: ','}
}

// Name returns the source name.
func (s *CSVSource) Name() string {
	return s.name
}

// Check verifies the file exists.
func (s *CSVSource) Check(context.Context) error {
	return checkFile(s.path)
}

// Fetch reads every row after the header.
func (s *CSVSource) Fetch(ctx context.Context) (models.Table, error) {
	f, err := openFile(ctx, s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = s.comma
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return models.Table{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%s: failed to read header: %w", s.path, err)
	}

	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var table models.Table

	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%s: line %d: %w", s.path, line, err)
		}

		rec := make(models.Record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = inferCell(row[i])
			} else {
				rec[col] = nil
			}
		}

		table = append(table, rec)
	}

	s.tag.apply(table)

	return table, nil
}

// inferCell maps empty cells to null and numeric or boolean text to typed
// values. Everything else stays a string.
func inferCell(cell string) any {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil && !strings.ContainsAny(s, "xXnN") {
		return f
	}

	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}

	return cell
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, path)
	}

	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrSourceNotFound, path)
	}

	return nil
}

func openFile(ctx context.Context, path string) (*os.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := checkFile(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	return f, nil
}
