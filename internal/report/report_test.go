package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outlierx/internal/models"
	"outlierx/internal/validator"
	"outlierx/pkg/metadata"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testGenerator() *Generator {
	return NewGenerator(WithClock(func() time.Time { return fixedNow }))
}

func sampleReport() validator.BatchReport {
	return validator.BatchReport{
		TotalRecords:   4,
		ValidRecords:   2,
		InvalidRecords: 2,
		SampleCap:      10,
		ErrorsByField: []validator.FieldCount{
			{Field: "sport", Count: 1},
			{Field: "odds", Count: 3},
		},
		ErrorSamples: []validator.Violation{
			{Row: 1, Field: "odds", Rule: models.RuleMinValue, Value: 0.5, Message: "field 'odds': 0.5 is below minimum 1"},
		},
		Warnings: []validator.Violation{
			{Row: 3, Field: "timestamp", Rule: models.RuleFreshness, Message: "field 'timestamp': data is 30.0 hours old"},
		},
	}
}

func TestRenderTable_AlignsByDisplayWidth(t *testing.T) {
	lines := renderTable([]string{"Team", "Odds"}, [][]string{
		{"日本", "2.5"},
		{"Lakers", "1.91"},
	})

	require.Len(t, lines, 4)
	assert.Equal(t, "| ------ | ---- |", lines[1])

	width := runewidth.StringWidth(lines[0])
	for _, l := range lines {
		assert.Equal(t, width, runewidth.StringWidth(l), l)
	}
}

func TestRenderTable_TruncatesLongCells(t *testing.T) {
	lines := renderTable([]string{"Message"}, [][]string{{strings.Repeat("x", 100)}})

	assert.Contains(t, lines[2], "...")
	assert.LessOrEqual(t, runewidth.StringWidth(lines[2]), maxCellWidth+4)
}

func TestValidation(t *testing.T) {
	out := testGenerator().Validation(sampleReport())

	assert.Contains(t, out, "DATA VALIDATION REPORT")
	assert.Contains(t, out, "Generated: 2024-06-01 12:00:00")
	assert.Contains(t, out, "Validity Rate: 50.00%")
	assert.Contains(t, out, "❌ INVALID")
	assert.Contains(t, out, "ERROR SAMPLES (First 10)")
	assert.Contains(t, out, "WARNINGS")
	assert.Less(t, strings.Index(out, "| odds "), strings.Index(out, "| sport "), "fields sorted by count")
}

func TestValidation_NoErrors(t *testing.T) {
	out := testGenerator().Validation(validator.BatchReport{TotalRecords: 3, ValidRecords: 3})

	assert.Contains(t, out, "No errors found")
	assert.NotContains(t, out, "ERROR SAMPLES")
	assert.NotContains(t, out, "WARNINGS")
}

func TestSummary(t *testing.T) {
	out := testGenerator().Summary(Summary{
		Records:  12344,
		Columns:  []string{"event_id", "odds"},
		Duration: 2 * time.Second,
		Stats:    []Stat{{Key: "duplicates_dropped", Value: "3"}},
	})

	assert.Contains(t, out, "Total Records Processed: 12,344")
	assert.Contains(t, out, "Columns: event_id, odds")
	assert.Contains(t, out, "Records Per Second: 6172")
	assert.Contains(t, out, "duplicates_dropped")

	none := testGenerator().Summary(Summary{})
	assert.Contains(t, none, "Records Per Second: N/A")
	assert.NotContains(t, none, "ADDITIONAL STATISTICS")
}

func TestQuality(t *testing.T) {
	table := models.Table{
		{"event_id": "e1", "odds": 2.0, "line": nil},
		{"event_id": "e2", "odds": json.Number("4")},
		{"event_id": "e2", "odds": 3.0, "line": "pk"},
	}

	q := Quality(table, []string{"event_id", "odds", "line"})
	require.Len(t, q, 3)

	assert.Equal(t, 2, q[0].Distinct)
	assert.Nil(t, q[0].Min)

	require.NotNil(t, q[1].Mean)
	assert.InDelta(t, 2.0, *q[1].Min, 1e-9)
	assert.InDelta(t, 4.0, *q[1].Max, 1e-9)
	assert.InDelta(t, 3.0, *q[1].Mean, 1e-9)
	assert.InDelta(t, 100.0, q[1].Completeness(), 1e-9)

	assert.Equal(t, 2, q[2].Null)
	assert.InDelta(t, 100.0/3, q[2].Completeness(), 1e-9)
}

func TestDataQuality(t *testing.T) {
	table := models.Table{{"event_id": "e1", "odds": 2.0}}

	out := testGenerator().DataQuality(table, nil)

	assert.Contains(t, out, "DATA QUALITY REPORT")
	assert.Contains(t, out, "Total Columns: 2")
	assert.Contains(t, out, "100.00% (1 unique)")
}

func TestThousands(t *testing.T) {
	tests := map[int]string{0: "0", 999: "999", 1000: "1,000", 1234567: "1,234,567", -4200: "-4,200"}

	for n, want := range tests {
		assert.Equal(t, want, thousands(n))
	}
}

func TestWriteTable(t *testing.T) {
	dir := t.TempDir()
	table := models.Table{
		{"event_id": "e1", "odds": 2.5, "event_date": fixedNow},
		{"event_id": "e2", "odds": nil, "_validation_errors": []string{"a", "b"}},
	}

	jsonPath := filepath.Join(dir, "out", "processed.json")
	require.NoError(t, WriteTable(jsonPath, FormatJSON, table, nil, false))

	var decoded []map[string]any
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "2024-06-01T12:00:00Z", decoded[0]["event_date"])

	csvPath := filepath.Join(dir, "processed.csv")
	require.NoError(t, WriteTable(csvPath, FormatCSV, table, []string{"event_id", "odds", "_validation_errors"}, false))

	data, err = os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "event_id,odds,_validation_errors\ne1,2.5,\ne2,,a; b\n", string(data))

	require.ErrorIs(t, WriteTable(filepath.Join(dir, "x.parquet"), "parquet", table, nil, false), ErrUnsupportedFormat)
}

func TestWriteBatchReport(t *testing.T) {
	dir := t.TempDir()
	gen := testGenerator()
	r := sampleReport()

	txt := filepath.Join(dir, "validation.txt")
	require.NoError(t, WriteBatchReport(txt, FormatTXT, r, gen, metadata.Metadata{RunID: "run-9", Valid: r.IsValid()}))

	meta, err := VerifyFile(txt)
	require.NoError(t, err)
	assert.Equal(t, "run-9", meta.RunID)
	assert.False(t, meta.Valid)

	js := filepath.Join(dir, "validation.json")
	require.NoError(t, WriteBatchReport(js, FormatJSON, r, gen, metadata.Metadata{}))

	var decoded map[string]any
	data, err := os.ReadFile(js)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.InDelta(t, 4.0, decoded["total_errors"], 1e-9)
	assert.InDelta(t, 50.0, decoded["validity_percentage"], 1e-9)
	assert.Equal(t, false, decoded["is_valid"])

	csvPath := filepath.Join(dir, "validation.csv")
	require.NoError(t, WriteBatchReport(csvPath, FormatCSV, r, gen, metadata.Metadata{}))

	data, err = os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "field,errors\nodds,3\nsport,1\n", string(data))

	require.ErrorIs(t, WriteBatchReport(csvPath, "xml", r, gen, metadata.Metadata{}), ErrUnsupportedFormat)
}
