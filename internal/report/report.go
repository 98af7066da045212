// Package report renders validation, summary and data-quality reports and
// exports them along with processed tables.
package report

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"outlierx/internal/models"
	"outlierx/internal/validator"
)

// ErrUnsupportedFormat is returned for an export format other than txt,
// json or csv.
var ErrUnsupportedFormat = errors.New("unsupported export format")

const (
	ruleWidth  = 80
	timeLayout = "2006-01-02 15:04:05"
)

// Stat is one extra key/value line in a summary report.
type Stat struct {
	Key   string
	Value string
}

// Summary holds the inputs of a processing summary report.
type Summary struct {
	Columns  []string
	Stats    []Stat
	Records  int
	Duration time.Duration
}

// RecordsPerSecond is the throughput, 0 when no time was measured.
func (s Summary) RecordsPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}

	return float64(s.Records) / s.Duration.Seconds()
}

// FieldQuality holds the data-quality metrics of one column.
type FieldQuality struct {
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Mean     *float64 `json:"mean,omitempty"`
	Field    string   `json:"field"`
	NonNull  int      `json:"non_null"`
	Null     int      `json:"null"`
	Distinct int      `json:"distinct"`
	Total    int      `json:"total"`
}

// Completeness is the share of non-null values in percent.
func (q FieldQuality) Completeness() float64 {
	if q.Total == 0 {
		return 0
	}

	return 100 * float64(q.NonNull) / float64(q.Total)
}

// Uniqueness is the share of distinct values in percent.
func (q FieldQuality) Uniqueness() float64 {
	if q.Total == 0 {
		return 0
	}

	return 100 * float64(q.Distinct) / float64(q.Total)
}

// Generator renders text reports.
type Generator struct {
	now func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock sets the clock used for the Generated line.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// NewGenerator creates a report generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{now: time.Now}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

func (g *Generator) header(title string) []string {
	return []string{
		strings.Repeat("=", ruleWidth),
		title,
		strings.Repeat("=", ruleWidth),
		"Generated: " + g.now().Format(timeLayout),
		"",
	}
}

func section(title string) []string {
	return []string{title, strings.Repeat("-", ruleWidth)}
}

// Validation renders a batch report: totals, errors by field sorted by count,
// error samples and warnings.
func (g *Generator) Validation(r validator.BatchReport) string {
	lines := g.header("DATA VALIDATION REPORT")

	lines = append(lines, section("VALIDATION SUMMARY")...)
	lines = append(lines,
		"Status: "+r.String(),
		"Total Records: "+thousands(r.TotalRecords),
		"Valid Records: "+thousands(r.ValidRecords),
		"Invalid Records: "+thousands(r.InvalidRecords),
		fmt.Sprintf("Validity Rate: %.2f%%", r.ValidityPercentage()),
		"",
	)

	lines = append(lines, section("ERRORS BY FIELD")...)

	if len(r.ErrorsByField) == 0 {
		lines = append(lines, "  No errors found")
	} else {
		rows := make([][]string, 0, len(r.ErrorsByField))
		for _, fc := range r.SortedByCount() {
			rows = append(rows, []string{fc.Field, thousands(fc.Count)})
		}

		lines = append(lines, renderTable([]string{"Field", "Errors"}, rows)...)
	}

	lines = append(lines, "")

	if len(r.ErrorSamples) > 0 {
		lines = append(lines, section(fmt.Sprintf("ERROR SAMPLES (First %d)", r.SampleCap))...)
		lines = append(lines, violationTable(r.ErrorSamples)...)
		lines = append(lines, "")
	}

	if len(r.Warnings) > 0 {
		lines = append(lines, section("WARNINGS")...)
		lines = append(lines, violationTable(r.Warnings)...)
		lines = append(lines, "")
	}

	lines = append(lines, strings.Repeat("=", ruleWidth))

	return strings.Join(lines, "\n")
}

func violationTable(vs []validator.Violation) []string {
	rows := make([][]string, 0, len(vs))
	for _, v := range vs {
		rows = append(rows, []string{
			strconv.Itoa(v.Row),
			v.Field,
			string(v.Rule),
			formatValue(v.Value),
			v.Message,
		})
	}

	return renderTable([]string{"Row", "Field", "Rule", "Value", "Message"}, rows)
}

// Summary renders record and processing statistics.
func (g *Generator) Summary(s Summary) string {
	lines := g.header("OUTLIERX DATA PROCESSING SUMMARY REPORT")

	lines = append(lines, section("RECORD STATISTICS")...)
	lines = append(lines,
		"Total Records Processed: "+thousands(s.Records),
		"Columns: "+strings.Join(s.Columns, ", "),
		"",
	)

	lines = append(lines, section("PROCESSING STATISTICS")...)
	lines = append(lines, fmt.Sprintf("Processing Duration: %.2f seconds", s.Duration.Seconds()))

	if rps := s.RecordsPerSecond(); rps > 0 {
		lines = append(lines, fmt.Sprintf("Records Per Second: %.0f", rps))
	} else {
		lines = append(lines, "Records Per Second: N/A")
	}

	lines = append(lines, "")

	if len(s.Stats) > 0 {
		lines = append(lines, section("ADDITIONAL STATISTICS")...)

		rows := make([][]string, 0, len(s.Stats))
		for _, st := range s.Stats {
			rows = append(rows, []string{st.Key, st.Value})
		}

		lines = append(lines, renderTable([]string{"Statistic", "Value"}, rows)...)
		lines = append(lines, "")
	}

	lines = append(lines, strings.Repeat("=", ruleWidth))

	return strings.Join(lines, "\n")
}

// DataQuality renders per-column completeness and uniqueness. Columns
// defaults to the table's columns.
func (g *Generator) DataQuality(table models.Table, columns []string) string {
	if len(columns) == 0 {
		columns = table.Columns()
	}

	lines := g.header("DATA QUALITY REPORT")

	lines = append(lines, section("DATASET OVERVIEW")...)
	lines = append(lines,
		"Total Rows: "+thousands(len(table)),
		"Total Columns: "+strconv.Itoa(len(columns)),
		"",
	)

	lines = append(lines, section("FIELD QUALITY METRICS")...)

	rows := make([][]string, 0, len(columns))
	for _, q := range Quality(table, columns) {
		rows = append(rows, []string{
			q.Field,
			fmt.Sprintf("%.2f%%", q.Completeness()),
			thousands(q.NonNull),
			thousands(q.Null),
			optFloat(q.Min),
			optFloat(q.Max),
			optFloat(q.Mean),
			fmt.Sprintf("%.2f%% (%s unique)", q.Uniqueness(), thousands(q.Distinct)),
		})
	}

	lines = append(lines, renderTable(
		[]string{"Field", "Completeness", "Non-Null", "Null", "Min", "Max", "Mean", "Uniqueness"},
		rows,
	)...)

	lines = append(lines, "", strings.Repeat("=", ruleWidth))

	return strings.Join(lines, "\n")
}

// Quality computes per-column metrics. Min, max and mean are set only when
// every non-null value in the column is numeric.
func Quality(table models.Table, columns []string) []FieldQuality {
	out := make([]FieldQuality, 0, len(columns))

	for _, col := range columns {
		q := FieldQuality{Field: col, Total: len(table)}
		distinct := make(map[string]struct{})
		numeric := true

		var sum, lo, hi float64

		for _, rec := range table {
			v, ok := rec[col]
			if !ok || v == nil {
				q.Null++

				continue
			}

			q.NonNull++
			distinct[formatValue(v)] = struct{}{}

			f, isNum := numberOf(v)
			if !isNum {
				numeric = false

				continue
			}

			if q.NonNull == 1 || f < lo {
				lo = f
			}

			if q.NonNull == 1 || f > hi {
				hi = f
			}

			sum += f
		}

		q.Distinct = len(distinct)

		if numeric && q.NonNull > 0 {
			mean := sum / float64(q.NonNull)
			q.Min, q.Max, q.Mean = &lo, &hi, &mean
		}

		out = append(out, q)
	}

	return out
}

func numberOf(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case models.DecimalOdds:
		return float64(n), true
	case interface{ Float64() (float64, error) }:
		f, err := n.Float64()

		return f, err == nil
	default:
		return 0, false
	}
}

func optFloat(f *float64) string {
	if f == nil {
		return "-"
	}

	return strconv.FormatFloat(*f, 'f', 2, 64)
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case string:
		return t
	default:
		return fmt.Sprint(v)
	}
}

// thousands formats n with comma separators.
func thousands(n int) string {
	s := strconv.Itoa(n)

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder

	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}

		b.WriteRune(r)
	}

	if neg {
		return "-" + b.String()
	}

	return b.String()
}
