package validator

import (
	"fmt"
	"slices"
)

// FieldCount is the number of violations recorded against one field.
type FieldCount struct {
	Field string `json:"field"`
	Count int    `json:"count"`
}

// BatchReport summarizes a validated batch. ErrorsByField is in first-seen
// field order. Treat a built report as read-only.
type BatchReport struct {
	ErrorsByField  []FieldCount `json:"errors_by_field"`
	ErrorSamples   []Violation  `json:"error_samples"`
	Warnings       []Violation  `json:"warnings"`
	TotalRecords   int          `json:"total_records"`
	ValidRecords   int          `json:"valid_records"`
	InvalidRecords int          `json:"invalid_records"`
	SampleCap      int          `json:"sample_cap"`
}

// Count returns the violation count for field.
func (r BatchReport) Count(field string) int {
	for _, fc := range r.ErrorsByField {
		if fc.Field == field {
			return fc.Count
		}
	}

	return 0
}

// TotalErrors sums the per-field violation counts.
func (r BatchReport) TotalErrors() int {
	total := 0
	for _, fc := range r.ErrorsByField {
		total += fc.Count
	}

	return total
}

// ValidityPercentage is the share of valid records, 0 for an empty batch.
func (r BatchReport) ValidityPercentage() float64 {
	if r.TotalRecords == 0 {
		return 0
	}

	return 100 * float64(r.ValidRecords) / float64(r.TotalRecords)
}

// IsValid reports whether every record passed.
func (r BatchReport) IsValid() bool {
	return r.InvalidRecords == 0
}

// SortedByCount returns the field counts ordered by descending count, ties in
// first-seen order.
func (r BatchReport) SortedByCount() []FieldCount {
	out := slices.Clone(r.ErrorsByField)
	slices.SortStableFunc(out, func(a, b FieldCount) int {
		return b.Count - a.Count
	})

	return out
}

// String returns a one-line summary.
func (r BatchReport) String() string {
	status := "✅ VALID"
	if !r.IsValid() {
		status = "❌ INVALID"
	}

	return fmt.Sprintf(
		"%s | Total: %d | Valid: %d | Invalid: %d | Errors: %d | Warnings: %d",
		status,
		r.TotalRecords,
		r.ValidRecords,
		r.InvalidRecords,
		r.TotalErrors(),
		len(r.Warnings),
	)
}

// ReportBuilder accumulates record results into a BatchReport. It is not safe
// for concurrent use; shard instead and merge.
type ReportBuilder struct {
	index  map[string]int
	report BatchReport
}

// NewReportBuilder starts an empty report with the given sample cap.
func NewReportBuilder(sampleCap int) *ReportBuilder {
	if sampleCap <= 0 {
		sampleCap = DefaultSampleCap
	}

	return &ReportBuilder{
		index:  make(map[string]int),
		report: BatchReport{SampleCap: sampleCap},
	}
}

// Add folds one record result into the report. Each violation counts once
// against its field; samples stop at the cap while counting continues.
func (b *ReportBuilder) Add(res RecordResult) {
	b.report.TotalRecords++

	if res.Valid {
		b.report.ValidRecords++
	} else {
		b.report.InvalidRecords++
	}

	for _, v := range res.Violations() {
		b.count(v.Field, 1)

		if len(b.report.ErrorSamples) < b.report.SampleCap {
			b.report.ErrorSamples = append(b.report.ErrorSamples, v)
		}
	}

	b.report.Warnings = append(b.report.Warnings, res.WarningItems()...)
}

func (b *ReportBuilder) count(field string, n int) {
	i, ok := b.index[field]
	if !ok {
		i = len(b.report.ErrorsByField)
		b.index[field] = i
		b.report.ErrorsByField = append(b.report.ErrorsByField, FieldCount{Field: field})
	}

	b.report.ErrorsByField[i].Count += n
}

// Build returns the accumulated report. Later Adds do not affect it.
func (b *ReportBuilder) Build() BatchReport {
	r := b.report
	r.ErrorsByField = slices.Clone(r.ErrorsByField)
	r.ErrorSamples = slices.Clone(r.ErrorSamples)
	r.Warnings = slices.Clone(r.Warnings)

	return r
}

// MergeReports combines shard reports in the given order: counts are summed,
// field counts keep first-seen order, samples are concatenated then cut to
// sampleCap, and warnings are concatenated.
func MergeReports(sampleCap int, reports ...BatchReport) BatchReport {
	b := NewReportBuilder(sampleCap)

	for _, r := range reports {
		b.report.TotalRecords += r.TotalRecords
		b.report.ValidRecords += r.ValidRecords
		b.report.InvalidRecords += r.InvalidRecords

		for _, fc := range r.ErrorsByField {
			b.count(fc.Field, fc.Count)
		}

		for _, s := range r.ErrorSamples {
			if len(b.report.ErrorSamples) >= b.report.SampleCap {
				break
			}

			b.report.ErrorSamples = append(b.report.ErrorSamples, s)
		}

		b.report.Warnings = append(b.report.Warnings, r.Warnings...)
	}

	return b.Build()
}
