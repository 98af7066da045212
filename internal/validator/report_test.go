package validator

import (
	"strings"
	"testing"
	"time"

	"outlierx/internal/models"
)

func recordResult(index int, violations ...string) RecordResult {
	res := RecordResult{Index: index, Valid: len(violations) == 0}

	for _, field := range violations {
		fr := newFieldResult(field, models.RuleRequired, nil)
		fr.fail("required field '%s' is null or empty", field)
		res.Fields = append(res.Fields, fr)
	}

	return res
}

func TestReportBuilder(t *testing.T) {
	b := NewReportBuilder(2)

	b.Add(recordResult(0))
	b.Add(recordResult(1, "odds", "odds", "sport"))
	b.Add(recordResult(2, "sport"))

	report := b.Build()

	if report.TotalRecords != 3 || report.ValidRecords != 1 || report.InvalidRecords != 2 {
		t.Errorf("counts = %d/%d/%d", report.TotalRecords, report.ValidRecords, report.InvalidRecords)
	}

	if report.Count("odds") != 2 || report.Count("sport") != 2 || report.TotalErrors() != 4 {
		t.Errorf("ErrorsByField = %v", report.ErrorsByField)
	}

	if len(report.ErrorSamples) != 2 {
		t.Errorf("ErrorSamples = %d, want 2", len(report.ErrorSamples))
	}

	b.Add(recordResult(3, "line"))

	if report.TotalRecords != 3 || report.Count("line") != 0 {
		t.Error("built report changed after a later Add")
	}
}

func TestBatchReport_SortedByCount(t *testing.T) {
	r := BatchReport{ErrorsByField: []FieldCount{
		{Field: "sport", Count: 1},
		{Field: "odds", Count: 5},
		{Field: "line", Count: 1},
	}}

	got := r.SortedByCount()

	want := []string{"odds", "sport", "line"}
	for i, fc := range got {
		if fc.Field != want[i] {
			t.Errorf("SortedByCount[%d] = %s, want %s", i, fc.Field, want[i])
		}
	}

	if r.ErrorsByField[0].Field != "sport" {
		t.Error("SortedByCount reordered the report")
	}
}

func TestBatchReport_String(t *testing.T) {
	r := BatchReport{TotalRecords: 4, ValidRecords: 3, InvalidRecords: 1, ErrorsByField: []FieldCount{{Field: "odds", Count: 2}}}

	s := r.String()
	if !strings.Contains(s, "INVALID") || !strings.Contains(s, "Errors: 2") {
		t.Errorf("String() = %q", s)
	}

	if r.ValidityPercentage() != 75 {
		t.Errorf("ValidityPercentage = %v, want 75", r.ValidityPercentage())
	}
}

func TestFreshnessPolicy(t *testing.T) {
	p := NewFreshnessPolicy(map[string]float64{"Basketball": 168, "hockey": 12}, 0)

	if got := p.MaxAge(" BASKETBALL "); got != 168*time.Hour {
		t.Errorf("MaxAge(basketball) = %v", got)
	}

	if got := p.MaxAge("curling"); got != DefaultFallbackAge {
		t.Errorf("MaxAge(curling) = %v, want fallback", got)
	}

	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	errMsg, warnMsg := p.Check("event_date", now.Add(-13*time.Hour), now, "hockey")
	if errMsg == "" || warnMsg != "" {
		t.Errorf("12h sport: err=%q warn=%q", errMsg, warnMsg)
	}

	errMsg, warnMsg = p.Check("event_date", now.Add(time.Hour), now, "basketball")
	if errMsg != "" || warnMsg != "" {
		t.Errorf("future timestamp: err=%q warn=%q", errMsg, warnMsg)
	}
}

func TestDefaultPredicates(t *testing.T) {
	preds := DefaultPredicates()

	tests := []struct {
		value any
		name  string
		want  bool
	}{
		{name: "decimal_odds", value: models.DecimalOdds(1.5), want: true},
		{name: "decimal_odds", value: 0.9, want: false},
		{name: "non_negative", value: 0, want: true},
		{name: "non_negative", value: -1.5, want: false},
		{name: "distinct_teams", value: "Lakers vs Celtics", want: true},
		{name: "distinct_teams", value: "Lakers @ lakers", want: false},
		{name: "distinct_teams", value: "Lakers", want: false},
	}

	for _, tt := range tests {
		if got := preds[tt.name](tt.value); got != tt.want {
			t.Errorf("%s(%v) = %v, want %v", tt.name, tt.value, got, tt.want)
		}
	}

	if names := preds.Names(); len(names) != 3 || names[0] != "decimal_odds" {
		t.Errorf("Names = %v", names)
	}
}
