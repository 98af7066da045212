package validator

import (
	"fmt"

	"outlierx/internal/models"
)

// FieldResult is the outcome of evaluating one rule against one field value.
// Warnings never affect Valid.
type FieldResult struct {
	Value    any
	Field    string
	Rule     models.RuleKind
	Errors   []string
	Warnings []string
	Valid    bool
}

func newFieldResult(field string, rule models.RuleKind, value any) FieldResult {
	return FieldResult{Field: field, Rule: rule, Value: value, Valid: true}
}

func (r *FieldResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *FieldResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// RecordResult aggregates every rule evaluation for one record, in field
// order then rule-declaration order.
type RecordResult struct {
	Fields []FieldResult
	Index  int
	Valid  bool
}

// Violations flattens the failed evaluations into report items.
func (r RecordResult) Violations() []Violation {
	var out []Violation

	for _, f := range r.Fields {
		for _, msg := range f.Errors {
			out = append(out, Violation{Row: r.Index, Field: f.Field, Rule: f.Rule, Message: msg, Value: f.Value})
		}
	}

	return out
}

// WarningItems flattens the warnings into report items.
func (r RecordResult) WarningItems() []Violation {
	var out []Violation

	for _, f := range r.Fields {
		for _, msg := range f.Warnings {
			out = append(out, Violation{Row: r.Index, Field: f.Field, Rule: f.Rule, Message: msg, Value: f.Value})
		}
	}

	return out
}

// Messages returns the error messages in evaluation order.
func (r RecordResult) Messages() []string {
	var out []string
	for _, f := range r.Fields {
		out = append(out, f.Errors...)
	}

	return out
}

// Violation is a failed rule (or a warning) located by row and field. It is
// data, never an error value.
type Violation struct {
	Value   any             `json:"value"`
	Field   string          `json:"field"`
	Rule    models.RuleKind `json:"rule"`
	Message string          `json:"message"`
	Row     int             `json:"row"`
}

// CustomRuleFailure records a custom predicate that panicked. It is reported
// as a field error and never propagated.
type CustomRuleFailure struct {
	Cause any
	Field string
	Name  string
}

func (e *CustomRuleFailure) Error() string {
	name := e.Name
	if name == "" {
		name = "predicate"
	}

	return fmt.Sprintf("custom rule %s failed on field '%s': %v", name, e.Field, e.Cause)
}
