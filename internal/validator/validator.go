// Package validator evaluates declarative validation rules against normalized
// records and folds the outcomes into batch reports.
package validator

import (
	"errors"
	"fmt"
	"time"

	"outlierx/internal/models"
)

// Configuration errors.
var (
	ErrUnknownPredicate = errors.New("custom rule references unregistered predicate")
	ErrInvalidSampleCap = errors.New("sample cap must be positive")
)

// DefaultSampleCap bounds the number of error samples kept per report.
const DefaultSampleCap = 10

// DefaultSportField is the record field read by the freshness rule.
const DefaultSportField = "sport"

// Validator applies a schema's rule set. It holds no mutable state after New
// returns and may be shared between goroutines.
type Validator struct {
	schema     *models.Schema
	now        func() time.Time
	predicates Registry
	freshness  FreshnessPolicy
	sportField string
	rules      []compiledRule
	sampleCap  int
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock sets the time source used by freshness rules.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		v.now = now
	}
}

// WithSampleCap sets the maximum number of error samples per report.
func WithSampleCap(n int) Option {
	return func(v *Validator) {
		v.sampleCap = n
	}
}

// WithFreshness sets the sport freshness policy.
func WithFreshness(p FreshnessPolicy) Option {
	return func(v *Validator) {
		v.freshness = p
	}
}

// WithPredicates adds named predicates for custom rules.
func WithPredicates(r Registry) Option {
	return func(v *Validator) {
		for name, p := range r {
			v.predicates[name] = p
		}
	}
}

// WithSportField names the record field holding the sport tag.
func WithSportField(field string) Option {
	return func(v *Validator) {
		if field != "" {
			v.sportField = field
		}
	}
}

// New compiles the schema's rules. Malformed rules, bad patterns and
// unregistered predicates are reported here rather than per record.
func New(schema *models.Schema, opts ...Option) (*Validator, error) {
	if schema == nil {
		return nil, models.ErrEmptySchema
	}

	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	v := &Validator{
		schema:     schema,
		now:        time.Now,
		predicates: DefaultPredicates(),
		freshness:  DefaultFreshnessPolicy(),
		sportField: DefaultSportField,
		sampleCap:  DefaultSampleCap,
	}

	for _, opt := range opts {
		opt(v)
	}

	if v.sampleCap <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSampleCap, v.sampleCap)
	}

	for _, f := range schema.Fields {
		for _, r := range schema.RulesFor(f.Name) {
			cr, err := v.compile(r, f)
			if err != nil {
				return nil, err
			}

			v.rules = append(v.rules, cr)
		}
	}

	return v, nil
}

func (v *Validator) compile(r models.ValidationRule, f models.FieldSchema) (compiledRule, error) {
	cr := compiledRule{rule: r, field: f}

	switch r.Kind {
	case models.RulePattern:
		re, err := compilePattern(r)
		if err != nil {
			return cr, fmt.Errorf("%w: pattern on %s: %w", models.ErrInvalidParameter, r.Field, err)
		}

		cr.pattern = re
	case models.RuleCustom:
		cr.predicate = v.resolvePredicate(r)
		if cr.predicate == nil {
			return cr, fmt.Errorf("%w: %q on %s", ErrUnknownPredicate, r.Name, r.Field)
		}
	}

	return cr, nil
}

func (v *Validator) resolvePredicate(r models.ValidationRule) models.Predicate {
	if r.Predicate != nil {
		return r.Predicate
	}

	return v.predicates[r.Name]
}

// ValidateField evaluates exactly one rule against value. Field metadata
// (nullability, declared type) comes from the schema; the freshness rule uses
// the fallback policy since no record sport is known. A rule that could not
// have been built into a Validator (undeclared field, unknown kind, missing
// parameter, bad pattern, unregistered predicate) is a configuration error
// and is returned as such, never as a violation.
func (v *Validator) ValidateField(value any, field string, rule models.ValidationRule) (FieldResult, error) {
	fs, ok := v.schema.Field(field)
	if !ok {
		return FieldResult{}, fmt.Errorf("%w: %q", models.ErrUnknownField, field)
	}

	rule.Field = field

	if err := rule.Validate(); err != nil {
		return FieldResult{}, err
	}

	cr, err := v.compile(rule, fs)
	if err != nil {
		return FieldResult{}, err
	}

	return v.evaluate(value, cr, ""), nil
}

// ValidateRow evaluates every rule of every schema field, in field order then
// rule order. Fields missing from rec are evaluated as null.
func (v *Validator) ValidateRow(rec models.Record) RecordResult {
	sport := v.sportOf(rec)

	res := RecordResult{Valid: true, Fields: make([]FieldResult, 0, len(v.rules))}

	for _, cr := range v.rules {
		fr := v.evaluate(rec[cr.rule.Field], cr, sport)
		if !fr.Valid {
			res.Valid = false
		}

		res.Fields = append(res.Fields, fr)
	}

	return res
}

func (v *Validator) sportOf(rec models.Record) string {
	if s, ok := rec[v.sportField].(string); ok {
		return s
	}

	return ""
}

// ValidateTable evaluates every row and returns the batch report.
func (v *Validator) ValidateTable(table models.Table) BatchReport {
	return v.ValidateShard(table, 0)
}

// ValidateShard validates a row range whose first row sits at offset in the
// full table, so sample row indexes stay global when shard reports are merged.
func (v *Validator) ValidateShard(table models.Table, offset int) BatchReport {
	b := NewReportBuilder(v.sampleCap)

	for i, rec := range table {
		res := v.ValidateRow(rec)
		res.Index = offset + i
		b.Add(res)
	}

	return b.Build()
}

// SampleCap returns the configured error sample cap.
func (v *Validator) SampleCap() int {
	return v.sampleCap
}

// Schema returns the schema the validator was built with.
func (v *Validator) Schema() *models.Schema {
	return v.schema
}
