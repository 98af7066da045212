package models

import (
	"fmt"
	"regexp"
)

// RuleKind names a validation rule.
type RuleKind string

// Supported validation rules.
const (
	RuleRequired  RuleKind = "required"
	RuleType      RuleKind = "type"
	RuleMinValue  RuleKind = "min_value"
	RuleMaxValue  RuleKind = "max_value"
	RuleMinLength RuleKind = "min_length"
	RuleMaxLength RuleKind = "max_length"
	RulePattern   RuleKind = "pattern"
	RuleEnum      RuleKind = "enum"
	RuleCustom    RuleKind = "custom"
	RuleFreshness RuleKind = "freshness"
)

// Predicate is a caller-supplied check for custom rules.
type Predicate func(value any) bool

// ValidationRule is a declarative predicate bound to one field. Several rules
// may target the same field; all of them are evaluated.
type ValidationRule struct {
	Predicate Predicate `yaml:"-" json:"-"`
	Value     *float64  `yaml:"value,omitempty" json:"value,omitempty"`
	Length    *int      `yaml:"length,omitempty" json:"length,omitempty"`
	Field     string    `yaml:"field" json:"field"`
	Kind      RuleKind  `yaml:"kind" json:"kind"`
	Pattern   string    `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	// Name identifies a registered predicate for custom rules.
	Name      string `yaml:"name,omitempty" json:"name,omitempty"`
	Values    []any  `yaml:"values,omitempty" json:"values,omitempty"`
	FullMatch bool   `yaml:"full_match,omitempty" json:"full_match,omitempty"`
}

// Validate checks that the rule kind is known and carries its parameter.
func (r ValidationRule) Validate() error {
	if r.Field == "" {
		return ErrMissingFieldName
	}

	switch r.Kind {
	case RuleRequired, RuleType, RuleFreshness:
	case RuleMinValue, RuleMaxValue:
		if r.Value == nil {
			return fmt.Errorf("%w: %s on %s needs value", ErrMissingParameter, r.Kind, r.Field)
		}
	case RuleMinLength, RuleMaxLength:
		if r.Length == nil {
			return fmt.Errorf("%w: %s on %s needs length", ErrMissingParameter, r.Kind, r.Field)
		}

		if *r.Length < 0 {
			return fmt.Errorf("%w: negative length on %s", ErrInvalidParameter, r.Field)
		}
	case RulePattern:
		if r.Pattern == "" {
			return fmt.Errorf("%w: pattern on %s needs pattern", ErrMissingParameter, r.Field)
		}

		if _, err := regexp.Compile(r.Pattern); err != nil {
			return fmt.Errorf("%w: pattern on %s: %w", ErrInvalidParameter, r.Field, err)
		}
	case RuleEnum:
		if len(r.Values) == 0 {
			return fmt.Errorf("%w: enum on %s needs values", ErrMissingParameter, r.Field)
		}
	case RuleCustom:
		if r.Predicate == nil && r.Name == "" {
			return fmt.Errorf("%w: custom rule on %s needs a predicate or name", ErrMissingParameter, r.Field)
		}
	default:
		return fmt.Errorf("%w: %q on %s", ErrUnknownRuleKind, r.Kind, r.Field)
	}

	return nil
}

// Float returns a pointer to v, for building rules in code.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v, for building rules and directives in code.
func Int(v int) *int {
	return &v
}
