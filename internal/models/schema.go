package models

import (
	"errors"
	"fmt"
)

// Schema errors.
var (
	ErrEmptySchema       = errors.New("schema has no fields")
	ErrMissingFieldName  = errors.New("field name is required")
	ErrDuplicateField    = errors.New("duplicate field")
	ErrUnknownFieldType  = errors.New("unknown field type")
	ErrUnknownField      = errors.New("field not declared in schema")
	ErrMissingParameter  = errors.New("missing rule parameter")
	ErrInvalidParameter  = errors.New("invalid rule parameter")
	ErrUnknownRuleKind   = errors.New("unknown validation rule kind")
	ErrUnknownTransform  = errors.New("unknown transformation kind")
	ErrDefaultNotAllowed = errors.New("default value given for object field")
)

// FieldType is the declared runtime type of a field.
type FieldType string

// Supported field types.
const (
	TypeString    FieldType = "string"
	TypeInteger   FieldType = "integer"
	TypeFloat     FieldType = "float"
	TypeBoolean   FieldType = "boolean"
	TypeTimestamp FieldType = "timestamp"
	TypeEnum      FieldType = "enum"
	TypeObject    FieldType = "object"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case TypeString, TypeInteger, TypeFloat, TypeBoolean, TypeTimestamp, TypeEnum, TypeObject:
		return true
	}

	return false
}

// FieldSchema describes one canonical field.
type FieldSchema struct {
	Default  any       `yaml:"default,omitempty" json:"default,omitempty"`
	Name     string    `yaml:"name" json:"name"`
	Type     FieldType `yaml:"type" json:"type"`
	Nullable bool      `yaml:"nullable" json:"nullable"`
}

// Schema is the ordered field list plus the directive and rule sets bound to
// those fields. It is read-only once loaded.
type Schema struct {
	Fields        []FieldSchema            `yaml:"fields" json:"fields"`
	Normalization []NormalizationDirective `yaml:"normalization" json:"normalization"`
	Validation    []ValidationRule         `yaml:"validation" json:"validation"`
}

// Field returns the schema entry for name.
func (s *Schema) Field(name string) (FieldSchema, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}

	return FieldSchema{}, false
}

// FieldNames returns field names in declared order.
func (s *Schema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}

	return names
}

// DirectivesFor returns the directives bound to field in declaration order.
func (s *Schema) DirectivesFor(field string) []NormalizationDirective {
	var out []NormalizationDirective

	for _, d := range s.Normalization {
		if d.Field == field {
			out = append(out, d)
		}
	}

	return out
}

// RulesFor returns the validation rules bound to field in declaration order.
func (s *Schema) RulesFor(field string) []ValidationRule {
	var out []ValidationRule

	for _, r := range s.Validation {
		if r.Field == field {
			out = append(out, r)
		}
	}

	return out
}

// Validate checks the schema shape, every directive and every rule.
func (s *Schema) Validate() error {
	if len(s.Fields) == 0 {
		return ErrEmptySchema
	}

	seen := make(map[string]bool, len(s.Fields))

	for i, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: fields[%d]", ErrMissingFieldName, i)
		}

		if seen[f.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateField, f.Name)
		}

		seen[f.Name] = true

		if !f.Type.Valid() {
			return fmt.Errorf("%w: %q for field %s", ErrUnknownFieldType, f.Type, f.Name)
		}

		if f.Type == TypeObject && f.Default != nil {
			return fmt.Errorf("%w: %s", ErrDefaultNotAllowed, f.Name)
		}
	}

	for i, d := range s.Normalization {
		if !seen[d.Field] {
			return fmt.Errorf("normalization[%d]: %w: %q", i, ErrUnknownField, d.Field)
		}

		if err := d.Validate(); err != nil {
			return fmt.Errorf("normalization[%d]: %w", i, err)
		}
	}

	for i, r := range s.Validation {
		if !seen[r.Field] {
			return fmt.Errorf("validation[%d]: %w: %q", i, ErrUnknownField, r.Field)
		}

		if err := r.Validate(); err != nil {
			return fmt.Errorf("validation[%d]: %w", i, err)
		}
	}

	return nil
}
