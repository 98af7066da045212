package models

import (
	"errors"
	"testing"
)

func testSchema(t *testing.T) *Schema {
	t.Helper()

	return &Schema{
		Fields: []FieldSchema{
			{Name: "event_id", Type: TypeString},
			{Name: "odds", Type: TypeFloat},
			{Name: "line", Type: TypeFloat, Nullable: true},
		},
		Normalization: []NormalizationDirective{
			{Field: "event_id", Kind: TransformString, Case: CaseLower},
			{Field: "odds", Kind: TransformOdds, OddsFormat: OddsAmerican},
		},
		Validation: []ValidationRule{
			{Field: "event_id", Kind: RuleRequired},
			{Field: "odds", Kind: RuleMinValue, Value: Float(1)},
		},
	}
}

func TestSchema_Validate(t *testing.T) {
	if err := testSchema(t).Validate(); err != nil {
		t.Fatalf("Validate returned unexpected error: %v", err)
	}
}

func TestSchema_Validate_Errors(t *testing.T) {
	tests := []struct {
		mutate  func(s *Schema)
		wantErr error
		name    string
	}{
		{
			name:    "empty schema",
			mutate:  func(s *Schema) { s.Fields = nil },
			wantErr: ErrEmptySchema,
		},
		{
			name:    "duplicate field",
			mutate:  func(s *Schema) { s.Fields = append(s.Fields, FieldSchema{Name: "odds", Type: TypeFloat}) },
			wantErr: ErrDuplicateField,
		},
		{
			name:    "unknown type",
			mutate:  func(s *Schema) { s.Fields[0].Type = "uuid" },
			wantErr: ErrUnknownFieldType,
		},
		{
			name: "directive on unknown field",
			mutate: func(s *Schema) {
				s.Normalization = append(s.Normalization, NormalizationDirective{Field: "stake", Kind: TransformNumeric})
			},
			wantErr: ErrUnknownField,
		},
		{
			name: "unknown transformation",
			mutate: func(s *Schema) {
				s.Normalization[0].Kind = "soundex"
			},
			wantErr: ErrUnknownTransform,
		},
		{
			name: "rule on unknown field",
			mutate: func(s *Schema) {
				s.Validation = append(s.Validation, ValidationRule{Field: "stake", Kind: RuleRequired})
			},
			wantErr: ErrUnknownField,
		},
		{
			name:    "unknown rule kind",
			mutate:  func(s *Schema) { s.Validation[0].Kind = "unique" },
			wantErr: ErrUnknownRuleKind,
		},
		{
			name:    "min_value without value",
			mutate:  func(s *Schema) { s.Validation[1].Value = nil },
			wantErr: ErrMissingParameter,
		},
		{
			name: "bad regex",
			mutate: func(s *Schema) {
				s.Validation = append(s.Validation, ValidationRule{Field: "event_id", Kind: RulePattern, Pattern: "[unclosed"})
			},
			wantErr: ErrInvalidParameter,
		},
		{
			name: "bad odds format",
			mutate: func(s *Schema) {
				s.Normalization[1].OddsFormat = "hongkong"
			},
			wantErr: ErrInvalidParameter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSchema(t)
			tt.mutate(s)

			err := s.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSchema_Lookups(t *testing.T) {
	s := testSchema(t)

	if got := s.FieldNames(); len(got) != 3 || got[0] != "event_id" || got[2] != "line" {
		t.Errorf("FieldNames = %v", got)
	}

	if _, ok := s.Field("line"); !ok {
		t.Error("Field(line) not found")
	}

	if got := s.RulesFor("odds"); len(got) != 1 || got[0].Kind != RuleMinValue {
		t.Errorf("RulesFor(odds) = %v", got)
	}

	if got := s.DirectivesFor("line"); len(got) != 0 {
		t.Errorf("DirectivesFor(line) = %v, want none", got)
	}
}

func TestTable_Columns(t *testing.T) {
	table := Table{
		{"b": 1, "a": 2},
		{"c": 3, "a": 4},
	}

	got := table.Columns()
	want := []string{"a", "b", "c"}

	if len(got) != len(want) {
		t.Fatalf("Columns = %v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Columns[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestTable_Slice(t *testing.T) {
	table := Table{{"i": 0}, {"i": 1}, {"i": 2}}

	if got := table.Slice(1, 10); len(got) != 2 {
		t.Errorf("Slice(1,10) len = %d, want 2", len(got))
	}

	if got := table.Slice(5, 6); len(got) != 0 {
		t.Errorf("Slice(5,6) len = %d, want 0", len(got))
	}
}
