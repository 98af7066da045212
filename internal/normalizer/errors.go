package normalizer

import (
	"errors"
	"fmt"

	"outlierx/internal/models"
)

// Normalization failure causes.
var (
	ErrNotNumeric       = errors.New("value is not numeric")
	ErrNotTimestamp     = errors.New("value is not a recognizable timestamp")
	ErrNotBoolean       = errors.New("value is not a recognizable boolean")
	ErrNotText          = errors.New("value cannot be rendered as text")
	ErrCurrencyRange    = errors.New("currency amount out of range")
	ErrCurrencyMismatch = errors.New("conflicting currency tags")
	ErrOddsFormat       = errors.New("malformed odds value")
	ErrOddsDomain       = errors.New("odds resolve below 1.0")
)

// NormalizationError reports a field value that could not be coerced. It is
// always field-scoped and never aborts the row.
type NormalizationError struct {
	Value any
	Err   error
	Field string
	Kind  models.TransformKind
	// Row is the table index, or -1 outside a table.
	Row int
}

func (e *NormalizationError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("row %d: cannot normalize field '%s' (%s) value %v: %v", e.Row, e.Field, e.Kind, e.Value, e.Err)
	}

	return fmt.Sprintf("cannot normalize field '%s' (%s) value %v: %v", e.Field, e.Kind, e.Value, e.Err)
}

func (e *NormalizationError) Unwrap() error {
	return e.Err
}

// UnsupportedTransformationError reports a directive with an unknown kind. It
// is a configuration defect and fatal for the run.
type UnsupportedTransformationError struct {
	Field string
	Kind  models.TransformKind
}

func (e *UnsupportedTransformationError) Error() string {
	return fmt.Sprintf("unsupported transformation %q for field '%s'", e.Kind, e.Field)
}

// Ledger is the batch-level list of normalization failures in row order.
type Ledger []*NormalizationError

// CountByField returns failure counts keyed by field.
func (l Ledger) CountByField() map[string]int {
	counts := make(map[string]int)
	for _, e := range l {
		counts[e.Field]++
	}

	return counts
}

// Rows returns the distinct row indexes that had at least one failure.
func (l Ledger) Rows() []int {
	var rows []int

	last := -1

	for _, e := range l {
		if e.Row != last {
			rows = append(rows, e.Row)
			last = e.Row
		}
	}

	return rows
}

func fieldError(field string, kind models.TransformKind, value any, err error) *NormalizationError {
	return &NormalizationError{Row: -1, Field: field, Kind: kind, Value: value, Err: err}
}
