// Package normalizer coerces raw betting records into the canonical typed
// schema, one declarative directive per field.
package normalizer

import (
	"errors"
	"fmt"

	"outlierx/internal/models"
)

// Processor normalizes records and tables against a fixed schema.
type Processor struct {
	schema      *models.Schema
	transformer *Transformer
	directives  map[string][]models.NormalizationDirective
}

// NewProcessor checks the schema and indexes its directives by field. An
// unknown transformation kind yields *UnsupportedTransformationError.
func NewProcessor(schema *models.Schema) (*Processor, error) {
	if schema == nil {
		return nil, models.ErrEmptySchema
	}

	for _, d := range schema.Normalization {
		if !d.Kind.Supported() {
			return nil, &UnsupportedTransformationError{Field: d.Field, Kind: d.Kind}
		}
	}

	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	directives := make(map[string][]models.NormalizationDirective, len(schema.Fields))
	for _, f := range schema.Fields {
		if ds := schema.DirectivesFor(f.Name); len(ds) > 0 {
			directives[f.Name] = ds
		}
	}

	return &Processor{
		schema:      schema,
		transformer: NewTransformer(),
		directives:  directives,
	}, nil
}

// NormalizeRow returns a new record with every applicable directive applied in
// schema field order. A failing field keeps its pre-normalization value (or its
// declared default when the raw value was null) and the failure is returned;
// the remaining fields are still normalized.
func (p *Processor) NormalizeRow(rec models.Record) (models.Record, []*NormalizationError) {
	out := rec.Clone()

	var failures []*NormalizationError

	for _, f := range p.schema.Fields {
		value, present := rec[f.Name]
		if value == nil && f.Default != nil {
			value = f.Default
			present = true
		}

		current := value

		for _, d := range p.directives[f.Name] {
			next, err := p.transformer.Transform(current, f.Name, d)
			if err != nil {
				var nerr *NormalizationError
				if !errors.As(err, &nerr) {
					nerr = fieldError(f.Name, d.Kind, current, err)
				}

				failures = append(failures, nerr)
				current = value

				break
			}

			current = next
		}

		if present || current != nil {
			out[f.Name] = current
		}
	}

	return out, failures
}

// NormalizeTable normalizes every row and concatenates the per-row failures
// into one ledger. It always returns the full table.
func (p *Processor) NormalizeTable(table models.Table) (models.Table, Ledger) {
	out := make(models.Table, len(table))

	var ledger Ledger

	for i, rec := range table {
		row, failures := p.NormalizeRow(rec)
		out[i] = row

		for _, f := range failures {
			f.Row = i
			ledger = append(ledger, f)
		}
	}

	return out, ledger
}

// Schema returns the schema the processor was built with.
func (p *Processor) Schema() *models.Schema {
	return p.schema
}
