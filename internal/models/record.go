// Package models defines the canonical record, schema and rule types shared by
// the normalization and validation engines.
package models

import (
	"maps"
	"slices"
)

// Record is one betting-event observation keyed by field name. Values are
// dynamically typed; nil means null or absent.
type Record map[string]any

// Table is an ordered batch of records.
type Table []Record

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	maps.Copy(out, r)

	return out
}

// Get returns the value for field and whether the key is present.
func (r Record) Get(field string) (any, bool) {
	v, ok := r[field]

	return v, ok
}

// Columns returns the union of keys across the table in first-seen order.
func (t Table) Columns() []string {
	seen := make(map[string]bool)

	var cols []string

	for _, rec := range t {
		for _, k := range sortedKeys(rec) {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}

	return cols
}

// Slice returns the rows in [start, end), clamped to the table bounds.
func (t Table) Slice(start, end int) Table {
	if start < 0 {
		start = 0
	}

	if end > len(t) {
		end = len(t)
	}

	if start >= end {
		return Table{}
	}

	return t[start:end]
}

// DecimalOdds is a canonical decimal odds value (>= 1.0). A distinct type lets
// the odds transform recognize values it has already produced.
type DecimalOdds float64

// Float64 returns the odds as a plain float.
func (o DecimalOdds) Float64() float64 {
	return float64(o)
}

func sortedKeys(r Record) []string {
	return slices.Sorted(maps.Keys(r))
}
