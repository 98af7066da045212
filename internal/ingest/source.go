// Package ingest loads raw betting records from files and HTTP APIs.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"outlierx/internal/models"
)

// Ingestion errors.
var (
	ErrSourceNotFound        = errors.New("source not found")
	ErrInvalidPayload        = errors.New("payload must contain an object or an array of objects")
	ErrUnexpectedStatusCode  = errors.New("unexpected status code")
	ErrSourceUnreachable     = errors.New("source unreachable")
	ErrKeyNotFound           = errors.New("dedupe key not present in any record")
	ErrNoSourcesConfigured   = errors.New("no sources configured")
	ErrUnsupportedSourceType = errors.New("unsupported source type")
	ErrBodyTooLarge          = errors.New("response body exceeds limit")
)

// Source produces one table of raw records.
type Source interface {
	Name() string
	// Fetch returns every record the source holds.
	Fetch(ctx context.Context) (models.Table, error)
	// Check reports whether the source is reachable without reading it.
	Check(ctx context.Context) error
}

// Tag sets field to value on records that do not carry it. Sources use it to
// stamp the originating sport.
type Tag struct {
	Field string
	Value string
}

func (t Tag) apply(table models.Table) {
	if t.Field == "" || t.Value == "" {
		return
	}

	for _, rec := range table {
		if v, ok := rec[t.Field]; !ok || v == nil {
			rec[t.Field] = t.Value
		}
	}
}

// decodeRecords accepts a JSON object or an array of objects. Numbers are kept
// as json.Number so integers survive unchanged.
func decodeRecords(r io.Reader) (models.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	switch data[0] {
	case '{':
		var rec models.Record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}

		return models.Table{rec}, nil
	case '[':
		var raw []any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}

		table := make(models.Table, 0, len(raw))

		for i, item := range raw {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: element %d is %T", ErrInvalidPayload, i, item)
			}

			table = append(table, models.Record(obj))
		}

		return table, nil
	default:
		return nil, ErrInvalidPayload
	}
}
