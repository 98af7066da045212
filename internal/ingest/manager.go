package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"outlierx/internal/config"
	"outlierx/internal/logger"
	"outlierx/internal/models"
)

// SourceResult summarises one source load.
type SourceResult struct {
	Source   string
	Error    string
	Records  int
	Duration time.Duration
	Success  bool
}

// Manager loads and merges a set of sources.
type Manager struct {
	logger  *logger.Logger
	sources []Source
	results []SourceResult
}

// NewManager creates a manager over sources, loaded in the given order.
func NewManager(l *logger.Logger, sources ...Source) *Manager {
	if l == nil {
		l = logger.Discard()
	}

	return &Manager{logger: l, sources: sources}
}

// FromConfig builds a manager from the enabled sources in cfg.
func FromConfig(cfg *config.Config, l *logger.Logger) (*Manager, error) {
	enabled := cfg.GetEnabledSources()
	if len(enabled) == 0 {
		return nil, ErrNoSourcesConfigured
	}

	sources := make([]Source, 0, len(enabled))

	for _, sc := range enabled {
		src, err := NewSource(sc, cfg.Pipeline.SportField, &cfg.Ingest)
		if err != nil {
			return nil, err
		}

		sources = append(sources, src)
	}

	return NewManager(l, sources...), nil
}

// NewSource builds one source from its configuration. File sources with no
// explicit type are typed by extension.
func NewSource(sc config.SourceConfig, sportField string, ic *config.IngestConfig) (Source, error) {
	tag := Tag{Field: sportField, Value: strings.ToLower(sc.Sport)}

	kind := sc.Type
	if kind == "" && sc.IsLocalFile() {
		kind = strings.TrimPrefix(strings.ToLower(filepath.Ext(sc.Path)), ".")
	}

	switch kind {
	case config.SourceJSON:
		return NewJSONSource(sc.Name, sc.Path, tag), nil
	case config.SourceCSV:
		return NewCSVSource(sc.Name, sc.Path, tag), nil
	case config.SourceAPI:
		opts := []APIOption{WithTag(tag)}
		if ic != nil {
			opts = append(opts,
				WithRetryPolicy(ic.Retry),
				WithRateLimit(ic.RateLimitRPS, ic.Burst),
				WithHeaders(ic.Headers),
			)

			if ic.TimeoutSec > 0 {
				opts = append(opts, WithHTTPClient(&http.Client{Timeout: ic.GetTimeout()}))
			}
		}

		return NewAPISource(sc.Name, sc.URL, opts...)
	default:
		return nil, fmt.Errorf("%w: %q for source %s", ErrUnsupportedSourceType, kind, sc.Name)
	}
}

// Sources returns the managed sources.
func (m *Manager) Sources() []Source {
	return m.sources
}

// Results returns the outcome of each source from the last Merge.
func (m *Manager) Results() []SourceResult {
	out := make([]SourceResult, len(m.results))
	copy(out, m.results)

	return out
}

// Check verifies every source is reachable and returns the first failure.
func (m *Manager) Check(ctx context.Context) error {
	for _, src := range m.sources {
		if err := src.Check(ctx); err != nil {
			return fmt.Errorf("source %s: %w", src.Name(), err)
		}
	}

	return nil
}

// Load fetches a single source.
func (m *Manager) Load(ctx context.Context, src Source) (models.Table, error) {
	start := time.Now()

	table, err := src.Fetch(ctx)
	if err != nil {
		m.logger.Error("Source load failed", "source", src.Name(), "error", err)

		return nil, fmt.Errorf("source %s: %w", src.Name(), err)
	}

	m.logger.Info("Source loaded", "source", src.Name(), "records", len(table), "duration", time.Since(start))

	return table, nil
}

// Merge fetches all sources concurrently and concatenates their records in
// source order. Any failure aborts the merge.
func (m *Manager) Merge(ctx context.Context) (models.Table, error) {
	if len(m.sources) == 0 {
		return nil, ErrNoSourcesConfigured
	}

	tables := make([]models.Table, len(m.sources))
	results := make([]SourceResult, len(m.sources))

	g, gctx := errgroup.WithContext(ctx)

	for i, src := range m.sources {
		g.Go(func() error {
			start := time.Now()
			table, err := m.Load(gctx, src)

			results[i] = SourceResult{
				Source:   src.Name(),
				Records:  len(table),
				Duration: time.Since(start),
				Success:  err == nil,
			}

			if err != nil {
				results[i].Error = err.Error()

				return err
			}

			tables[i] = table

			return nil
		})
	}

	err := g.Wait()
	m.results = results

	if err != nil {
		return nil, err
	}

	total := 0
	for _, t := range tables {
		total += len(t)
	}

	merged := make(models.Table, 0, total)
	for _, t := range tables {
		merged = append(merged, t...)
	}

	m.logger.Info("Sources merged", "sources", len(m.sources), "records", total)

	return merged, nil
}

// Deduplicate keeps the first record for each value of key. Records without
// the key are kept as-is. It fails with ErrKeyNotFound when no record carries
// the key at all.
func Deduplicate(table models.Table, key string) (models.Table, int, error) {
	if len(table) == 0 {
		return table, 0, nil
	}

	seen := make(map[string]struct{}, len(table))
	out := make(models.Table, 0, len(table))
	found := false

	for _, rec := range table {
		v, ok := rec[key]
		if !ok || v == nil {
			out = append(out, rec)

			continue
		}

		found = true
		k := keyString(v)

		if _, dup := seen[k]; dup {
			continue
		}

		seen[k] = struct{}{}
		out = append(out, rec)
	}

	if !found {
		return nil, 0, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	return out, len(table) - len(out), nil
}

func keyString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
