package main

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"outlierx/internal/config"
	"outlierx/internal/ingest"
	"outlierx/internal/models"
	"outlierx/internal/report"
)

var (
	errMissingPath   = errors.New("--path is required with --source")
	errMissingOutput = errors.New("--output is required")
	errMissingInput  = errors.New("--input is required")
)

// loadTable reads one JSON or CSV file, typed by extension.
func loadTable(ctx context.Context, path string) (models.Table, error) {
	src, err := ingest.NewSource(config.SourceConfig{
		Name:    filepath.Base(path),
		Path:    path,
		Enabled: true,
	}, cfg.Pipeline.SportField, &cfg.Ingest)
	if err != nil {
		return nil, err
	}

	return ingest.NewManager(log, src).Load(ctx, src)
}

// writeTable exports table in the format named by the path's extension,
// falling back to output.format.
func writeTable(path string, table models.Table) error {
	return report.WriteTable(path, formatOf(path, cfg.Output.Format), table, nil, cfg.Output.PrettyPrint)
}

func formatOf(path, fallback string) string {
	switch ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."); ext {
	case report.FormatJSON, report.FormatCSV, report.FormatTXT:
		return ext
	default:
		return fallback
	}
}

// adhocSource builds a single source from --source/--path flags.
func adhocSource(kind, path, sport string) (ingest.Source, error) {
	if path == "" {
		return nil, errMissingPath
	}

	sc := config.SourceConfig{
		Name:    filepath.Base(path),
		Type:    kind,
		Sport:   sport,
		Enabled: true,
	}

	if kind == config.SourceAPI {
		sc.URL = path
	} else {
		sc.Path = path
	}

	return ingest.NewSource(sc, cfg.Pipeline.SportField, &cfg.Ingest)
}

// sourceManager returns a manager over the ad-hoc source when one is given,
// otherwise over the enabled sources in the configuration.
func sourceManager(kind, path, sport string) (*ingest.Manager, error) {
	if kind == "" && path == "" {
		return ingest.FromConfig(cfg, log)
	}

	if kind == "" {
		kind = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}

	src, err := adhocSource(kind, path, sport)
	if err != nil {
		return nil, err
	}

	return ingest.NewManager(log, src), nil
}
