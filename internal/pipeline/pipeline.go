// Package pipeline runs ingestion, normalization and validation as one
// batch job and applies the strict or lenient policy to the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"outlierx/internal/config"
	"outlierx/internal/ingest"
	"outlierx/internal/logger"
	"outlierx/internal/metrics"
	"outlierx/internal/models"
	"outlierx/internal/normalizer"
	"outlierx/internal/report"
	"outlierx/internal/store"
	"outlierx/internal/validator"
	"outlierx/pkg/metadata"
)

// ErrStrictModeViolation is returned when strict mode meets an invalid record.
var ErrStrictModeViolation = errors.New("strict mode: invalid records found")

// ValidationErrorsField carries the error messages of an invalid record in
// lenient output.
const ValidationErrorsField = "_validation_errors"

// Output file names, extended with the configured format.
const (
	ProcessedName  = "processed_data"
	ValidationName = "validation_report"
	SummaryName    = "summary_report"
)

// Result is the outcome of one run.
type Result struct {
	StartedAt  time.Time
	FinishedAt time.Time
	RunID      string
	Status     string
	Table      models.Table
	Ledger     normalizer.Ledger
	Sources    []ingest.SourceResult
	Outputs    []string
	Report     validator.BatchReport
	Ingested   int
	Duplicates int
}

// Duration is the wall time of the run.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Orchestrator wires the engines to their I/O collaborators.
type Orchestrator struct {
	cfg       *config.Config
	logger    *logger.Logger
	processor *normalizer.Processor
	validator *validator.Validator
	reports   *report.Generator
	metrics   *metrics.Collector
	store     *store.Store
	now       func() time.Time
	newID     func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithMetrics records run outcomes on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *Orchestrator) {
		o.metrics = c
	}
}

// WithStore persists every run to s.
func WithStore(s *store.Store) Option {
	return func(o *Orchestrator) {
		o.store = s
	}
}

// WithClock sets the clock used for run times and freshness checks.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithRunID overrides run ID generation.
func WithRunID(gen func() string) Option {
	return func(o *Orchestrator) {
		o.newID = gen
	}
}

// New builds the engines from cfg. Schema defects fail here, before any data
// is read.
func New(cfg *config.Config, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		cfg:    cfg,
		logger: logger.Discard(),
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}

	for _, opt := range opts {
		opt(o)
	}

	proc, err := normalizer.NewProcessor(&cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to build normalizer: %w", err)
	}

	v, err := validator.New(&cfg.Schema,
		validator.WithClock(o.now),
		validator.WithSampleCap(cfg.Pipeline.SampleSize),
		validator.WithFreshness(cfg.Freshness.Policy()),
		validator.WithSportField(cfg.Pipeline.SportField),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build validator: %w", err)
	}

	o.processor = proc
	o.validator = v
	o.reports = report.NewGenerator(report.WithClock(o.now))

	return o, nil
}

// Validator returns the validation engine.
func (o *Orchestrator) Validator() *validator.Validator {
	return o.validator
}

// Reports returns the report generator.
func (o *Orchestrator) Reports() *report.Generator {
	return o.reports
}

// Normalize runs the normalization engine over table.
func (o *Orchestrator) Normalize(table models.Table) (models.Table, normalizer.Ledger) {
	start := time.Now()
	out, ledger := o.processor.NormalizeTable(table)

	if len(ledger) > 0 {
		o.logger.Warn("⚠️  Normalization left fields raw", "failures", len(ledger), "rows", len(ledger.Rows()))

		for _, nerr := range ledger {
			o.logger.Debug("Normalization failure", "row", nerr.Row, "field", nerr.Field, "error", nerr)
		}
	}

	o.observe("normalize", time.Since(start))

	return out, ledger
}

// Validate shards table into batch_size row ranges, validates up to workers
// shards at once and merges the shard reports in row order. The returned
// slice holds the error messages of each invalid row, nil for valid rows.
func (o *Orchestrator) Validate(ctx context.Context, table models.Table) (validator.BatchReport, [][]string, error) {
	start := time.Now()
	size := max(o.cfg.Pipeline.BatchSize, 1)
	shards := (len(table) + size - 1) / size

	reports := make([]validator.BatchReport, shards)
	messages := make([][]string, len(table))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(o.cfg.Pipeline.Workers, 1))

	for i := range shards {
		offset := i * size
		shard := table.Slice(offset, offset+size)

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			b := validator.NewReportBuilder(o.validator.SampleCap())

			for j, rec := range shard {
				res := o.validator.ValidateRow(rec)
				res.Index = offset + j
				b.Add(res)

				if !res.Valid {
					messages[offset+j] = res.Messages()
				}
			}

			reports[i] = b.Build()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return validator.BatchReport{}, nil, fmt.Errorf("validation aborted: %w", err)
	}

	merged := validator.MergeReports(o.validator.SampleCap(), reports...)

	o.observe("validate", time.Since(start))
	o.logger.Info("Validation complete",
		"shards", shards,
		"valid", merged.ValidRecords,
		"invalid", merged.InvalidRecords,
		"warnings", len(merged.Warnings),
	)

	return merged, messages, nil
}

// Process normalizes and validates an already ingested table, then applies
// the strict or lenient policy and records the run. In strict mode any
// invalid record returns ErrStrictModeViolation alongside the result; in
// lenient mode invalid rows carry their messages under ValidationErrorsField.
// Nothing is written to the output directory.
func (o *Orchestrator) Process(ctx context.Context, table models.Table) (*Result, error) {
	res := &Result{
		RunID:     o.newID(),
		StartedAt: o.now(),
		Ingested:  len(table),
	}

	err := o.process(ctx, res, table)
	o.finish(ctx, res, err)

	return res, err
}

func (o *Orchestrator) process(ctx context.Context, res *Result, table models.Table) error {
	log := o.logger.With("run_id", res.RunID)

	log.Info("Phase 2: Normalization", "records", len(table))
	normalized, ledger := o.Normalize(table)
	res.Ledger = ledger

	log.Info("Phase 3: Validation", "records", len(normalized), "workers", o.cfg.Pipeline.Workers)

	rep, messages, err := o.Validate(ctx, normalized)
	if err != nil {
		res.Status = metrics.StatusFailed

		return err
	}

	res.Report = rep
	res.Table = normalized
	res.Status = metrics.StatusSuccess

	if rep.IsValid() {
		log.Info("✅ " + rep.String())

		return nil
	}

	res.Status = metrics.StatusInvalid

	if o.cfg.Pipeline.StrictMode {
		log.Error("❌ " + rep.String())

		return fmt.Errorf("%w: %d of %d records invalid", ErrStrictModeViolation, rep.InvalidRecords, rep.TotalRecords)
	}

	log.Warn("⚠️  " + rep.String())
	res.Table = Annotate(normalized, messages)

	return nil
}

// Annotate returns table with ValidationErrorsField set on every row that
// has messages. Other rows are shared, not copied.
func Annotate(table models.Table, messages [][]string) models.Table {
	out := make(models.Table, len(table))

	for i, rec := range table {
		if i < len(messages) && len(messages[i]) > 0 {
			annotated := rec.Clone()
			annotated[ValidationErrorsField] = messages[i]
			out[i] = annotated

			continue
		}

		out[i] = rec
	}

	return out
}

// Run ingests from m, deduplicates, processes, and then writes outputs,
// metrics and run history. Outputs are written in lenient mode and for valid
// batches; a strict-mode failure still writes the validation report and is
// recorded before ErrStrictModeViolation is returned.
func (o *Orchestrator) Run(ctx context.Context, m *ingest.Manager) (*Result, error) {
	res := &Result{RunID: o.newID(), StartedAt: o.now()}
	log := o.logger.With("run_id", res.RunID)

	log.Info("🚀 Starting outlierx pipeline", "sources", len(m.Sources()), "strict", o.cfg.Pipeline.StrictMode)
	log.Info("Phase 1: Ingestion")

	start := time.Now()
	table, err := m.Merge(ctx)
	res.Sources = m.Results()
	o.observe("ingest", time.Since(start))

	if err != nil {
		res.Status = metrics.StatusFailed
		o.finish(ctx, res, err)

		return res, fmt.Errorf("ingestion failed: %w", err)
	}

	res.Ingested = len(table)

	if key := o.cfg.Pipeline.DedupeKey; key != "" && len(table) > 0 {
		deduped, dropped, err := ingest.Deduplicate(table, key)
		if err != nil {
			log.Warn("⚠️  Skipping deduplication", "key", key, "error", err)
		} else {
			table = deduped
			res.Duplicates = dropped
			log.Info("Deduplicated", "key", key, "dropped", dropped, "records", len(table))
		}
	}

	procErr := o.process(ctx, res, table)

	if procErr == nil || errors.Is(procErr, ErrStrictModeViolation) {
		if err := o.export(res, procErr == nil); err != nil {
			res.Status = metrics.StatusFailed
			o.finish(ctx, res, err)

			return res, err
		}
	}

	o.finish(ctx, res, procErr)

	if procErr != nil {
		return res, procErr
	}

	log.Info("✨ Pipeline complete", "duration", res.Duration(), "outputs", len(res.Outputs))

	return res, nil
}

// export writes the processed table when withData is set, and the reports
// when enabled.
func (o *Orchestrator) export(res *Result, withData bool) error {
	out := o.cfg.Output

	if withData {
		path := o.cfg.GetOutputPath(ProcessedName)
		if err := report.WriteTable(path, out.Format, res.Table, nil, out.PrettyPrint); err != nil {
			return err
		}

		res.Outputs = append(res.Outputs, path)
	}

	if !out.WriteReports {
		return nil
	}

	meta := metadata.Metadata{RunID: res.RunID, Valid: res.Report.IsValid(), Generated: o.now()}

	validationPath := filepath.Join(out.Dir, ValidationName+".txt")
	if err := report.WriteBatchReport(validationPath, report.FormatTXT, res.Report, o.reports, meta); err != nil {
		return err
	}

	res.Outputs = append(res.Outputs, validationPath)

	if out.Format == report.FormatJSON {
		jsonPath := filepath.Join(out.Dir, ValidationName+".json")
		if err := report.WriteBatchReport(jsonPath, report.FormatJSON, res.Report, o.reports, meta); err != nil {
			return err
		}

		res.Outputs = append(res.Outputs, jsonPath)
	}

	summary := o.reports.Summary(report.Summary{
		Records:  len(res.Table),
		Columns:  res.Table.Columns(),
		Duration: o.now().Sub(res.StartedAt),
		Stats:    o.stats(res),
	})

	summaryPath := filepath.Join(out.Dir, SummaryName+".txt")
	if err := report.WriteText(summaryPath, summary, meta); err != nil {
		return err
	}

	res.Outputs = append(res.Outputs, summaryPath)

	return nil
}

func (o *Orchestrator) stats(res *Result) []report.Stat {
	stats := []report.Stat{
		{Key: "Run ID", Value: res.RunID},
		{Key: "Records Ingested", Value: fmt.Sprint(res.Ingested)},
		{Key: "Duplicates Dropped", Value: fmt.Sprint(res.Duplicates)},
		{Key: "Normalization Failures", Value: fmt.Sprint(len(res.Ledger))},
		{Key: "Valid Records", Value: fmt.Sprint(res.Report.ValidRecords)},
		{Key: "Invalid Records", Value: fmt.Sprint(res.Report.InvalidRecords)},
		{Key: "Warnings", Value: fmt.Sprint(len(res.Report.Warnings))},
	}

	for _, src := range res.Sources {
		stats = append(stats, report.Stat{
			Key:   "Source " + src.Source,
			Value: fmt.Sprintf("%d records in %v", src.Records, src.Duration.Round(time.Millisecond)),
		})
	}

	return stats
}

// finish stamps the run and hands it to metrics and the store. Failures here
// are logged, never returned.
func (o *Orchestrator) finish(ctx context.Context, res *Result, runErr error) {
	res.FinishedAt = o.now()

	if o.metrics != nil {
		o.metrics.RecordNormalization(res.Ledger.CountByField())
		o.metrics.RecordValidation(res.Report)
		o.metrics.RecordRun(res.Status, res.FinishedAt)

		if o.cfg.Metrics.Textfile != "" {
			if err := o.metrics.WriteTextfile(o.cfg.Metrics.Textfile); err != nil {
				o.logger.Error("Failed to write metrics", "error", err)
			}
		}
	}

	if o.store == nil {
		return
	}

	run := store.Run{
		ID:                    res.RunID,
		Status:                res.Status,
		StartedAt:             res.StartedAt,
		FinishedAt:            res.FinishedAt,
		Report:                res.Report,
		Duplicates:            res.Duplicates,
		NormalizationFailures: len(res.Ledger),
	}

	if runErr != nil {
		run.Error = runErr.Error()
	}

	if err := o.store.SaveRun(ctx, run); err != nil {
		o.logger.Error("Failed to record run", "run_id", res.RunID, "error", err)
	}
}

func (o *Orchestrator) observe(stage string, d time.Duration) {
	if o.metrics != nil {
		o.metrics.ObserveStage(stage, d)
	}
}
