// Package metrics records pipeline outcomes as Prometheus metrics and writes
// them to a node-exporter textfile.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"outlierx/internal/validator"
)

const namespace = "outlierx"

// Run statuses.
const (
	StatusSuccess = "success"
	StatusInvalid = "invalid"
	StatusFailed  = "failed"
)

// Collector holds the pipeline metrics on its own registry.
type Collector struct {
	registry       *prometheus.Registry
	runs           *prometheus.CounterVec
	records        *prometheus.CounterVec
	fieldErrors    *prometheus.CounterVec
	warnings       prometheus.Counter
	normalizeFails *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	validity       prometheus.Gauge
	lastRun        prometheus.Gauge
}

// NewCollector registers the pipeline metrics on registry, or on a fresh
// registry when nil.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by final status.",
		}, []string{"status"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records seen by validation outcome.",
		}, []string{"outcome"}),
		fieldErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_errors_total",
			Help:      "Rule violations per field.",
		}, []string{"field"}),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Validation warnings emitted.",
		}),
		normalizeFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalization_failures_total",
			Help:      "Fields left raw after a failed transformation.",
		}, []string{"field"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"stage"}),
		validity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_validity_ratio",
			Help:      "Share of valid records in the last run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}

	registry.MustRegister(
		c.runs,
		c.records,
		c.fieldErrors,
		c.warnings,
		c.normalizeFails,
		c.stageDuration,
		c.validity,
		c.lastRun,
	)

	return c
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveStage records how long a stage took.
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordNormalization counts fields that failed to normalize.
func (c *Collector) RecordNormalization(failuresByField map[string]int) {
	for field, n := range failuresByField {
		c.normalizeFails.WithLabelValues(field).Add(float64(n))
	}
}

// RecordValidation records the outcome of a validated batch.
func (c *Collector) RecordValidation(r validator.BatchReport) {
	c.records.WithLabelValues("valid").Add(float64(r.ValidRecords))
	c.records.WithLabelValues("invalid").Add(float64(r.InvalidRecords))

	for _, fc := range r.ErrorsByField {
		c.fieldErrors.WithLabelValues(fc.Field).Add(float64(fc.Count))
	}

	c.warnings.Add(float64(len(r.Warnings)))

	if r.TotalRecords > 0 {
		c.validity.Set(float64(r.ValidRecords) / float64(r.TotalRecords))
	}
}

// RecordRun counts a finished run.
func (c *Collector) RecordRun(status string, finished time.Time) {
	c.runs.WithLabelValues(status).Inc()
	c.lastRun.Set(float64(finished.Unix()))
}

// WriteTextfile writes every metric to path in the Prometheus text format.
func (c *Collector) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}

	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}

	return nil
}
