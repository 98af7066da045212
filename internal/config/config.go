// Package config provides configuration management for the outlierx pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"outlierx/internal/models"
	"outlierx/internal/validator"
)

// Configuration validation errors.
var (
	ErrInvalidBatchSize         = errors.New("pipeline.batch_size must be at least 1")
	ErrInvalidWorkers           = errors.New("pipeline.workers must be at least 1")
	ErrInvalidSampleSize        = errors.New("pipeline.sample_size must be at least 1")
	ErrInvalidFreshness         = errors.New("freshness hours must be positive")
	ErrMissingOutputDir         = errors.New("output.dir is required")
	ErrInvalidOutputFormat      = errors.New("output.format must be 'json' or 'csv'")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat         = errors.New("logging.format must be 'text' or 'json'")
	ErrSourceMissingName        = errors.New("source name is required")
	ErrSourceMissingPathOrURL   = errors.New("either path or url is required")
	ErrUnknownSourceType        = errors.New("source type must be one of: json, csv, api")
	ErrInvalidMaxAttempts       = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("ingest.timeout_sec must be at least 1")
	ErrInvalidRateLimit         = errors.New("ingest.rate_limit_rps must be non-negative")
	ErrMissingStorePath         = errors.New("store.path is required when the store is enabled")
	ErrMissingTextfile          = errors.New("metrics.textfile is required when metrics are enabled")
)

// Environment variables read by FromEnv.
const (
	EnvConfigPath   = "OUTLIER_CONFIG_PATH"
	EnvLogLevel     = "OUTLIER_LOG_LEVEL"
	EnvLogFormat    = "OUTLIER_LOG_FORMAT"
	EnvStrictMode   = "OUTLIER_STRICT_MODE"
	EnvOutputFormat = "OUTLIER_OUTPUT_FORMAT"
	EnvOutputDir    = "OUTLIER_OUTPUT_DIR"
	EnvWorkers      = "OUTLIER_WORKERS"
	EnvSampleSize   = "OUTLIER_SAMPLE_SIZE"
)

// Source types.
const (
	SourceJSON = "json"
	SourceCSV  = "csv"
	SourceAPI  = "api"
)

// Config represents the complete pipeline configuration.
type Config struct {
	Freshness FreshnessConfig `yaml:"freshness"`
	Schema    models.Schema   `yaml:"schema"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Store     StoreConfig     `yaml:"store"`
}

// PipelineConfig controls how a batch moves through the engines.
type PipelineConfig struct {
	SportField string `yaml:"sport_field"`
	DedupeKey  string `yaml:"dedupe_key"`
	BatchSize  int    `yaml:"batch_size"`
	Workers    int    `yaml:"workers"`
	SampleSize int    `yaml:"sample_size"`
	StrictMode bool   `yaml:"strict_mode"`
}

// FreshnessConfig maps sports to their maximum record age in hours.
type FreshnessConfig struct {
	Sports        map[string]float64 `yaml:"sports"`
	FallbackHours float64            `yaml:"fallback_hours"`
}

// Policy converts the configuration into the validator's policy.
func (f FreshnessConfig) Policy() validator.FreshnessPolicy {
	return validator.NewFreshnessPolicy(f.Sports, f.FallbackHours)
}

// OutputConfig defines output behavior.
type OutputConfig struct {
	Dir          string `yaml:"dir"`
	Format       string `yaml:"format"`
	WriteReports bool   `yaml:"write_reports"`
	PrettyPrint  bool   `yaml:"pretty_print"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"`
}

// IngestConfig lists the sources and how remote ones are fetched.
type IngestConfig struct {
	Headers      map[string]string `yaml:"headers"`
	Sources      []SourceConfig    `yaml:"sources"`
	Retry        RetryPolicy       `yaml:"retry"`
	TimeoutSec   int               `yaml:"timeout_sec"`
	RateLimitRPS float64           `yaml:"rate_limit_rps"`
	Burst        int               `yaml:"burst"`
}

// SourceConfig represents one ingestion source.
type SourceConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Path    string `yaml:"path"`
	URL     string `yaml:"url"`
	Sport   string `yaml:"sport"`
	Enabled bool   `yaml:"enabled"`
}

// IsLocalFile returns true if this source reads a local file.
func (s *SourceConfig) IsLocalFile() bool {
	return s.Path != ""
}

// GetSource returns the file path if local, or URL if remote.
func (s *SourceConfig) GetSource() string {
	if s.IsLocalFile() {
		return s.Path
	}

	return s.URL
}

// RetryPolicy defines retry behavior for remote sources.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
	Enabled  bool   `yaml:"enabled"`
}

// StoreConfig controls the SQLite run history.
type StoreConfig struct {
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
}

// Default returns a configuration that validates as-is, carrying the stock
// sports-betting schema.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			BatchSize:  1000,
			Workers:    4,
			SampleSize: validator.DefaultSampleCap,
			SportField: validator.DefaultSportField,
			DedupeKey:  "event_id",
		},
		Freshness: FreshnessConfig{
			Sports: map[string]float64{
				"football":   168,
				"basketball": 168,
				"baseball":   72,
				"hockey":     72,
			},
			FallbackHours: 24,
		},
		Schema: DefaultSchema(),
		Output: OutputConfig{
			Dir:          "data/processed",
			Format:       "json",
			WriteReports: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Dir:    "logs",
		},
		Ingest: IngestConfig{
			TimeoutSec:   30,
			RateLimitRPS: 5,
			Burst:        1,
			Retry: RetryPolicy{
				MaxAttempts:       3,
				InitialDelayMs:    500,
				MaxDelayMs:        10000,
				BackoffMultiplier: 2.0,
			},
		},
		Metrics: MetricsConfig{Textfile: "data/metrics/outlierx.prom"},
		Store:   StoreConfig{Path: "data/outlierx.db"},
	}
}

// LoadConfig loads configuration from a YAML file on top of Default. A schema
// section in the file replaces the default schema as a whole.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var probe struct {
		Schema *models.Schema `yaml:"schema"`
	}

	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if probe.Schema != nil {
		cfg.Schema = *probe.Schema
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// FromEnv loads the file named by OUTLIER_CONFIG_PATH (or path, when given),
// falls back to Default, then applies the remaining OUTLIER_* overrides.
func FromEnv(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	cfg := Default()

	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}

		cfg = loaded
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides fields from environment variables using lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvLogLevel); ok {
		c.Logging.Level = strings.ToLower(v)
	}

	if v, ok := lookup(EnvLogFormat); ok {
		c.Logging.Format = strings.ToLower(v)
	}

	if v, ok := lookup(EnvStrictMode); ok {
		c.Pipeline.StrictMode = strings.EqualFold(strings.TrimSpace(v), "true")
	}

	if v, ok := lookup(EnvOutputFormat); ok {
		c.Output.Format = strings.ToLower(v)
	}

	if v, ok := lookup(EnvOutputDir); ok {
		c.Output.Dir = v
	}

	for name, dst := range map[string]*int{EnvWorkers: &c.Pipeline.Workers, EnvSampleSize: &c.Pipeline.SampleSize} {
		v, ok := lookup(name)
		if !ok {
			continue
		}

		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		*dst = n
	}

	return nil
}

// SaveConfig saves configuration to a YAML file, creating parent directories.
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Pipeline.BatchSize < 1 {
		return ErrInvalidBatchSize
	}

	if c.Pipeline.Workers < 1 {
		return ErrInvalidWorkers
	}

	if c.Pipeline.SampleSize < 1 {
		return ErrInvalidSampleSize
	}

	if c.Freshness.FallbackHours <= 0 {
		return fmt.Errorf("%w: fallback_hours", ErrInvalidFreshness)
	}

	for sport, hours := range c.Freshness.Sports {
		if hours <= 0 {
			return fmt.Errorf("%w: %s", ErrInvalidFreshness, sport)
		}
	}

	if err := c.Schema.Validate(); err != nil {
		return fmt.Errorf("schema: %w", err)
	}

	if c.Output.Dir == "" {
		return ErrMissingOutputDir
	}

	if c.Output.Format != "json" && c.Output.Format != "csv" {
		return ErrInvalidOutputFormat
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Logging.Level) {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	if err := c.validateIngest(); err != nil {
		return err
	}

	if c.Metrics.Enabled && c.Metrics.Textfile == "" {
		return ErrMissingTextfile
	}

	if c.Store.Enabled && c.Store.Path == "" {
		return ErrMissingStorePath
	}

	return nil
}

func (c *Config) validateIngest() error {
	for i, src := range c.Ingest.Sources {
		if src.Name == "" {
			return fmt.Errorf("%w: source[%d]", ErrSourceMissingName, i)
		}

		if src.Path == "" && src.URL == "" {
			return fmt.Errorf("%w: source[%d]", ErrSourceMissingPathOrURL, i)
		}

		switch src.Type {
		case SourceJSON, SourceCSV, SourceAPI:
		default:
			return fmt.Errorf("%w: source[%d] has %q", ErrUnknownSourceType, i, src.Type)
		}
	}

	if c.Ingest.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	if c.Ingest.RateLimitRPS < 0 {
		return ErrInvalidRateLimit
	}

	if c.Ingest.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Ingest.Retry.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if c.Ingest.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	return nil
}

// GetEnabledSources returns only enabled sources.
func (c *Config) GetEnabledSources() []SourceConfig {
	var enabled []SourceConfig

	for _, src := range c.Ingest.Sources {
		if src.Enabled {
			enabled = append(enabled, src)
		}
	}

	return enabled
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	if rp.MaxDelayMs > 0 && delayMs > float64(rp.MaxDelayMs) {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(delayMs) * time.Millisecond
}

// GetTimeout returns the per-request timeout.
func (c *IngestConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// GetOutputPath returns {dir}/{name}.{format}.
func (c *Config) GetOutputPath(name string) string {
	return filepath.Join(c.Output.Dir, name+"."+c.Output.Format)
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Fields: %d, Rules: %d, Sources: %d, Strict: %t, Output: %s}",
		len(c.Schema.Fields),
		len(c.Schema.Validation),
		len(c.Ingest.Sources),
		c.Pipeline.StrictMode,
		c.Output.Dir,
	)
}
