package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"outlierx/internal/metrics"
	"outlierx/internal/pipeline"
	"outlierx/internal/store"
)

var processFlags struct {
	source    string
	path      string
	sport     string
	outputDir string
	format    string
	strict    bool
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the full pipeline: ingest, normalize, validate, export",
	Long: `Run every phase over the configured sources, or over one ad-hoc source
given with --source/--path, and write processed_data, validation_report and
summary_report to the output directory.

In strict mode an invalid record aborts the export of processed data; the
validation report is still written and the run is recorded as invalid.

Examples:
  outlierx process --config config.yaml
  outlierx process --path data/raw/nba.json --output-dir data/processed --strict
  outlierx process --source api --path https://odds.example.com/nfl --sport football`,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVar(&processFlags.source, "source", "", "source type: json, csv, api (uses config if not specified)")
	processCmd.Flags().StringVar(&processFlags.path, "path", "", "file path or URL of the ad-hoc source")
	processCmd.Flags().StringVar(&processFlags.sport, "sport", "", "sport to tag records that carry none")
	processCmd.Flags().StringVar(&processFlags.outputDir, "output-dir", "", "output directory (overrides config)")
	processCmd.Flags().StringVar(&processFlags.format, "format", "", "output format: json, csv (overrides config)")
	processCmd.Flags().BoolVar(&processFlags.strict, "strict", false, "abort export on any invalid record (overrides config)")
}

func runProcess(cmd *cobra.Command, _ []string) error {
	if processFlags.outputDir != "" {
		cfg.Output.Dir = processFlags.outputDir
	}

	if processFlags.format != "" {
		cfg.Output.Format = processFlags.format
	}

	if processFlags.strict {
		cfg.Pipeline.StrictMode = true
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	opts := []pipeline.Option{pipeline.WithLogger(log)}

	if cfg.Metrics.Enabled {
		opts = append(opts, pipeline.WithMetrics(metrics.NewCollector(nil)))
	}

	if cfg.Store.Enabled {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		opts = append(opts, pipeline.WithStore(st))
	}

	orch, err := pipeline.New(cfg, opts...)
	if err != nil {
		return err
	}

	m, err := sourceManager(processFlags.source, processFlags.path, processFlags.sport)
	if err != nil {
		return err
	}

	res, err := orch.Run(cmd.Context(), m)
	if res != nil {
		printResult(cmd, res)
	}

	if err != nil && !errors.Is(err, pipeline.ErrStrictModeViolation) {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	return err
}

func printResult(cmd *cobra.Command, res *pipeline.Result) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Run %s: %s in %v\n", res.RunID, res.Status, res.Duration().Round(time.Millisecond))
	fmt.Fprintf(out, "  Ingested:     %d (%d duplicates dropped)\n", res.Ingested, res.Duplicates)
	fmt.Fprintf(out, "  Normalized:   %d failures\n", len(res.Ledger))
	fmt.Fprintf(out, "  Validation:   %s\n", res.Report.String())

	for _, path := range res.Outputs {
		fmt.Fprintf(out, "  📄 %s\n", path)
	}
}
