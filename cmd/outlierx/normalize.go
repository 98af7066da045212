package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"outlierx/internal/pipeline"
)

var normalizeFlags struct {
	input  string
	output string
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Apply the schema's normalization directives to a file",
	Long: `Normalize every record of --input with the configured directives and
write the result to --output. Values that cannot be normalized are kept
as they were and listed as failures.

Examples:
  outlierx normalize --input data/raw.json --output data/normalized.json`,
	RunE: runNormalize,
}

func init() {
	rootCmd.AddCommand(normalizeCmd)

	normalizeCmd.Flags().StringVarP(&normalizeFlags.input, "input", "i", "", "input file (.json or .csv)")
	normalizeCmd.Flags().StringVarP(&normalizeFlags.output, "output", "o", "", "output file (.json or .csv)")
}

func runNormalize(cmd *cobra.Command, _ []string) error {
	if normalizeFlags.input == "" {
		return errMissingInput
	}

	if normalizeFlags.output == "" {
		return errMissingOutput
	}

	orch, err := pipeline.New(cfg, pipeline.WithLogger(log))
	if err != nil {
		return err
	}

	table, err := loadTable(cmd.Context(), normalizeFlags.input)
	if err != nil {
		return err
	}

	normalized, ledger := orch.Normalize(table)

	if err := writeTable(normalizeFlags.output, normalized); err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	for _, nerr := range ledger {
		fmt.Fprintf(out, "  ⚠️  %v\n", nerr)
	}

	fmt.Fprintf(out, "✅ Normalized %d records to %s (%d failures)\n", len(normalized), normalizeFlags.output, len(ledger))

	return nil
}
