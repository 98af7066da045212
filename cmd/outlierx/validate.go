package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"outlierx/internal/pipeline"
	"outlierx/internal/report"
	"outlierx/pkg/metadata"
)

var validateFlags struct {
	input     string
	output    string
	strict    bool
	normalize bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a file against the schema's rules",
	Long: `Validate every record of --input and print the validation report.
With --output the report is also written as txt (signed), json or csv,
chosen by extension.

In strict mode the command fails when any record is invalid.

Examples:
  outlierx validate --input data/normalized.json
  outlierx validate --input data/raw.csv --normalize --output report.json --strict`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFlags.input, "input", "i", "", "input file (.json or .csv)")
	validateCmd.Flags().StringVarP(&validateFlags.output, "output", "o", "", "report file (.txt, .json or .csv)")
	validateCmd.Flags().BoolVar(&validateFlags.strict, "strict", false, "fail when any record is invalid (overrides config)")
	validateCmd.Flags().BoolVar(&validateFlags.normalize, "normalize", false, "normalize records before validating")
}

func runValidate(cmd *cobra.Command, _ []string) error {
	if validateFlags.input == "" {
		return errMissingInput
	}

	strict := cfg.Pipeline.StrictMode || validateFlags.strict

	orch, err := pipeline.New(cfg, pipeline.WithLogger(log))
	if err != nil {
		return err
	}

	table, err := loadTable(cmd.Context(), validateFlags.input)
	if err != nil {
		return err
	}

	if validateFlags.normalize {
		table, _ = orch.Normalize(table)
	}

	rep, _, err := orch.Validate(cmd.Context(), table)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), orch.Reports().Validation(rep))

	if validateFlags.output != "" {
		meta := metadata.Metadata{Valid: rep.IsValid()}
		format := formatOf(validateFlags.output, report.FormatTXT)

		if err := report.WriteBatchReport(validateFlags.output, format, rep, orch.Reports(), meta); err != nil {
			return err
		}
	}

	if strict && !rep.IsValid() {
		return fmt.Errorf("%w: %d of %d records invalid", pipeline.ErrStrictModeViolation, rep.InvalidRecords, rep.TotalRecords)
	}

	return nil
}
