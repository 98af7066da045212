package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"outlierx/internal/report"
	"outlierx/pkg/metadata"
)

var reportFlags struct {
	input   string
	output  string
	columns []string
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a data-quality report for a file",
	Long: `Print per-column completeness, distinct values and numeric ranges for
--input. With --output the report is also written as a signed text file.

Examples:
  outlierx report --input data/processed/processed_data.json
  outlierx report --input odds.csv --columns odds,line,volume --output quality.txt
  outlierx report verify data/processed/validation_report.txt`,
	RunE: runReport,
}

var reportVerifyCmd = &cobra.Command{
	Use:   "verify <file>",
	Short: "Verify the signature block of a written report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportVerify,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportVerifyCmd)

	reportCmd.Flags().StringVarP(&reportFlags.input, "input", "i", "", "input file (.json or .csv)")
	reportCmd.Flags().StringVarP(&reportFlags.output, "output", "o", "", "write the report to this file")
	reportCmd.Flags().StringSliceVar(&reportFlags.columns, "columns", nil, "columns to report (default: all)")
}

func runReport(cmd *cobra.Command, _ []string) error {
	if reportFlags.input == "" {
		return errMissingInput
	}

	table, err := loadTable(cmd.Context(), reportFlags.input)
	if err != nil {
		return err
	}

	content := report.NewGenerator().DataQuality(table, reportFlags.columns)
	fmt.Fprintln(cmd.OutOrStdout(), content)

	if reportFlags.output == "" {
		return nil
	}

	return report.WriteText(reportFlags.output, content, metadata.Metadata{Valid: true})
}

func runReportVerify(cmd *cobra.Command, args []string) error {
	meta, err := report.VerifyFile(args[0])
	if err != nil {
		return fmt.Errorf("❌ %s: %w", args[0], err)
	}

	var b strings.Builder

	fmt.Fprintf(&b, "✅ %s: signature valid\n", args[0])

	if meta.RunID != "" {
		fmt.Fprintf(&b, "  Run ID:    %s\n", meta.RunID)
	}

	fmt.Fprintf(&b, "  Generated: %s\n", meta.Generated.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "  Valid:     %t\n", meta.Valid)

	fmt.Fprint(cmd.OutOrStdout(), b.String())

	return nil
}
