package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"outlierx/internal/report"
	"outlierx/internal/store"
)

var historyFlags struct {
	limit int
}

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded pipeline runs",
	Long: `List the most recent runs from the SQLite history at store.path, or show
the validation report of a single run.

Examples:
  outlierx history --limit 10
  outlierx history 6f1c2a0e-5d7b-4c3e-9f11-0a2b3c4d5e6f`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyFlags.limit, "limit", "n", 20, "number of runs to list (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()

	if len(args) == 1 {
		run, err := st.GetRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Run %s: %s in %v\n", run.ID, run.Status, run.Duration().Round(time.Millisecond))

		if run.Error != "" {
			fmt.Fprintf(out, "Error: %s\n", run.Error)
		}

		fmt.Fprintln(out, report.NewGenerator().Validation(run.Report))

		return nil
	}

	runs, err := st.ListRuns(cmd.Context(), historyFlags.limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")

		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Status,
			fmt.Sprint(r.Report.TotalRecords),
			fmt.Sprint(r.Report.InvalidRecords),
			fmt.Sprint(r.WarningCount),
			r.Duration().Round(time.Millisecond).String(),
		})
	}

	fmt.Fprintln(out, report.RenderTable(
		[]string{"Run ID", "Started", "Status", "Records", "Invalid", "Warnings", "Duration"},
		rows,
	))

	return nil
}
