package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"outlierx/internal/config"
)

var errConfigExists = errors.New("config file already exists (use --force to overwrite)")

var configFlags struct {
	force bool
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Long: `Write the built-in defaults, including the stock sports-betting schema and
freshness thresholds, to a YAML file ready for editing.`,
	Args: cobra.MaximumNArgs(1),
	// Runs before any configuration exists.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE:              runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), cfg.String())

		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd)

	configInitCmd.Flags().BoolVarP(&configFlags.force, "force", "f", false, "overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := "config.yaml"
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil && !configFlags.force {
		return fmt.Errorf("%w: %s", errConfigExists, path)
	}

	if err := config.Default().SaveConfig(path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Wrote default configuration to %s\n", path)

	return nil
}
