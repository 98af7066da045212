package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"outlierx/internal/config"
	"outlierx/internal/logger"
)

var (
	// Global flags
	cfgFile  string
	logLevel string
	logFile  bool

	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "outlierx",
	Short: "Normalize and validate sports-betting odds feeds",
	Long: `outlierx turns raw odds feeds into a consistent, validated table.

Each batch goes through four phases:
  - Ingestion from JSON, CSV or HTTP sources
  - Normalization of formats, odds, currency and timestamps
  - Validation against field rules and freshness thresholds
  - Export of the processed data with signed reports

Configuration is read from --config, or from OUTLIER_CONFIG_PATH, and
OUTLIER_* environment variables override individual settings.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: $OUTLIER_CONFIG_PATH or built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&logFile, "log-file", false, "also write logs to the configured logging.dir")
}

// setup loads configuration and the logger for every subcommand.
func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.FromEnv(cfgFile)
	if err != nil {
		return err
	}

	if logLevel != "" {
		loaded.Logging.Level = logLevel
	}

	cfg = loaded

	if logFile {
		l, err := logger.NewFileLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Dir)
		if err != nil {
			return err
		}

		log = l
	} else {
		log = logger.New(logger.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Writer: cmd.ErrOrStderr(),
		})
	}

	log.Debug("Configuration loaded", "config", cfg.String())

	return nil
}

func teardown(*cobra.Command, []string) error {
	if log == nil {
		return nil
	}

	return log.Close()
}
