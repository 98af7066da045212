package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outlierx/internal/config"
	"outlierx/internal/pipeline"
)

// execute runs the command tree with args and returns stdout. Flag values
// are reset first since cobra keeps them in package variables.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	resetFlags(rootCmd)

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()

	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}

		f.Changed = false
	}

	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)

	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func writeOdds(t *testing.T, dir string) string {
	t.Helper()

	recs := []map[string]any{
		{
			"event_id": "nba-1", "sport": "Basketball", "event_date": "2024-06-05 19:30:00",
			"teams": "Lakers vs Celtics", "odds_provider": "Pinnacle", "odds": 1.91,
			"line": -3.5, "volume": "$1,250.00", "timestamp": "2024-06-01 10:00:00", "data_source": "API",
		},
		{
			"event_id": "ipl-7", "sport": "Cricket", "event_date": "2024-06-05 14:00:00",
			"teams": "Mumbai vs Chennai", "odds_provider": "Pinnacle", "odds": 2.05,
			"line": nil, "volume": "300", "timestamp": "2024-06-01 10:00:00", "data_source": "API",
		},
	}

	data, err := json.Marshal(recs)
	require.NoError(t, err)

	path := filepath.Join(dir, "odds.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	return path
}

// writeConfig saves a default configuration rooted in dir.
func writeConfig(t *testing.T, dir string) string {
	t.Helper()

	c := config.Default()
	c.Output.Dir = filepath.Join(dir, "processed")
	c.Logging.Dir = filepath.Join(dir, "logs")
	c.Store = config.StoreConfig{Enabled: true, Path: filepath.Join(dir, "outlierx.db")}
	c.Metrics = config.MetricsConfig{Enabled: true, Textfile: filepath.Join(dir, "outlierx.prom")}

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, c.SaveConfig(path))

	return path
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote default configuration")

	_, err = execute(t, "config", "init", path)
	require.ErrorIs(t, err, errConfigExists)

	_, err = execute(t, "config", "init", path, "--force")
	require.NoError(t, err)

	loaded, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Len(t, loaded.Schema.Fields, len(config.Default().Schema.Fields))

	out, err = execute(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Fields: 10")
}

func TestNormalizeValidateVerify(t *testing.T) {
	dir := t.TempDir()
	input := writeOdds(t, dir)
	normalized := filepath.Join(dir, "normalized.json")
	reportPath := filepath.Join(dir, "validation.txt")

	out, err := execute(t, "normalize", "--input", input, "--output", normalized)
	require.NoError(t, err)
	assert.Contains(t, out, "Normalized 2 records")

	var rows []map[string]any
	data, err := os.ReadFile(normalized)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &rows))
	assert.Equal(t, "basketball", rows[0]["sport"])

	out, err = execute(t, "validate", "--input", normalized, "--output", reportPath)
	require.NoError(t, err, "lenient by default")
	assert.Contains(t, out, "VALIDATION REPORT")

	_, err = execute(t, "validate", "--input", normalized, "--strict")
	require.ErrorIs(t, err, pipeline.ErrStrictModeViolation)

	out, err = execute(t, "report", "verify", reportPath)
	require.NoError(t, err)
	assert.Contains(t, out, "signature valid")
	assert.Contains(t, out, "Valid:     false")

	signed, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(reportPath, append([]byte("tampered\n"), signed...), 0o644))

	_, err = execute(t, "report", "verify", reportPath)
	require.Error(t, err)
}

func TestProcessAndHistory(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	input := writeOdds(t, dir)

	out, err := execute(t, "process", "--config", cfgPath, "--path", input)
	require.NoError(t, err)
	assert.Contains(t, out, "invalid")
	assert.FileExists(t, filepath.Join(dir, "processed", "processed_data.json"))
	assert.FileExists(t, filepath.Join(dir, "processed", "summary_report.txt"))
	assert.FileExists(t, filepath.Join(dir, "outlierx.prom"))

	out, err = execute(t, "process", "--config", cfgPath, "--path", input, "--strict")
	require.ErrorIs(t, err, pipeline.ErrStrictModeViolation)
	assert.Contains(t, out, "Run ")

	out, err = execute(t, "history", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Run ID")
	assert.Contains(t, out, "invalid")
}

func TestReport(t *testing.T) {
	dir := t.TempDir()
	input := writeOdds(t, dir)

	out, err := execute(t, "report", "--input", input, "--columns", "odds,sport")
	require.NoError(t, err)
	assert.Contains(t, out, "DATA QUALITY REPORT")
	assert.Contains(t, out, "Total Columns: 2")
}

func TestIngest(t *testing.T) {
	dir := t.TempDir()
	input := writeOdds(t, dir)
	output := filepath.Join(dir, "merged.csv")

	out, err := execute(t, "ingest", "--path", input, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "1 source(s) reachable")

	_, err = execute(t, "ingest", "--path", input)
	require.ErrorIs(t, err, errMissingOutput)

	out, err = execute(t, "ingest", "--path", input, "--output", output)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 2 records")
	assert.FileExists(t, output)

	_, err = execute(t, "ingest", "--source", "api")
	require.ErrorIs(t, err, errMissingPath)
}
