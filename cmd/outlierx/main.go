// Outlierx normalizes and validates sports-betting odds feeds.
//
// Records are read from JSON, CSV or HTTP sources, normalized against a
// declarative schema, validated with per-field rules and sport-specific
// freshness thresholds, and exported with signed validation and summary
// reports.
//
// Usage:
//
//	# Write a starter configuration
//	outlierx config init config.yaml
//
//	# Run the whole pipeline over the configured sources
//	outlierx process --config config.yaml
//
//	# Validate a single file and abort on the first invalid batch
//	outlierx validate --input odds.json --strict
//
//	# List recent runs
//	outlierx history --limit 10
package main

func main() {
	Execute()
}
