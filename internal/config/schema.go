package config

import "outlierx/internal/models"

// Sports with a stock freshness rule and enum membership.
var Sports = []string{"football", "basketball", "baseball", "hockey"}

// DefaultSchema is the canonical sports-betting record. timestamp is the
// observation time and anchors freshness; event_date may lie in the future.
func DefaultSchema() models.Schema {
	sports := make([]any, len(Sports))
	for i, s := range Sports {
		sports[i] = s
	}

	return models.Schema{
		Fields: []models.FieldSchema{
			{Name: "event_id", Type: models.TypeString},
			{Name: "sport", Type: models.TypeEnum},
			{Name: "event_date", Type: models.TypeTimestamp},
			{Name: "teams", Type: models.TypeString},
			{Name: "odds_provider", Type: models.TypeString},
			{Name: "odds", Type: models.TypeFloat},
			{Name: "line", Type: models.TypeFloat, Nullable: true},
			{Name: "volume", Type: models.TypeFloat, Default: 0.0},
			{Name: "timestamp", Type: models.TypeTimestamp},
			{Name: "data_source", Type: models.TypeString},
		},
		Normalization: []models.NormalizationDirective{
			{Field: "event_id", Kind: models.TransformString},
			{Field: "sport", Kind: models.TransformString, Case: models.CaseLower},
			{Field: "event_date", Kind: models.TransformTimestamp},
			{Field: "teams", Kind: models.TransformString},
			{Field: "odds_provider", Kind: models.TransformString},
			{Field: "odds", Kind: models.TransformOdds, OddsFormat: models.OddsDecimal},
			{Field: "line", Kind: models.TransformNumeric},
			{Field: "volume", Kind: models.TransformCurrency, Currency: models.DefaultCurrency},
			{Field: "timestamp", Kind: models.TransformTimestamp},
			{Field: "data_source", Kind: models.TransformString, Case: models.CaseLower},
		},
		Validation: []models.ValidationRule{
			{Field: "event_id", Kind: models.RuleRequired},
			{Field: "event_id", Kind: models.RulePattern, Pattern: `^[A-Za-z0-9_-]+$`},
			{Field: "event_id", Kind: models.RuleMaxLength, Length: models.Int(64)},
			{Field: "sport", Kind: models.RuleRequired},
			{Field: "sport", Kind: models.RuleEnum, Values: sports},
			{Field: "event_date", Kind: models.RuleRequired},
			{Field: "event_date", Kind: models.RuleType},
			{Field: "teams", Kind: models.RuleRequired},
			{Field: "teams", Kind: models.RuleCustom, Name: "distinct_teams"},
			{Field: "odds_provider", Kind: models.RuleRequired},
			{Field: "odds", Kind: models.RuleRequired},
			{Field: "odds", Kind: models.RuleType},
			{Field: "odds", Kind: models.RuleMinValue, Value: models.Float(1.0)},
			{Field: "line", Kind: models.RuleType},
			{Field: "volume", Kind: models.RuleType},
			{Field: "volume", Kind: models.RuleMinValue, Value: models.Float(0)},
			{Field: "timestamp", Kind: models.RuleRequired},
			{Field: "timestamp", Kind: models.RuleType},
			{Field: "timestamp", Kind: models.RuleFreshness},
			{Field: "data_source", Kind: models.RuleRequired},
		},
	}
}
