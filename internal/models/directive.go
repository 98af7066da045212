package models

import (
	"fmt"
	"strings"
)

// TransformKind names a normalization transformation.
type TransformKind string

// Supported transformations.
const (
	TransformTimestamp TransformKind = "timestamp"
	TransformNumeric   TransformKind = "numeric"
	TransformString    TransformKind = "string"
	TransformBoolean   TransformKind = "boolean"
	TransformCurrency  TransformKind = "currency"
	TransformOdds      TransformKind = "odds"
)

// Supported reports whether k is a known transformation.
func (k TransformKind) Supported() bool {
	switch k {
	case TransformTimestamp, TransformNumeric, TransformString, TransformBoolean, TransformCurrency, TransformOdds:
		return true
	}

	return false
}

// StringCase is the case transform applied by the string directive.
type StringCase string

// Case transforms. CaseNone and the empty value leave text untouched.
const (
	CaseNone  StringCase = "none"
	CaseLower StringCase = "lower"
	CaseUpper StringCase = "upper"
	CaseTitle StringCase = "title"
)

// OddsFormat is the representation odds arrive in.
type OddsFormat string

// Odds representations.
const (
	OddsDecimal    OddsFormat = "decimal"
	OddsAmerican   OddsFormat = "american"
	OddsFractional OddsFormat = "fractional"
)

// Defaults shared by the directive kinds.
const (
	DefaultTimestampFormat = "2006-01-02 15:04:05"
	DefaultDecimalPlaces   = 2
	DefaultCurrency        = "USD"
	CurrencyDecimalPlaces  = 2
	OddsDecimalPlaces      = 4
)

// NormalizationDirective is a declarative instruction to transform one field.
// Only the parameters relevant to Kind are read.
type NormalizationDirective struct {
	Rates         map[string]float64 `yaml:"rates,omitempty" json:"rates,omitempty"`
	DecimalPlaces *int               `yaml:"decimal_places,omitempty" json:"decimal_places,omitempty"`
	Field         string             `yaml:"field" json:"field"`
	Kind          TransformKind      `yaml:"kind" json:"kind"`
	Format        string             `yaml:"format,omitempty" json:"format,omitempty"`
	Case          StringCase         `yaml:"case,omitempty" json:"case,omitempty"`
	Currency      string             `yaml:"currency,omitempty" json:"currency,omitempty"`
	OddsFormat    OddsFormat         `yaml:"odds_format,omitempty" json:"odds_format,omitempty"`
}

// Places returns the configured decimal places or the default.
func (d NormalizationDirective) Places() int {
	if d.DecimalPlaces == nil {
		return DefaultDecimalPlaces
	}

	return *d.DecimalPlaces
}

// TimestampFormat returns the configured layout or the default.
func (d NormalizationDirective) TimestampFormat() string {
	if d.Format == "" {
		return DefaultTimestampFormat
	}

	return d.Format
}

// TargetCurrency returns the upper-cased currency tag or the default.
func (d NormalizationDirective) TargetCurrency() string {
	if d.Currency == "" {
		return DefaultCurrency
	}

	return strings.ToUpper(d.Currency)
}

// SourceOddsFormat returns the configured odds format or decimal.
func (d NormalizationDirective) SourceOddsFormat() OddsFormat {
	if d.OddsFormat == "" {
		return OddsDecimal
	}

	return d.OddsFormat
}

// Validate checks that the directive references a known kind with usable
// parameters.
func (d NormalizationDirective) Validate() error {
	if d.Field == "" {
		return ErrMissingFieldName
	}

	switch d.Kind {
	case TransformTimestamp, TransformBoolean:
	case TransformNumeric:
		if d.DecimalPlaces != nil && (*d.DecimalPlaces < 0 || *d.DecimalPlaces > 12) {
			return fmt.Errorf("%w: decimal_places %d for %s", ErrInvalidParameter, *d.DecimalPlaces, d.Field)
		}
	case TransformString:
		switch d.Case {
		case "", CaseNone, CaseLower, CaseUpper, CaseTitle:
		default:
			return fmt.Errorf("%w: case %q for %s", ErrInvalidParameter, d.Case, d.Field)
		}
	case TransformCurrency:
		if len(d.TargetCurrency()) != 3 {
			return fmt.Errorf("%w: currency %q for %s", ErrInvalidParameter, d.Currency, d.Field)
		}

		for code, rate := range d.Rates {
			if rate <= 0 {
				return fmt.Errorf("%w: rate for %s must be positive", ErrInvalidParameter, code)
			}
		}
	case TransformOdds:
		switch d.SourceOddsFormat() {
		case OddsDecimal, OddsAmerican, OddsFractional:
		default:
			return fmt.Errorf("%w: odds_format %q for %s", ErrInvalidParameter, d.OddsFormat, d.Field)
		}
	default:
		return fmt.Errorf("%w: %q for %s", ErrUnknownTransform, d.Kind, d.Field)
	}

	return nil
}
