package normalizer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"outlierx/internal/models"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// evenMoney spellings accepted for american and fractional odds.
var evenMoney = map[string]bool{"even": true, "evens": true, "evs": true, "ev": true}

// AmericanToDecimal converts moneyline odds (+150, -200) to decimal odds.
func AmericanToDecimal(value any) (decimal.Decimal, error) {
	if s, ok := value.(string); ok && evenMoney[strings.ToLower(strings.TrimSpace(s))] {
		return decimal.NewFromInt(2), nil
	}

	a, err := toDecimal(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", ErrOddsFormat, err)
	}

	if a.Abs().LessThan(hundred) {
		return decimal.Zero, fmt.Errorf("%w: american odds must be <= -100 or >= +100, got %s", ErrOddsFormat, a)
	}

	if a.IsPositive() {
		return one.Add(a.Div(hundred)), nil
	}

	return one.Add(hundred.Div(a.Abs())), nil
}

// FractionalToDecimal converts "n/d" odds, or a bare ratio, to decimal odds.
func FractionalToDecimal(value any) (decimal.Decimal, error) {
	s, isString := value.(string)
	if !isString {
		ratio, err := toDecimal(value)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %w", ErrOddsFormat, err)
		}

		return one.Add(ratio), nil
	}

	s = strings.TrimSpace(s)
	if evenMoney[strings.ToLower(s)] {
		return decimal.NewFromInt(2), nil
	}

	num, den, found := strings.Cut(s, "/")
	if !found {
		ratio, err := toDecimal(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrOddsFormat, s)
		}

		return one.Add(ratio), nil
	}

	n, err := toDecimal(num)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: numerator %q", ErrOddsFormat, num)
	}

	d, err := toDecimal(den)
	if err != nil || d.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: denominator %q", ErrOddsFormat, den)
	}

	return one.Add(n.Div(d)), nil
}

// DecimalToAmerican converts decimal odds back to moneyline odds rounded to a
// whole number.
func DecimalToAmerican(odds float64) (int64, error) {
	d := decimal.NewFromFloat(odds)
	if d.LessThanOrEqual(one) {
		return 0, fmt.Errorf("%w: %v has no moneyline equivalent", ErrOddsDomain, odds)
	}

	profit := d.Sub(one)
	if d.GreaterThanOrEqual(decimal.NewFromInt(2)) {
		return profit.Mul(hundred).RoundBank(0).IntPart(), nil
	}

	return hundred.Div(profit).Neg().RoundBank(0).IntPart(), nil
}

// toDecimalOdds resolves a raw value in the given format to canonical odds.
func toDecimalOdds(value any, format models.OddsFormat) (models.DecimalOdds, error) {
	if o, ok := value.(models.DecimalOdds); ok {
		return o, nil
	}

	var (
		d   decimal.Decimal
		err error
	)

	switch format {
	case models.OddsAmerican:
		d, err = AmericanToDecimal(value)
	case models.OddsFractional:
		d, err = FractionalToDecimal(value)
	default:
		d, err = toDecimal(value)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrOddsFormat, err)
		}
	}

	if err != nil {
		return 0, err
	}

	if d.LessThan(one) {
		return 0, fmt.Errorf("%w: %s", ErrOddsDomain, d)
	}

	f, _ := d.RoundBank(models.OddsDecimalPlaces).Float64()

	return models.DecimalOdds(f), nil
}
