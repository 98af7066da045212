package normalizer

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"outlierx/internal/models"
)

// MaxCurrencyAmount bounds the magnitude of a normalized currency amount.
const MaxCurrencyAmount = 1e12

var booleanWords = map[string]bool{
	"true": true, "yes": true, "1": true, "on": true,
	"false": false, "no": false, "0": false, "off": false,
}

var currencySymbols = map[string]string{"$": "USD", "€": "EUR", "£": "GBP"}

// Transformer applies one directive to one value. It holds only immutable
// state and is safe for concurrent use.
type Transformer struct {
	currencyPattern *regexp.Regexp
}

// NewTransformer creates a new transformer instance.
func NewTransformer() *Transformer {
	return &Transformer{
		currencyPattern: regexp.MustCompile(`^([-+]?)\s*([A-Za-z]{3}|[$€£])?\s*([-+]?(?:\d[\d,]*)?(?:\.\d+)?)\s*([A-Za-z]{3}|[$€£])?$`),
	}
}

var defaultTransformer = NewTransformer()

// NormalizeField applies directive d to value. The result depends only on the
// value and the directive.
func NormalizeField(value any, field string, d models.NormalizationDirective) (any, error) {
	return defaultTransformer.Transform(value, field, d)
}

// Transform converts value according to d. Failures are *NormalizationError,
// or *UnsupportedTransformationError for an unknown kind.
func (t *Transformer) Transform(value any, field string, d models.NormalizationDirective) (any, error) {
	var (
		out any
		err error
	)

	switch d.Kind {
	case models.TransformTimestamp:
		out, err = t.timestamp(value, d.TimestampFormat())
	case models.TransformNumeric:
		out, err = t.numeric(value, d.Places())
	case models.TransformString:
		out, err = t.text(value, d.Case)
	case models.TransformBoolean:
		out, err = t.boolean(value)
	case models.TransformCurrency:
		out, err = t.currency(value, d)
	case models.TransformOdds:
		out, err = t.odds(value, d.SourceOddsFormat())
	default:
		return nil, &UnsupportedTransformationError{Field: field, Kind: d.Kind}
	}

	if err != nil {
		return nil, fieldError(field, d.Kind, value, err)
	}

	return out, nil
}

func (t *Transformer) timestamp(value any, format string) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return v.UTC(), nil
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range []string{goLayout(format), time.RFC3339Nano} {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC(), nil
			}
		}

		return nil, fmt.Errorf("%w: %q does not match %q", ErrNotTimestamp, v, format)
	case json.Number:
		return t.timestamp(epochFloat(string(v)), format)
	}

	rv := reflect.ValueOf(value)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return epochTime(float64(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return epochTime(float64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return epochTime(rv.Float())
	default:
		return nil, fmt.Errorf("%w: type %T", ErrNotTimestamp, value)
	}
}

// Unix seconds accepted as epochs: 1900-01-01 through 9999-12-31.
const (
	minEpochSeconds = -2208988800
	maxEpochSeconds = 253402300799
)

// epochTime converts Unix seconds, rejecting values outside the epoch range.
func epochTime(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: non-finite epoch", ErrNotTimestamp)
	}

	if f < minEpochSeconds || f > maxEpochSeconds {
		return nil, fmt.Errorf("%w: epoch %v out of range", ErrNotTimestamp, f)
	}

	sec, frac := math.Modf(f)

	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC(), nil
}

// epochFloat turns a json.Number into a float64, or keeps it as text so the
// caller reports it as unparseable.
func epochFloat(s string) any {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}

	f, _ := d.Float64()

	return f
}

func (t *Transformer) numeric(value any, places int) (any, error) {
	if value == nil {
		return nil, nil
	}

	d, err := toDecimal(value)
	if err != nil {
		return nil, err
	}

	rounded := d.RoundBank(int32(places))
	if places == 0 {
		return rounded.IntPart(), nil
	}

	f, _ := rounded.Float64()

	return f, nil
}

func (t *Transformer) text(value any, c models.StringCase) (any, error) {
	if value == nil {
		return nil, nil
	}

	s, err := toText(value)
	if err != nil {
		return nil, err
	}

	switch c {
	case models.CaseLower:
		return strings.ToLower(s), nil
	case models.CaseUpper:
		return strings.ToUpper(s), nil
	case models.CaseTitle:
		return cases.Title(language.Und).String(s), nil
	default:
		return s, nil
	}
}

func (t *Transformer) boolean(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	case string:
		if b, ok := booleanWords[strings.ToLower(strings.TrimSpace(v))]; ok {
			return b, nil
		}

		return nil, fmt.Errorf("%w: %q", ErrNotBoolean, v)
	}

	if isNumericKind(value) || isJSONNumber(value) {
		d, err := toDecimal(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotBoolean, err)
		}

		return !d.IsZero(), nil
	}

	return nil, fmt.Errorf("%w: type %T", ErrNotBoolean, value)
}

func isJSONNumber(value any) bool {
	_, ok := value.(json.Number)

	return ok
}

func (t *Transformer) currency(value any, d models.NormalizationDirective) (any, error) {
	if value == nil {
		return nil, nil
	}

	target := d.TargetCurrency()
	tag := target

	var (
		amount decimal.Decimal
		err    error
	)

	if s, ok := value.(string); ok {
		amount, tag, err = t.parseMoney(s, target)
	} else {
		amount, err = toDecimal(value)
	}

	if err != nil {
		return nil, err
	}

	// Amounts in a currency without a configured rate pass through as-is.
	if tag != target {
		if rate, ok := lookupRate(d.Rates, tag); ok {
			amount = amount.Mul(decimal.NewFromFloat(rate))
		}
	}

	if amount.Abs().GreaterThan(decimal.NewFromFloat(MaxCurrencyAmount)) {
		return nil, fmt.Errorf("%w: %s", ErrCurrencyRange, amount)
	}

	f, _ := amount.RoundBank(models.CurrencyDecimalPlaces).Float64()

	return f, nil
}

// parseMoney splits "€12.50", "-$5", "12.50 EUR" or "1,200" into amount and
// tag. A sign may sit before the symbol or before the digits, not both.
func (t *Transformer) parseMoney(s, target string) (decimal.Decimal, string, error) {
	m := t.currencyPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil || m[3] == "" || strings.Trim(m[3], "+-") == "" {
		return decimal.Zero, "", fmt.Errorf("%w: %q", ErrNotNumeric, s)
	}

	number := m[3]
	if m[1] != "" {
		if strings.ContainsAny(number[:1], "+-") {
			return decimal.Zero, "", fmt.Errorf("%w: %q", ErrNotNumeric, s)
		}

		number = m[1] + number
	}

	prefix, suffix := currencyTag(m[2]), currencyTag(m[4])
	if prefix != "" && suffix != "" && prefix != suffix {
		return decimal.Zero, "", fmt.Errorf("%w: %q", ErrCurrencyMismatch, s)
	}

	tag := target
	if prefix != "" {
		tag = prefix
	} else if suffix != "" {
		tag = suffix
	}

	amount, err := toDecimal(strings.ReplaceAll(number, ",", ""))
	if err != nil {
		return decimal.Zero, "", err
	}

	return amount, tag, nil
}

func currencyTag(raw string) string {
	if raw == "" {
		return ""
	}

	if code, ok := currencySymbols[raw]; ok {
		return code
	}

	return strings.ToUpper(raw)
}

func lookupRate(rates map[string]float64, code string) (float64, bool) {
	for k, v := range rates {
		if strings.EqualFold(k, code) {
			return v, true
		}
	}

	return 0, false
}

func (t *Transformer) odds(value any, format models.OddsFormat) (any, error) {
	if value == nil {
		return nil, nil
	}

	o, err := toDecimalOdds(value, format)
	if err != nil {
		return nil, err
	}

	return o, nil
}
