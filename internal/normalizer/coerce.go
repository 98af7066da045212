package normalizer

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// toDecimal coerces ints, floats, json.Number and numeric strings.
func toDecimal(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case string:
		s := strings.TrimPrefix(strings.TrimSpace(v), "+")
		if s == "" {
			return decimal.Zero, fmt.Errorf("%w: empty string", ErrNotNumeric)
		}

		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrNotNumeric, v)
		}

		return d, nil
	case json.Number:
		return toDecimal(string(v))
	case nil:
		return decimal.Zero, fmt.Errorf("%w: null", ErrNotNumeric)
	}

	rv := reflect.ValueOf(value)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return decimal.NewFromString(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero, fmt.Errorf("%w: non-finite %v", ErrNotNumeric, f)
		}

		return decimal.NewFromFloat(f), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: type %T", ErrNotNumeric, value)
	}
}

// isNumericKind reports whether value is a Go integer or float.
func isNumericKind(value any) bool {
	if value == nil {
		return false
	}

	switch reflect.ValueOf(value).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}

	return false
}

// toText renders any value as trimmed text.
func toText(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case json.Number:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case time.Time:
		return v.UTC().Format(time.RFC3339), nil
	case fmt.Stringer:
		return strings.TrimSpace(v.String()), nil
	}

	rv := reflect.ValueOf(value)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		data, err := json.Marshal(value)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrNotText, err)
		}

		return string(data), nil
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return "", fmt.Errorf("%w: type %T", ErrNotText, value)
	default:
		return strings.TrimSpace(fmt.Sprint(value)), nil
	}
}

var strftimeTokens = strings.NewReplacer(
	"%Y", "2006",
	"%y", "06",
	"%m", "01",
	"%d", "02",
	"%H", "15",
	"%I", "03",
	"%M", "04",
	"%S", "05",
	"%f", "000000",
	"%p", "PM",
	"%b", "Jan",
	"%B", "January",
	"%a", "Mon",
	"%A", "Monday",
	"%z", "-0700",
	"%Z", "MST",
	"%%", "%",
)

// goLayout accepts either a Go reference layout or a strftime-style format.
func goLayout(format string) string {
	if !strings.Contains(format, "%") {
		return format
	}

	return strftimeTokens.Replace(format)
}
