package validator

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"outlierx/internal/models"
)

// compiledRule is a rule with its pattern and predicate resolved once.
type compiledRule struct {
	pattern   *regexp.Regexp
	predicate models.Predicate
	rule      models.ValidationRule
	field     models.FieldSchema
}

// evaluate applies one rule. It never panics on malformed input.
func (v *Validator) evaluate(value any, cr compiledRule, sport string) FieldResult {
	r := cr.rule
	res := newFieldResult(r.Field, r.Kind, value)

	switch r.Kind {
	case models.RuleRequired:
		if isBlank(value) {
			res.fail("required field '%s' is null or empty", r.Field)
		}
	case models.RuleType:
		checkType(&res, value, cr.field)
	case models.RuleMinValue, models.RuleMaxValue:
		checkBound(&res, value, r)
	case models.RuleMinLength, models.RuleMaxLength:
		checkLength(&res, value, r)
	case models.RulePattern:
		checkPattern(&res, value, cr.pattern, r)
	case models.RuleEnum:
		checkEnum(&res, value, r, cr.field.Nullable)
	case models.RuleCustom:
		checkCustom(&res, value, cr.predicate, r)
	case models.RuleFreshness:
		v.checkFreshness(&res, value, sport)
	default:
		res.fail("unknown rule kind %q for field '%s'", r.Kind, r.Field)
	}

	return res
}

func isBlank(value any) bool {
	if value == nil {
		return true
	}

	s, ok := value.(string)

	return ok && strings.TrimSpace(s) == ""
}

func checkType(res *FieldResult, value any, fs models.FieldSchema) {
	if value == nil {
		if !fs.Nullable {
			res.fail("field '%s' is null, expected %s", res.Field, fs.Type)
		}

		return
	}

	if !matchesType(value, fs.Type) {
		res.fail("field '%s' has type %s, expected %s", res.Field, typeName(value), fs.Type)
	}
}

func matchesType(value any, t models.FieldType) bool {
	if n, ok := value.(json.Number); ok {
		switch t {
		case models.TypeFloat:
			_, err := n.Float64()
			return err == nil
		case models.TypeInteger:
			_, err := n.Int64()
			return err == nil
		default:
			return false
		}
	}

	if _, ok := value.(time.Time); ok {
		return t == models.TypeTimestamp
	}

	kind := reflect.ValueOf(value).Kind()

	switch t {
	case models.TypeString:
		return kind == reflect.String
	case models.TypeInteger:
		return isIntKind(kind)
	case models.TypeFloat:
		return isIntKind(kind) || kind == reflect.Float32 || kind == reflect.Float64
	case models.TypeBoolean:
		return kind == reflect.Bool
	case models.TypeEnum:
		return kind == reflect.String || kind == reflect.Bool || isIntKind(kind) ||
			kind == reflect.Float32 || kind == reflect.Float64
	case models.TypeObject:
		return kind == reflect.Map || kind == reflect.Slice || kind == reflect.Array || kind == reflect.Struct
	default:
		return false
	}
}

func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}

	return false
}

func typeName(value any) string {
	if value == nil {
		return "null"
	}

	return fmt.Sprintf("%T", value)
}

// toFloat reports the numeric value of ints, floats and json.Number. Numeric
// strings are not parsed.
func toFloat(value any) (float64, bool) {
	if n, ok := value.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}

	if value == nil {
		return 0, false
	}

	rv := reflect.ValueOf(value)

	switch {
	case rv.CanInt():
		return float64(rv.Int()), true
	case rv.CanUint():
		return float64(rv.Uint()), true
	case rv.CanFloat():
		f := rv.Float()
		return f, !math.IsNaN(f)
	default:
		return 0, false
	}
}

func checkBound(res *FieldResult, value any, r models.ValidationRule) {
	if value == nil {
		return
	}

	n, ok := toFloat(value)
	if !ok {
		res.fail("field '%s': cannot compare type %s against rule %s", res.Field, typeName(value), r.Kind)
		return
	}

	limit := *r.Value

	if r.Kind == models.RuleMinValue && n < limit {
		res.fail("field '%s' value %v below minimum %v", res.Field, n, limit)
	}

	if r.Kind == models.RuleMaxValue && n > limit {
		res.fail("field '%s' value %v above maximum %v", res.Field, n, limit)
	}
}

func checkLength(res *FieldResult, value any, r models.ValidationRule) {
	if value == nil {
		return
	}

	var length int

	if s, ok := value.(string); ok {
		length = utf8.RuneCountInString(s)
	} else {
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map:
			length = rv.Len()
		default:
			res.fail("field '%s': cannot compare type %s against rule %s", res.Field, typeName(value), r.Kind)
			return
		}
	}

	limit := *r.Length

	if r.Kind == models.RuleMinLength && length < limit {
		res.fail("field '%s' length %d below minimum %d", res.Field, length, limit)
	}

	if r.Kind == models.RuleMaxLength && length > limit {
		res.fail("field '%s' length %d above maximum %d", res.Field, length, limit)
	}
}

func checkPattern(res *FieldResult, value any, re *regexp.Regexp, r models.ValidationRule) {
	if value == nil {
		return
	}

	if re == nil {
		compiled, err := compilePattern(r)
		if err != nil {
			res.fail("field '%s': invalid pattern %q: %v", res.Field, r.Pattern, err)
			return
		}

		re = compiled
	}

	s := stringForm(value)
	if !re.MatchString(s) {
		res.fail("field '%s' value '%s' does not match pattern '%s'", res.Field, s, r.Pattern)
	}
}

func compilePattern(r models.ValidationRule) (*regexp.Regexp, error) {
	if r.FullMatch {
		return regexp.Compile(`^(?:` + r.Pattern + `)$`)
	}

	return regexp.Compile(r.Pattern)
}

// stringForm renders a value the way pattern rules see it.
func stringForm(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case models.DecimalOdds:
		return strconv.FormatFloat(float64(v), 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func checkEnum(res *FieldResult, value any, r models.ValidationRule, nullable bool) {
	if value == nil && nullable {
		return
	}

	for _, allowed := range r.Values {
		if sameValue(value, allowed) {
			return
		}
	}

	res.fail("field '%s' value '%v' not in allowed values: %v", res.Field, value, r.Values)
}

// sameValue compares numbers by value across Go types and everything else
// structurally.
func sameValue(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}

		return false
	}

	return reflect.DeepEqual(a, b)
}

func checkCustom(res *FieldResult, value any, pred models.Predicate, r models.ValidationRule) {
	if pred == nil {
		res.fail("field '%s': no predicate registered as %q", res.Field, r.Name)
		return
	}

	ok, failure := callPredicate(pred, value, r)
	if failure != nil {
		res.fail("%v", failure)
		return
	}

	if !ok {
		if r.Name != "" {
			res.fail("custom validation %s failed for field '%s'", r.Name, res.Field)
		} else {
			res.fail("custom validation failed for field '%s'", res.Field)
		}
	}
}

// callPredicate runs pred, converting a panic into a CustomRuleFailure.
func callPredicate(pred models.Predicate, value any, r models.ValidationRule) (ok bool, failure *CustomRuleFailure) {
	defer func() {
		if p := recover(); p != nil {
			ok = false
			failure = &CustomRuleFailure{Field: r.Field, Name: r.Name, Cause: p}
		}
	}()

	return pred(value), nil
}

func (v *Validator) checkFreshness(res *FieldResult, value any, sport string) {
	if value == nil {
		return
	}

	ts, ok := value.(time.Time)
	if !ok {
		res.fail("field '%s': cannot compare type %s against rule %s", res.Field, typeName(value), models.RuleFreshness)
		return
	}

	errMsg, warnMsg := v.freshness.Check(res.Field, ts, v.now(), sport)
	if errMsg != "" {
		res.fail("%s", errMsg)
	}

	if warnMsg != "" {
		res.warn("%s", warnMsg)
	}
}
