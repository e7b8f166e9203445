package evaluator

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"mercator-hq/janus/pkg/rules"
)

// evaluateOperator evaluates one condition operator against the actual
// context value and the expected rule value.
func evaluateOperator(op rules.Operator, actual, expected interface{}) (bool, error) {
	switch op {
	case rules.OperatorEqual:
		return valuesEqual(actual, expected), nil

	case rules.OperatorNotEqual:
		return !valuesEqual(actual, expected), nil

	case rules.OperatorLessThan:
		a, b, err := toNumeric(actual, expected)
		return err == nil && a < b, err

	case rules.OperatorGreaterThan:
		a, b, err := toNumeric(actual, expected)
		return err == nil && a > b, err

	case rules.OperatorLessEqual:
		a, b, err := toNumeric(actual, expected)
		return err == nil && a <= b, err

	case rules.OperatorGreaterEqual:
		a, b, err := toNumeric(actual, expected)
		return err == nil && a >= b, err

	case rules.OperatorContains:
		return evaluateContains(actual, expected)

	case rules.OperatorMatches:
		return evaluateMatches(actual, expected)

	case rules.OperatorStartsWith:
		a, b, err := toStrings(actual, expected, "starts_with")
		return err == nil && strings.HasPrefix(a, b), err

	case rules.OperatorEndsWith:
		a, b, err := toStrings(actual, expected, "ends_with")
		return err == nil && strings.HasSuffix(a, b), err

	case rules.OperatorIn:
		return evaluateIn(actual, expected)

	case rules.OperatorNotIn:
		in, err := evaluateIn(actual, expected)
		return !in && err == nil, err

	default:
		return false, fmt.Errorf("unknown operator: %q", op)
	}
}

// valuesEqual compares two values, trying numeric comparison first so
// int and float representations of the same number compare equal.
func valuesEqual(actual, expected interface{}) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}
	if a, aerr := toFloat64(actual); aerr == nil {
		if b, berr := toFloat64(expected); berr == nil {
			return a == b
		}
	}
	return reflect.DeepEqual(actual, expected)
}

// evaluateContains checks substring containment for strings, element
// containment for slices.
func evaluateContains(actual, expected interface{}) (bool, error) {
	if actualStr, ok := toString(actual); ok {
		expectedStr, ok := toString(expected)
		if !ok {
			return false, fmt.Errorf("contains requires a string expected value")
		}
		return strings.Contains(actualStr, expectedStr), nil
	}

	val := reflect.ValueOf(actual)
	if val.Kind() != reflect.Slice && val.Kind() != reflect.Array {
		return false, fmt.Errorf("contains requires a string or slice actual value, got %T", actual)
	}
	for i := 0; i < val.Len(); i++ {
		if valuesEqual(val.Index(i).Interface(), expected) {
			return true, nil
		}
	}
	return false, nil
}

// evaluateMatches checks a regex match. An invalid pattern is an
// evaluation error, which the evaluator treats as a non-match.
func evaluateMatches(actual, expected interface{}) (bool, error) {
	actualStr, ok := toString(actual)
	if !ok {
		return false, fmt.Errorf("matches requires a string actual value, got %T", actual)
	}
	pattern, ok := expected.(string)
	if !ok {
		return false, fmt.Errorf("matches requires a string pattern, got %T", expected)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re.MatchString(actualStr), nil
}

// evaluateIn checks membership of actual in the expected list.
func evaluateIn(actual, expected interface{}) (bool, error) {
	val := reflect.ValueOf(expected)
	if val.Kind() != reflect.Slice && val.Kind() != reflect.Array {
		return false, fmt.Errorf("in requires a list expected value, got %T", expected)
	}
	for i := 0; i < val.Len(); i++ {
		if valuesEqual(actual, val.Index(i).Interface()) {
			return true, nil
		}
	}
	return false, nil
}

func toStrings(actual, expected interface{}, op string) (string, string, error) {
	a, ok := toString(actual)
	if !ok {
		return "", "", fmt.Errorf("%s requires a string actual value, got %T", op, actual)
	}
	b, ok := toString(expected)
	if !ok {
		return "", "", fmt.Errorf("%s requires a string expected value, got %T", op, expected)
	}
	return a, b, nil
}

func toString(v interface{}) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case fmt.Stringer:
		return val.String(), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return "", false
	}
}

func toNumeric(actual, expected interface{}) (float64, float64, error) {
	a, err := toFloat64(actual)
	if err != nil {
		return 0, 0, fmt.Errorf("cannot convert actual value: %w", err)
	}
	b, err := toFloat64(expected)
	if err != nil {
		return 0, 0, fmt.Errorf("cannot convert expected value: %w", err)
	}
	return a, b, nil
}

func toFloat64(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int8:
		return float64(val), nil
	case int16:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case uint8:
		return float64(val), nil
	case uint16:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case string:
		return strconv.ParseFloat(val, 64)
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}
