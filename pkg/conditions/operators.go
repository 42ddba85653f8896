package conditions

import (
	"math"
	"strings"

	"github.com/dukex/autoflow/pkg/models"
)

// OperatorFunc decides a condition given the resolved payload value (found is
// false when the path was absent) and the condition's configured value.
type OperatorFunc func(actual any, found bool, expected any) bool

func defaultOperators() map[models.Operator]OperatorFunc {
	return map[models.Operator]OperatorFunc{
		models.OperatorEquals:             equals,
		models.OperatorNotEquals:          negate(equals),
		models.OperatorContains:           contains,
		models.OperatorNotContains:        negate(contains),
		models.OperatorGreaterThan:        compare(func(x, y float64) bool { return x > y }),
		models.OperatorLessThan:           compare(func(x, y float64) bool { return x < y }),
		models.OperatorGreaterThanOrEqual: compare(func(x, y float64) bool { return x >= y }),
		models.OperatorLessThanOrEqual:    compare(func(x, y float64) bool { return x <= y }),
		models.OperatorIsEmpty:            isEmpty,
		models.OperatorIsNotEmpty:         negate(isEmpty),
	}
}

func equals(actual any, found bool, expected any) bool {
	if !found {
		return expected == nil
	}

	return looseEqual(actual, expected)
}

func contains(actual any, found bool, expected any) bool {
	if !found || actual == nil {
		return false
	}

	return strings.Contains(toString(actual), toString(expected))
}

// compare treats absent and null operands as NaN so every comparison on them
// is false.
func compare(cmp func(x, y float64) bool) OperatorFunc {
	return func(actual any, found bool, expected any) bool {
		if !found || actual == nil || expected == nil {
			return false
		}

		x, y := toNumber(actual), toNumber(expected)
		if math.IsNaN(x) || math.IsNaN(y) {
			return false
		}

		return cmp(x, y)
	}
}

func isEmpty(actual any, found bool, _ any) bool {
	if !found || actual == nil {
		return true
	}

	s, ok := actual.(string)

	return ok && s == ""
}

func negate(op OperatorFunc) OperatorFunc {
	return func(actual any, found bool, expected any) bool {
		return !op(actual, found, expected)
	}
}
