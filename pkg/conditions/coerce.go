package conditions

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// toNumber converts a payload value to a float64 the way loosely typed
// upstream producers expect: numeric strings parse, booleans are 0/1 and
// anything else is NaN.
func toNumber(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int8:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint8:
		return float64(v)
	case uint16:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return math.NaN()
		}

		return f
	case bool:
		if v {
			return 1
		}

		return 0
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0
		}

		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}

		return f
	default:
		return math.NaN()
	}
}

func isNumeric(value any) bool {
	switch value.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		return true
	default:
		return false
	}
}

// toString renders a value for substring tests. Lists join their elements
// with commas so CONTAINS works as a membership test on tag lists.
func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = toString(item)
		}

		return strings.Join(parts, ",")
	case map[string]any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}

		return string(encoded)
	default:
		if isNumeric(v) {
			return strconv.FormatFloat(toNumber(v), 'f', -1, 64)
		}

		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}

		return string(encoded)
	}
}

// looseEqual compares two scalars, coercing across string, number and bool.
// Lists and objects are never loosely equal to anything.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if !isScalar(a) || !isScalar(b) {
		return false
	}

	as, aIsString := a.(string)
	bs, bIsString := b.(string)

	if aIsString && bIsString {
		return as == bs
	}

	x, y := toNumber(a), toNumber(b)

	return !math.IsNaN(x) && !math.IsNaN(y) && x == y
}

func isScalar(value any) bool {
	switch value.(type) {
	case string, bool:
		return true
	default:
		return isNumeric(value)
	}
}
