package scorecard

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Lookup resolves a dotted path such as "latest.cost.tuition.in_state" against
// a decoded payload. The API returns either nested objects or flattened dotted
// keys depending on the query, so the literal key is tried first and then the
// nested form. A JSON null counts as missing.
func Lookup(payload map[string]any, path string) any {
	if payload == nil || path == "" {
		return nil
	}

	if v, ok := payload[path]; ok && v != nil {
		return v
	}

	var current any = payload
	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[key]
		if !ok {
			return nil
		}
	}
	return current
}

// LookupFirst returns the first non-nil value among the given paths.
func LookupFirst(payload map[string]any, paths ...string) any {
	for _, p := range paths {
		if v := Lookup(payload, p); v != nil {
			return v
		}
	}
	return nil
}

// ToFloat converts a raw payload value to a float. Anything that is not a
// finite number or a numeric string yields nil.
func ToFloat(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// ToInt converts a raw payload value to an int. Floating values are truncated
// toward zero; strings must hold an integer literal.
func ToInt(v any) *int {
	var n int
	switch x := v.(type) {
	case int:
		n = x
	case int32:
		n = int(x)
	case int64:
		if x > math.MaxInt || x < math.MinInt {
			return nil
		}
		n = int(x)
	case uint:
		if x > math.MaxInt {
			return nil
		}
		n = int(x)
	case uint32:
		n = int(x)
	case uint64:
		if x > math.MaxInt {
			return nil
		}
		n = int(x)
	case float64:
		return truncate(x)
	case float32:
		return truncate(float64(x))
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return ToInt(i)
		}
		f, err := x.Float64()
		if err != nil {
			return nil
		}
		return truncate(f)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	return &n
}

func truncate(f float64) *int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	t := math.Trunc(f)
	if t >= math.MaxInt64 || t < math.MinInt64 {
		return nil
	}
	n := int(t)
	return &n
}

// ToString renders scalar payload values as strings. Integral numbers are
// written without a fractional part so identifiers such as unit IDs and zip
// codes keep their natural form.
func ToString(v any) *string {
	var s string
	switch x := v.(type) {
	case string:
		s = strings.TrimSpace(x)
		if s == "" {
			return nil
		}
	case json.Number:
		if i, err := x.Int64(); err == nil {
			s = strconv.FormatInt(i, 10)
		} else if f, err := x.Float64(); err == nil {
			s = formatFloat(f)
		} else {
			return nil
		}
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		s = formatFloat(x)
	case float32:
		s = formatFloat(float64(x))
	case int:
		s = strconv.Itoa(x)
	case int64:
		s = strconv.FormatInt(x, 10)
	case uint64:
		s = strconv.FormatUint(x, 10)
	case bool:
		s = strconv.FormatBool(x)
	default:
		return nil
	}
	return &s
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
