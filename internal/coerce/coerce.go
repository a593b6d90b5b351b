// Package coerce turns untrusted request values into typed values with a
// default.
//
// Two sources feed it:
//
//   - decoded JSON bodies, where a field can be missing, null, a number, a
//     string or a bool (Int, Float, String);
//   - form fields, which are always strings (IntString, FloatString).
//
// JSON policy: a "falsy" value (missing, null, false, 0, "") takes the
// default, as does anything that does not parse. Form policy: an empty or
// unparsable string takes the default; an explicit "0" is kept.
package coerce

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Int converts a decoded JSON value to an int. Fractions are truncated and
// out-of-range values saturate at math.MaxInt or math.MinInt.
func Int(v any, def int) int {
	f, ok := number(v)
	if !ok {
		return def
	}
	n := truncate(f)
	if n == 0 {
		return def
	}
	return n
}

// Float converts a decoded JSON value to a float64.
func Float(v any, def float64) float64 {
	f, ok := number(v)
	if !ok || f == 0 {
		return def
	}
	return f
}

// String returns v when it is a non-empty string and def otherwise.
func String(v any, def string) string {
	s, ok := v.(string)
	if !ok || s == "" {
		return def
	}
	return s
}

// IntString parses a form value as an integer. Decimal input ("21.5") is
// truncated rather than rejected.
func IntString(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && finite(f) {
		return truncate(f)
	}
	return def
}

// FloatString parses a form value as a float64.
func FloatString(s string, def float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(f) {
		return def
	}
	return f
}

// number extracts a finite float from any JSON-ish value.
func number(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case bool:
		if x {
			return 1, true
		}
		return 0, false
	case float64:
		return x, finite(x)
	case float32:
		return float64(x), finite(float64(x))
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil && finite(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil && finite(f)
	default:
		return 0, false
	}
}

// truncate drops the fraction of a finite f. Converting a float64 outside the
// int range is implementation-defined in Go, so clamp first.
func truncate(f float64) int {
	switch {
	case f >= math.MaxInt:
		return math.MaxInt
	case f <= math.MinInt:
		return math.MinInt
	}
	return int(math.Trunc(f))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
