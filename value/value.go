// Package value defines how attribute values are converted and ordered.
//
// Attribute values are strings or numbers. A value is numeric when it is a Go
// number or a string holding a decimal numeral ("30", "-2.5", "1e3"). Numeric
// values order numerically and before every non-numeric value; non-numeric
// values order lexicographically by their string form. The order is total, so
// it can back a search tree even when one attribute mixes numbers and text.
package value

import (
	"cmp"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var numeral = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// Number reports whether v is numeric and returns its float value.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		return ParseNumber(n)
	}
	return 0, false
}

// ParseNumber parses s when it is a plain decimal numeral. Words accepted by
// strconv like "Inf" or "NaN" are not numbers here.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !numeral.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// String renders v the way it takes part in string comparisons. A missing
// value (nil) is the empty string.
func String(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	}
	if f, ok := Number(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// Normalize maps decoded values onto the two attribute kinds: every Go number
// becomes float64, strings and nil are kept, anything else is stringified.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil, string, float64:
		return t
	case bool:
		return strconv.FormatBool(t)
	}
	if f, ok := Number(v); ok {
		if _, isString := v.(string); !isString {
			return f
		}
	}
	return fmt.Sprint(v)
}

// NormalizeMap applies Normalize to every attribute of m, in place.
func NormalizeMap(m map[string]any) map[string]any {
	for k, v := range m {
		m[k] = Normalize(v)
	}
	return m
}

// Compare orders a and b: -1, 0 or +1.
func Compare(a, b any) int {
	fa, aNumeric := Number(a)
	fb, bNumeric := Number(b)
	switch {
	case aNumeric && bNumeric:
		return cmp.Compare(fa, fb)
	case aNumeric:
		return -1
	case bNumeric:
		return 1
	}
	return strings.Compare(String(a), String(b))
}

func Equal(a, b any) bool {
	return Compare(a, b) == 0
}
