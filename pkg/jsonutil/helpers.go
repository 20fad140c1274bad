// Package jsonutil provides helpers for working with decoded JSON
// payloads (map[string]any trees) in Vantage.
//
// Scene entities are opaque to the core; these helpers are how the
// core reaches the few fields it does care about (uuid, frames,
// module, references) without committing to a fixed Go struct.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Lookup walks a decoded JSON object along the given keys.
// It returns (nil, false) as soon as a step is missing or is not an object.
func Lookup(v any, path ...string) (any, bool) {
	cur := v
	for _, key := range path {
		obj, ok := AsObject(cur)
		if !ok {
			return nil, false
		}
		next, ok := obj[key]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// AsObject returns v as a JSON object if it is one.
func AsObject(v any) (map[string]any, bool) {
	switch o := v.(type) {
	case map[string]any:
		return o, o != nil
	default:
		return nil, false
	}
}

// AsString returns v as a trimmed, non-empty string.
func AsString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// AsFloat coerces a JSON scalar to a finite float64.
// Numeric strings are accepted; booleans and everything else are not.
func AsFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// AsInt coerces a JSON scalar to an int. Only integral values qualify:
// 3, 3.0 and "3" are accepted, 2.5 and "abc" are not.
func AsInt(v any) (int, bool) {
	f, ok := AsFloat(v)
	if !ok {
		return 0, false
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// AsList returns v as a JSON array.
func AsList(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

// PrettyJSON formats a value as indented JSON for display.
// Returns "null" for values that cannot be marshaled.
func PrettyJSON(v any) string {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "null"
	}
	return string(pretty)
}

// CompactJSON minifies a JSON string by removing whitespace.
func CompactJSON(s string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return s
	}
	return buf.String()
}

// TruncateString cuts s to maxLen runes, ending in "..." when cut.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
