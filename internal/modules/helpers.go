package modules

import (
	"encoding/json"
	"math"

	"github.com/go-faster/errors"
)

// ToJSON marshals any value to a JSON string.
// Used to render envelopes as MCP text content.
func ToJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal response")
	}
	return string(b), nil
}

// ToStringSlice converts []any (from MCP params) to []string.
// Non-string elements are silently skipped.
func ToStringSlice(v []any) []string {
	out := make([]string, 0, len(v))
	for _, item := range v {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Args gives typed access to tool params that already passed CheckTypes.
// A key holding JSON null is treated as absent.
type Args map[string]any

// String returns the string at key, or "" when absent.
func (a Args) String(key string) string {
	s, _ := a[key].(string)
	return s
}

// OptString returns nil when key is absent.
func (a Args) OptString(key string) *string {
	s, ok := a[key].(string)
	if !ok {
		return nil
	}
	return &s
}

// OptBool returns nil when key is absent.
func (a Args) OptBool(key string) *bool {
	b, ok := a[key].(bool)
	if !ok {
		return nil
	}
	return &b
}

// Strings returns the string array at key and whether it was supplied.
func (a Args) Strings(key string) ([]string, bool) {
	v, ok := a[key].([]any)
	if !ok {
		return nil, false
	}
	return ToStringSlice(v), true
}

// Value returns the raw value at key; nil counts as absent.
func (a Args) Value(key string) (any, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Int returns the integer at key. Fractional values and values outside the
// int range report false.
func (a Args) Int(key string) (int, bool) {
	var f float64
	switch v := a[key].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			if int64(int(n)) != n {
				return 0, false
			}
			return int(n), true
		}
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = v
	default:
		return 0, false
	}
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int(f), true
}
