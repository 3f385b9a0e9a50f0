package policy

import (
	"fmt"
	"strings"
)

// lookupPath resolves a dotted path ("metric_validity.required_fields_present")
// against a decoded JSON body. Every traversal failure reports absence rather
// than panicking; the caller turns absence into a violation where the policy
// demands presence.
func lookupPath(body map[string]any, path string) (any, bool) {
	if body == nil || path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	var current any = body
	for _, part := range parts {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// stringify renders any JSON value for comparison against policy enums.
func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// asFloat accepts the numeric shapes both JSON and YAML decoding produce.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// asStringSlice coerces a decoded JSON array into strings.
func asStringSlice(v any) ([]string, bool) {
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		out = append(out, stringify(item))
	}
	return out, true
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func containsString(list []string, s string) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}

// firstNonEmpty picks the configured field name or its default.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
