package graphql

import (
	"encoding/json"
	"strconv"
)

// Argument extraction helpers. Arguments arrive already coerced against the
// schema, but numeric values can surface as int64, float64 or json.Number
// depending on whether they came from a literal or a variable.

// StringArg extracts a string argument.
// Returns empty string if the argument is absent or not a string.
func StringArg(args map[string]any, name string) string {
	if s, ok := args[name].(string); ok {
		return s
	}
	return ""
}

// OptionalStringArg extracts a nullable string argument.
// The second return is false when the argument is absent or null.
func OptionalStringArg(args map[string]any, name string) (string, bool) {
	val, exists := args[name]
	if !exists || val == nil {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}

// IntArg extracts an int argument.
// Returns 0 if the argument is absent or not numeric.
func IntArg(args map[string]any, name string) int {
	switch v := args[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
	case string:
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return 0
}

// StringListArg extracts a list-of-strings argument. A single string value
// is accepted as a one-element list, matching GraphQL input coercion.
// Returns nil when the argument is absent or null.
func StringListArg(args map[string]any, name string) []string {
	val, exists := args[name]
	if !exists || val == nil {
		return nil
	}

	switch v := val.(type) {
	case []string:
		return v
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
