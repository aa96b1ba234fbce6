package normalize

import (
	"encoding/json"
	"strconv"
)

// Safe accessors tolerate missing keys and wrong container types. A value of
// the wrong type logs a warning and yields the zero value instead of
// panicking, so one malformed field never sinks the whole result.

func (n *Normalizer) getMap(data map[string]any, keys ...string) map[string]any {
	for _, key := range keys {
		value, exists := data[key]
		if !exists || value == nil {
			continue
		}
		if nested, ok := value.(map[string]any); ok {
			return nested
		}
		n.logf("expected object at %q, got %T", key, value)
	}
	return map[string]any{}
}

func (n *Normalizer) getList(data map[string]any, keys ...string) []any {
	for _, key := range keys {
		value, exists := data[key]
		if !exists || value == nil {
			continue
		}
		if list, ok := value.([]any); ok {
			return list
		}
		n.logf("expected list at %q, got %T", key, value)
	}
	return nil
}

func (n *Normalizer) getString(data map[string]any, keys ...string) string {
	for _, key := range keys {
		value, exists := data[key]
		if !exists || value == nil {
			continue
		}
		switch typed := value.(type) {
		case string:
			if typed != "" {
				return typed
			}
		case float64:
			return strconv.FormatFloat(typed, 'f', -1, 64)
		case json.Number:
			return typed.String()
		case bool:
			return strconv.FormatBool(typed)
		default:
			n.logf("expected string at %q, got %T", key, value)
		}
	}
	return ""
}

func (n *Normalizer) getFloat(data map[string]any, keys ...string) float64 {
	for _, key := range keys {
		value, exists := data[key]
		if !exists || value == nil {
			continue
		}
		switch typed := value.(type) {
		case float64:
			return typed
		case int:
			return float64(typed)
		case json.Number:
			if parsed, err := typed.Float64(); err == nil {
				return parsed
			}
		case string:
			if parsed, err := strconv.ParseFloat(typed, 64); err == nil {
				return parsed
			}
			n.logf("unparsable number at %q: %q", key, typed)
		default:
			n.logf("expected number at %q, got %T", key, value)
		}
	}
	return 0
}

func (n *Normalizer) getStringList(data map[string]any, keys ...string) []string {
	result := []string{}
	list := n.getList(data, keys...)
	for _, entry := range list {
		switch typed := entry.(type) {
		case string:
			if typed != "" {
				result = append(result, typed)
			}
		case map[string]any:
			// Models sometimes wrap risk strings in objects.
			if text := n.getString(typed, "risk", "text", "description"); text != "" {
				result = append(result, text)
			}
		default:
			n.logf("dropping non-string list entry of type %T", entry)
		}
	}
	return result
}
