package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnparseable is returned when model output holds no usable list.
var ErrUnparseable = errors.New("model output is not a usable list")

// extractJSON isolates the outermost JSON array or object in a reply that
// may carry code fences or prose around it.
func extractJSON(response string) string {
	start := strings.IndexAny(response, "[{")
	if start == -1 {
		return ""
	}
	closer := "}"
	if response[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(response, closer)
	if end <= start {
		return ""
	}
	return response[start : end+1]
}

// extractList accepts three shapes: a bare array, an object holding the
// list under wrapperKey, or an object with exactly one list-valued field.
// Non-object elements are dropped. An empty list is a failure.
func extractList(response, wrapperKey string) ([]map[string]interface{}, error) {
	raw := extractJSON(response)
	if raw == "" {
		return nil, fmt.Errorf("%w: no JSON found", ErrUnparseable)
	}

	var decoded interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	var list []interface{}
	switch v := decoded.(type) {
	case []interface{}:
		list = v
	case map[string]interface{}:
		if wrapped, ok := v[wrapperKey].([]interface{}); ok {
			list = wrapped
			break
		}
		var candidates [][]interface{}
		for _, field := range v {
			if l, ok := field.([]interface{}); ok {
				candidates = append(candidates, l)
			}
		}
		if len(candidates) != 1 {
			return nil, fmt.Errorf("%w: object has %d list fields", ErrUnparseable, len(candidates))
		}
		list = candidates[0]
	default:
		return nil, fmt.Errorf("%w: unexpected %T", ErrUnparseable, decoded)
	}

	items := make([]map[string]interface{}, 0, len(list))
	for _, el := range list {
		if m, ok := el.(map[string]interface{}); ok {
			items = append(items, m)
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty list", ErrUnparseable)
	}
	return items, nil
}

func str(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return ""
	}
}

func num(m map[string]interface{}, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}

func boolean(m map[string]interface{}, key string) bool {
	switch v := m[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}

func strList(m map[string]interface{}, key string) []string {
	list, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, el := range list {
		if s, ok := el.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func objList(m map[string]interface{}, key string) []map[string]interface{} {
	list, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(list))
	for _, el := range list {
		if o, ok := el.(map[string]interface{}); ok {
			out = append(out, o)
		}
	}
	return out
}
