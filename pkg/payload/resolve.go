// Package payload resolves dot-separated field paths against untyped event payloads.
package payload

import (
	"strconv"
	"strings"
)

// Resolve walks payload along path ("deal.owner.id") and returns the value it
// finds. The boolean is false when any step is missing or not a container;
// a missing field is never an error. List elements are addressed by index
// ("items.0.sku").
func Resolve(payload map[string]any, path string) (any, bool) {
	if payload == nil || path == "" {
		return nil, false
	}

	var current any = payload

	for _, key := range strings.Split(path, ".") {
		next, ok := step(current, key)
		if !ok {
			return nil, false
		}

		current = next
	}

	return current, true
}

func step(current any, key string) (any, bool) {
	switch node := current.(type) {
	case map[string]any:
		value, ok := node[key]

		return value, ok
	case []any:
		index, err := strconv.Atoi(key)
		if err != nil || index < 0 || index >= len(node) {
			return nil, false
		}

		return node[index], true
	default:
		return nil, false
	}
}

// Clone returns a deep copy of payload so a snapshot is not affected by later
// mutation of the caller's map.
func Clone(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}

	cloned, _ := cloneValue(payload).(map[string]any)

	return cloned
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = cloneValue(item)
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}

		return out
	default:
		return v
	}
}
