package main

import (
	"reflect"
	"strings"
)

// Form submissions leave unfilled fields as their template token, e.g. "@MirroredUserEmail".
// sanitizePlaceholders turns those into missing values so validation treats them as blank.
func sanitizePlaceholders(node interface{}) interface{} {
	return sanitizeNode(node, map[uintptr]bool{})
}

func isPlaceholder(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "@")
}

func sanitizeNode(node interface{}, visited map[uintptr]bool) interface{} {
	switch value := node.(type) {
	case nil:
		return nil
	case string:
		if isPlaceholder(value) {
			return nil
		}
		return value
	case map[string]interface{}:
		if value == nil {
			return nil
		}
		id := reflect.ValueOf(value).Pointer()
		if visited[id] {
			return nil
		}
		visited[id] = true

		cleaned := make(map[string]interface{}, len(value))
		for key, child := range value {
			sanitized := sanitizeNode(child, visited)
			if sanitized == nil {
				continue
			}
			cleaned[key] = sanitized
		}
		if len(cleaned) == 0 {
			return nil
		}
		return cleaned
	case []interface{}:
		// an array that arrived empty is an explicit "none" and stays that way
		if len(value) == 0 {
			return []interface{}{}
		}
		id := reflect.ValueOf(value).Pointer()
		if visited[id] {
			return nil
		}
		visited[id] = true

		if len(value) == 1 {
			if s, ok := value[0].(string); ok && isPlaceholder(s) {
				return []interface{}{}
			}
		}

		cleaned := make([]interface{}, 0, len(value))
		for _, child := range value {
			sanitized := sanitizeNode(child, visited)
			if sanitized == nil {
				continue
			}
			cleaned = append(cleaned, sanitized)
		}
		if len(cleaned) == 0 {
			return nil
		}
		return cleaned
	default:
		return value
	}
}
