package util

import (
	"fmt"
	"strconv"
	"strings"
)

// SetValueAtPath writes value into root at a dotted path like
// "answer.text" or "messages.0.content". Numeric segments index into
// slices; map segments are created on the way down when missing.
func SetValueAtPath(root map[string]any, path string, value any) error {
	segments := strings.Split(path, ".")
	var current any = root
	for i, seg := range segments {
		last := i == len(segments)-1
		switch node := current.(type) {
		case map[string]any:
			if last {
				node[seg] = value
				return nil
			}
			next, ok := node[seg]
			if !ok || next == nil {
				child := make(map[string]any)
				node[seg] = child
				current = child
				continue
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil {
				return fmt.Errorf("path segment %s is not an index", seg)
			}
			if idx < 0 || idx >= len(node) {
				return fmt.Errorf("path index %d out of range", idx)
			}
			if last {
				node[idx] = value
				return nil
			}
			current = node[idx]
		default:
			return fmt.Errorf("path segment %s hits a non-container value", seg)
		}
	}
	return nil
}

// GetValueAtPath reads a dotted path out of root. The second return
// reports whether the full path resolved.
func GetValueAtPath(root map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var current any = root
	for _, seg := range segments {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}
