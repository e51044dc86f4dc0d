// Package normalize maps loosely-shaped upstream payloads onto the canonical profile record.
//
// The upstream has renamed fields several times, so nothing here trusts a schema:
// every semantic value is resolved through an ordered list of known field paths.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Path is a sequence of map keys (or decimal slice indexes) into a decoded JSON tree.
type Path []string

// P builds a Path from a dotted string.
func P(dotted string) Path { return strings.Split(dotted, ".") }

// Lookup walks v along path. Map keys are matched exactly; slice elements by index.
func Lookup(v any, path Path) (any, bool) {
	cur := v
	for _, key := range path {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[key]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, cur != nil
}

// First returns the value at the first path that is present and non-null.
func First(v any, paths []Path) (any, bool) {
	for _, p := range paths {
		if got, ok := Lookup(v, p); ok {
			return got, true
		}
	}
	return nil, false
}

// FirstInt returns the first value along paths that is a non-negative integer.
// Present values that are negative, fractional or non-numeric are skipped.
func FirstInt(v any, paths []Path) (int, bool) {
	for _, p := range paths {
		got, ok := Lookup(v, p)
		if !ok {
			continue
		}
		if n, ok := AsInt(got); ok {
			return n, true
		}
	}
	return 0, false
}

// FirstString returns the first non-blank string along paths.
func FirstString(v any, paths []Path) (string, bool) {
	for _, p := range paths {
		got, ok := Lookup(v, p)
		if !ok {
			continue
		}
		if s, ok := got.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), true
		}
	}
	return "", false
}

// AsInt converts a decoded JSON scalar into a non-negative int.
// Strings are accepted when they hold digits with optional thousands separators.
func AsInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return fromInt64(i)
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return fromFloat(f)
	case float64:
		return fromFloat(n)
	case int:
		return fromInt64(int64(n))
	case int64:
		return fromInt64(n)
	case string:
		return ParseCount(n)
	default:
		return 0, false
	}
}

// ParseCount parses a base-10 count like "120,609" or "1 234". Any sign makes it invalid.
func ParseCount(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "-+") {
		return 0, false
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ',' || r == '.' || r == ' ' || r == '\u00a0' || r == '\u202f' || r == '\'':
		default:
			return 0, false
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return fromInt64(n)
}

func fromInt64(n int64) (int, bool) {
	if n < 0 || n > math.MaxInt32 {
		return 0, false
	}
	return int(n), true
}

func fromFloat(f float64) (int, bool) {
	if f < 0 || f > math.MaxInt32 || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
