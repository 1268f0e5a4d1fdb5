// Package mapper implements the job-state path resolver ("{a.b.c}") and
// the Pipe/Reduce expression grammar used to build activity inputs and
// evaluate transition conditions.
package mapper

import "strings"

// Resolve walks a dotted path ("a.b.c") against a nested map/slice
// structure, as produced by decoding a JobRecord's fields into a single
// state tree. It returns (nil, false) if any segment is missing.
func Resolve(path string, state map[string]any) (any, bool) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return nil, false
	}
	var cur any = state
	for _, seg := range segs {
		idx, isIndex := parseIndex(seg)
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			if !isIndex || idx < 0 || idx >= len(v) {
				return nil, false
			}
			cur = v[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// splitPath splits "{a.b.c}" or "a.b.c" on '.', tolerating braces.
func splitPath(path string) []string {
	p := strings.TrimSpace(path)
	p = strings.TrimPrefix(p, "{")
	p = strings.TrimSuffix(p, "}")
	if p == "" {
		return nil
	}
	return strings.Split(p, ".")
}

func parseIndex(seg string) (int, bool) {
	if seg == "" {
		return 0, false
	}
	n := 0
	for _, r := range seg {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

// IsPath reports whether s is a "{...}" path expression rather than a
// literal value.
func IsPath(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "{") && strings.HasSuffix(strings.TrimSpace(s), "}")
}
