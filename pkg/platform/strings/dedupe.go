// Package strings provides small string-slice utilities.
package strings

import "strings"

// DedupeAndTrim trims each element, drops empties and duplicates, and
// preserves first-seen order. Role lists arrive from external tokens and
// may carry both.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
