// Package strings holds helpers for list-valued settings.
package strings

import (
	"strings"
)

// SplitList splits a comma-separated value into trimmed, unique, non-empty
// items in first-seen order.
func SplitList(raw string) []string {
	if raw == "" {
		return nil
	}
	return DedupeAndTrim(strings.Split(raw, ","))
}

// DedupeAndTrim trims each value and drops blanks and repeats.
//
//	DedupeAndTrim([]string{"  LAB-001 ", "LAB-002", "LAB-001", "", "  "})
//	// []string{"LAB-001", "LAB-002"}
func DedupeAndTrim(values []string) []string {
	var out []string
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
