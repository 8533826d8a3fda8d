// Package strings provides string slice helpers.
package strings

import (
	"strings"
)

// DedupeAndTrimBy trims every element, drops empty ones and keeps the first
// element for each key(trimmed). Order is preserved, so folding names with a
// case-insensitive key keeps the caller's capitalisation.
//
// Example:
//
//	DedupeAndTrimBy([]string{"  Notch ", "notch", "jeb_", " "}, strings.ToLower)
//	// Returns: []string{"Notch", "jeb_"}
func DedupeAndTrimBy(values []string, key func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		k := key(trimmed)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, trimmed)
	}

	return result
}
