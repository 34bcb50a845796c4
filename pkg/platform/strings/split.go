// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// SplitList splits a comma separated setting such as a broker list, trimming
// each entry and dropping empties and repeats. Order is preserved.
//
// Example:
//
//	SplitList(" b1:9092, b2:9092,,b1:9092 ")
//	// Returns: []string{"b1:9092", "b2:9092"}
func SplitList(raw string) []string {
	parts := strings.Split(raw, ",")
	seen := make(map[string]struct{}, len(parts))
	var result []string

	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
