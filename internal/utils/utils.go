// Package utils contains general helpers shared across cmdsrv packages.
package utils

import (
	"sort"
	"strings"
)

// DeduplicateStrings removes duplicate values from a slice while preserving order.
// The first occurrence of each unique value is kept.
func DeduplicateStrings(values []string) []string {
	encountered := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		if _, exists := encountered[value]; !exists {
			encountered[value] = struct{}{}
			result = append(result, value)
		}
	}
	return result
}

// SortedUnique returns a sorted copy of values with duplicates removed.
func SortedUnique(values []string) []string {
	result := DeduplicateStrings(values)
	sort.Strings(result)
	return result
}

// FilterPrefix returns the values starting with prefix, preserving order.
func FilterPrefix(values []string, prefix string) []string {
	if prefix == "" {
		return append([]string(nil), values...)
	}
	var result []string
	for _, value := range values {
		if strings.HasPrefix(value, prefix) {
			result = append(result, value)
		}
	}
	return result
}
