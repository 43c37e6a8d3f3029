package utils

import (
	"maps"
	"slices"
)

// GetKeys returns the keys of m sorted, used wherever names are listed or
// persisted in a stable order.
func GetKeys[T any](m map[string]T) []string {
	if len(m) == 0 {
		return []string{}
	}
	return slices.Sorted(maps.Keys(m))
}
