package collections

import (
	"cmp"
	"slices"
)

func Convert[T any, P any](items []T, converterF func(T) P) []P {
	values := make([]P, 0, len(items))

	for _, item := range items {
		values = append(values, converterF(item))
	}

	return values
}

func FilterBy[T any](items []T, filterF func(T) bool) []T {
	result := make([]T, 0)

	for _, item := range items {
		if filterF(item) {
			result = append(result, item)
		}
	}

	return result
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
