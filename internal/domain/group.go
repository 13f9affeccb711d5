package domain

// Group is one bucket of items sharing a key.
type Group[K comparable, T any] struct {
	Key   K
	Items []T
}

// GroupBy partitions items by key. Groups appear in the order their key was
// first seen and items keep their input order within a group.
func GroupBy[K comparable, T any](items []T, key func(T) K) []Group[K, T] {
	index := make(map[K]int)
	var groups []Group[K, T]
	for _, item := range items {
		k := key(item)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group[K, T]{Key: k})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}

// Filter keeps the items matching keep, in order.
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
