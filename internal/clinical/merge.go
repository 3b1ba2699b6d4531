package clinical

// MergeSorted merges lists that are each already ordered by less into one
// ordered slice. Equal elements keep the order of the lists they came from.
// The result is never nil.
func MergeSorted[T any](less func(a, b T) bool, lists ...[]T) []T {
	total := 0
	for _, l := range lists {
		total += len(l)
	}
	out := make([]T, 0, total)
	heads := make([]int, len(lists))

	for len(out) < total {
		best := -1
		for i, l := range lists {
			if heads[i] >= len(l) {
				continue
			}
			if best < 0 || less(l[heads[i]], lists[best][heads[best]]) {
				best = i
			}
		}
		out = append(out, lists[best][heads[best]])
		heads[best]++
	}
	return out
}
