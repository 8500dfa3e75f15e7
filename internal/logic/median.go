package logic

import "slices"

// Median returns the middle value of values, or the mean of the two middle
// values when len(values) is even. Integer types use integer division.
// The input slice is not modified. An empty input yields zero.
func Median[T Number](values []T) T {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
