// Package util contains small helpers shared by the rest of the program.
package util

import "slices"

// MaybeSetDefault sets field to val if field is zero.
func MaybeSetDefault[T comparable](field *T, val T) {
	if *field == *new(T) {
		*field = val
	}
}

// Next returns the element after cur in vals, wrapping around to the start.
// Returns the first element if cur isn't in vals. Panics if vals is empty.
func Next[T comparable](vals []T, cur T) T {
	i := slices.Index(vals, cur)
	return vals[(i+1)%len(vals)]
}
