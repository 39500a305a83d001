// Package enums holds the closed string sets stored in Postgres enum and text
// columns. Values are written verbatim; nothing here normalizes case.
package enums

import "slices"

type set[T ~string] []T

func (s set[T]) has(v T) bool {
	return slices.Contains(s, v)
}
