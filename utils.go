package lusol

import (
	"golang.org/x/exp/constraints"
)

func mini[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func maxi[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}
