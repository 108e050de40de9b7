package datastructure

import (
	"math"
)

const (
	EPS = 1e-9
)

// equal operator
func Eq(a, b float64) bool {
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	return math.Abs(a-b) <= EPS
}

// less than operator
func Lt(a, b float64) bool {
	return a+EPS < b
}

// less than or equal operator
func Le(a, b float64) bool {
	return a <= b+EPS
}

// greater than or equal than operator
func Ge(a, b float64) bool {
	return Le(b, a)
}

func Gt(a, b float64) bool {
	return Lt(b, a)
}
