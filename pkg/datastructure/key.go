package datastructure

import (
	"fmt"
	"math"
)

// Key is the D*-Lite priority of a vertex: (min(g,rhs) + h + km, min(g,rhs)), compared lexicographically.
type Key struct {
	K1 float64
	K2 float64
}

func NewKey(k1, k2 float64) Key {
	return Key{K1: k1, K2: k2}
}

// InfKey sorts after every finite key.
func InfKey() Key {
	return Key{K1: math.Inf(1), K2: math.Inf(1)}
}

// Less compares k1 first, then k2. +Inf components compare equal to each other.
func (k Key) Less(o Key) bool {
	if k.K1 != o.K1 {
		return k.K1 < o.K1
	}
	return k.K2 < o.K2
}

func (k Key) Equal(o Key) bool {
	return k.K1 == o.K1 && k.K2 == o.K2
}

func (k Key) LessEq(o Key) bool {
	return !o.Less(k)
}

func (k Key) IsInf() bool {
	return math.IsInf(k.K1, 1)
}

func (k Key) String() string {
	return fmt.Sprintf("[%g, %g]", k.K1, k.K2)
}
