package dstarlite

import (
	"github.com/lintang-b-s/replanx/pkg"
	da "github.com/lintang-b-s/replanx/pkg/datastructure"
	"go.uber.org/zap"
)

type ExpansionObserver[V comparable] func(v V, key da.Key)

type Options[V comparable] struct {
	logger          *zap.Logger
	strictHeuristic bool
	observer        ExpansionObserver[V]
	maxPathLength   int
	heapArity       int
}

type Option[V comparable] func(*Options[V])

func defaultOptions[V comparable]() Options[V] {
	return Options[V]{
		logger:        zap.NewNop(),
		maxPathLength: pkg.DEFAULT_MAX_PATH_LENGTH,
		heapArity:     4,
	}
}

func WithLogger[V comparable](logger *zap.Logger) Option[V] {
	return func(o *Options[V]) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithStrictHeuristic checks h(start, s) <= h(start, u) + cost(u, s) on every finite edge the
// planner examines and fails with ErrInvalidHeuristic when it does not hold.
func WithStrictHeuristic[V comparable]() Option[V] {
	return func(o *Options[V]) { o.strictHeuristic = true }
}

// WithExpansionObserver registers fn to be called for every expanded vertex with the key it was popped with.
func WithExpansionObserver[V comparable](fn ExpansionObserver[V]) Option[V] {
	return func(o *Options[V]) { o.observer = fn }
}

// WithMaxPathLength bounds the number of vertices path extraction may emit.
func WithMaxPathLength[V comparable](n int) Option[V] {
	return func(o *Options[V]) {
		if n > 0 {
			o.maxPathLength = n
		}
	}
}

// WithHeapArity selects the d of the d-ary heap behind the open list.
func WithHeapArity[V comparable](d int) Option[V] {
	return func(o *Options[V]) {
		if d >= 2 {
			o.heapArity = d
		}
	}
}
