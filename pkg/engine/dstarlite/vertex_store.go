package dstarlite

import (
	"math"

	"github.com/lintang-b-s/replanx/pkg"
)

type VertexInfo struct {
	g   float64
	rhs float64
}

func newVertexInfo() *VertexInfo {
	return &VertexInfo{g: pkg.INF_WEIGHT, rhs: pkg.INF_WEIGHT}
}

func (vi *VertexInfo) GetG() float64 {
	return vi.g
}

func (vi *VertexInfo) GetRhs() float64 {
	return vi.rhs
}

func (vi *VertexInfo) IsConsistent() bool {
	return vi.g == vi.rhs
}

// minCost is min(g, rhs), the second key component.
func (vi *VertexInfo) minCost() float64 {
	return math.Min(vi.g, vi.rhs)
}

// vertexStore holds g/rhs for every vertex the planner has touched. Untouched vertices read as
// g = rhs = +Inf and are only materialized on their first write.
type vertexStore[V comparable] struct {
	info map[V]*VertexInfo
}

func newVertexStore[V comparable]() *vertexStore[V] {
	return &vertexStore[V]{info: make(map[V]*VertexInfo)}
}

func (s *vertexStore[V]) get(v V) *VertexInfo {
	vi, ok := s.info[v]
	if !ok {
		vi = newVertexInfo()
		s.info[v] = vi
	}
	return vi
}

func (s *vertexStore[V]) g(v V) float64 {
	if vi, ok := s.info[v]; ok {
		return vi.g
	}
	return pkg.INF_WEIGHT
}

func (s *vertexStore[V]) rhs(v V) float64 {
	if vi, ok := s.info[v]; ok {
		return vi.rhs
	}
	return pkg.INF_WEIGHT
}

func (s *vertexStore[V]) touched(v V) bool {
	_, ok := s.info[v]
	return ok
}

func (s *vertexStore[V]) size() int {
	return len(s.info)
}
