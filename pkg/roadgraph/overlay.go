package roadgraph

import (
	"math"

	da "github.com/lintang-b-s/replanx/pkg/datastructure"
	"github.com/lintang-b-s/replanx/pkg/engine/dstarlite"
)

type edgeKey struct {
	tail, head Index
}

// Overlay is a per-session view of a shared Graph: cost changes are kept in a sparse map so the
// base graph is never mutated and can be shared between planners.
type Overlay struct {
	base    *Graph
	costs   map[edgeKey]float64
	bounded bool
}

func NewOverlay(base *Graph) *Overlay {
	return &Overlay{base: base, costs: make(map[edgeKey]float64)}
}

// NewBoundedOverlay rejects costs below the base cost. Heuristics precomputed on base costs,
// such as landmark bounds, stay admissible over it.
func NewBoundedOverlay(base *Graph) *Overlay {
	o := NewOverlay(base)
	o.bounded = true
	return o
}

func (o *Overlay) Base() *Graph {
	return o.base
}

func (o *Overlay) cost(e *Edge) float64 {
	if c, ok := o.costs[edgeKey{e.tail, e.head}]; ok {
		return c
	}
	return e.cost
}

func (o *Overlay) Successors(v Index) []dstarlite.Arc[Index] {
	arcs := make([]dstarlite.Arc[Index], len(o.base.outEdges[v]))
	for i, e := range o.base.outEdges[v] {
		arcs[i] = dstarlite.NewArc(e.head, o.cost(e))
	}
	return arcs
}

func (o *Overlay) Predecessors(v Index) []dstarlite.Arc[Index] {
	arcs := make([]dstarlite.Arc[Index], len(o.base.inEdges[v]))
	for i, e := range o.base.inEdges[v] {
		arcs[i] = dstarlite.NewArc(e.tail, o.cost(e))
	}
	return arcs
}

func (o *Overlay) HasVertex(v Index) bool {
	return o.base.HasVertex(v)
}

// SetEdgeCost records cost for u -> v. Setting the base cost back removes the override.
func (o *Overlay) SetEdgeCost(u, v Index, cost float64) error {
	if err := o.ValidateEdgeCost(u, v, cost); err != nil {
		return err
	}
	e, _ := o.base.Edge(u, v)
	if cost == e.cost {
		delete(o.costs, edgeKey{u, v})
		return nil
	}
	o.costs[edgeKey{u, v}] = cost
	return nil
}

// ValidateEdgeCost reports whether SetEdgeCost would accept the change, without applying it.
func (o *Overlay) ValidateEdgeCost(u, v Index, cost float64) error {
	if err := o.base.ValidateEdgeCost(u, v, cost); err != nil {
		return err
	}
	if e, _ := o.base.Edge(u, v); o.bounded && da.Lt(cost, e.cost) {
		return ErrBelowBaseCost
	}
	return nil
}

// Cost is the current cost of u -> v, +Inf when there is no such edge.
func (o *Overlay) Cost(u, v Index) float64 {
	e, ok := o.base.Edge(u, v)
	if !ok {
		return math.Inf(1)
	}
	return o.cost(e)
}

func (o *Overlay) NumberOfOverrides() int {
	return len(o.costs)
}
