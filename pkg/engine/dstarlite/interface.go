package dstarlite

// Arc is one weighted adjacency of a vertex. For Successors it is the edge v -> To, for
// Predecessors it is the edge To -> v. Cost +Inf marks a blocked edge.
type Arc[V comparable] struct {
	To   V
	Cost float64
}

func NewArc[V comparable](to V, cost float64) Arc[V] {
	return Arc[V]{To: to, Cost: cost}
}

// Graph is queried lazily, one vertex at a time. The enumeration order of the returned arcs is
// the tie-break order used during path extraction, so it must be deterministic.
type Graph[V comparable] interface {
	Successors(v V) []Arc[V]
	Predecessors(v V) []Arc[V]
}

// Heuristic estimates the cost between two vertices. It must be admissible and consistent.
type Heuristic[V comparable] func(from, to V) float64

// EdgeCostSetter is implemented by graphs that accept cost updates from the planner. When the
// graph implements it, buffered edge changes are written into the graph at the next Plan.
type EdgeCostSetter[V comparable] interface {
	SetEdgeCost(u, v V, cost float64) error
}

// EdgeCostValidator is implemented by graphs that can reject a cost update without applying it.
// The planner checks every change of a batch with it when the batch is notified, so a batch is
// either buffered whole or not at all.
type EdgeCostValidator[V comparable] interface {
	ValidateEdgeCost(u, v V, cost float64) error
}

// VertexDomain is implemented by graphs that can tell whether a vertex belongs to them.
type VertexDomain[V comparable] interface {
	HasVertex(v V) bool
}

// EdgeChange is a buffered cost update for the directed edge From -> To.
type EdgeChange[V comparable] struct {
	From V
	To   V
	Cost float64
}

func NewEdgeChange[V comparable](from, to V, cost float64) EdgeChange[V] {
	return EdgeChange[V]{From: from, To: to, Cost: cost}
}
