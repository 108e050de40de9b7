// Package dstarlite implements D*-Lite incremental replanning over a caller supplied graph.
//
// The search runs backward from the goal: g(v) is the cost of the cheapest known path from v to
// the goal and rhs(u) = min over forward successors s of u of cost(u,s) + g(s). Expanding a vertex
// propagates to its forward predecessors. After an edge-cost change only the vertices whose rhs
// can change are re-examined, and the open list restores local consistency from there.
//
// A Planner is single-threaded. Callers that share one across goroutines must serialize access.
package dstarlite
