package dstarlite

import "errors"

var (
	// ErrInvalidHeuristic is returned when the heuristic yields a negative or NaN estimate, or
	// (with WithStrictHeuristic) violates the triangle inequality on an examined edge.
	ErrInvalidHeuristic = errors.New("dstarlite: heuristic precondition violated")

	// ErrContractViolation is returned when the graph reports a negative or NaN edge cost or a
	// vertex outside its own domain.
	ErrContractViolation = errors.New("dstarlite: graph contract violated")

	// ErrReentrantPlan is returned when Plan is called while a shortest-path computation is running.
	ErrReentrantPlan = errors.New("dstarlite: plan called during an in-progress computation")

	// ErrPathCycle is returned when greedy path extraction cannot make progress without revisiting vertices.
	ErrPathCycle = errors.New("dstarlite: path extraction exceeded the maximum path length")
)
