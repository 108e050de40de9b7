// Package grid provides a rectangular occupancy grid that plugs into the dstarlite planner.
package grid

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyGrid      = errors.New("grid: must have at least one row and one column")
	ErrNonRectangular = errors.New("grid: all rows must have the same length")
	ErrOutOfBounds    = errors.New("grid: cell out of bounds")
	ErrNotAdjacent    = errors.New("grid: cells are not adjacent")
	ErrBelowBaseCost  = errors.New("grid: edge cost below the movement cost would break heuristic admissibility")
	ErrUnknownSymbol  = errors.New("grid: unknown map symbol")
	ErrMissingMarker  = errors.New("grid: map has no start or goal marker")
)

// Connectivity selects orthogonal (Conn4) or orthogonal plus diagonal (Conn8) moves.
type Connectivity int

const (
	Conn4 Connectivity = iota
	Conn8
)

func ParseConnectivity(s string) (Connectivity, error) {
	switch s {
	case "", "4", "conn4":
		return Conn4, nil
	case "8", "conn8":
		return Conn8, nil
	default:
		return Conn4, fmt.Errorf("grid: unknown connectivity %q", s)
	}
}

func (c Connectivity) String() string {
	if c == Conn8 {
		return "conn8"
	}
	return "conn4"
}

type Cell struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func NewCell(x, y int) Cell {
	return Cell{X: x, Y: y}
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

type edgeKey struct {
	from, to Cell
}

// offsets in enumeration order: N, E, S, W, then NE, SE, SW, NW
var neighborOffsets = [8][2]int{
	{0, -1}, {1, 0}, {0, 1}, {-1, 0},
	{1, -1}, {1, 1}, {-1, 1}, {-1, -1},
}
