package grid

import (
	"math"

	"github.com/lintang-b-s/replanx/pkg"
	"github.com/lintang-b-s/replanx/pkg/engine/dstarlite"
)

// Grid is a width x height occupancy grid. Moving between adjacent cells costs 1 orthogonally
// and sqrt(2) diagonally; obstacle cells make every incident edge +Inf. Individual directed
// edges can be overridden with SetEdgeCost.
type Grid struct {
	width, height int
	obstacle      []bool
	conn          Connectivity
	overrides     map[edgeKey]float64
	// cells toggled by BlockCell (true) and UnblockCell (false) after the map was loaded
	toggled map[Cell]bool
}

func New(width, height int, conn Connectivity) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrEmptyGrid
	}
	return &Grid{
		width:     width,
		height:    height,
		obstacle:  make([]bool, width*height),
		conn:      conn,
		overrides: make(map[edgeKey]float64),
		toggled:   make(map[Cell]bool),
	}, nil
}

func (g *Grid) Width() int {
	return g.width
}

func (g *Grid) Height() int {
	return g.height
}

func (g *Grid) Connectivity() Connectivity {
	return g.conn
}

func (g *Grid) InBounds(c Cell) bool {
	return c.X >= 0 && c.X < g.width && c.Y >= 0 && c.Y < g.height
}

func (g *Grid) HasVertex(c Cell) bool {
	return g.InBounds(c)
}

func (g *Grid) index(c Cell) int {
	return c.Y*g.width + c.X
}

func (g *Grid) IsObstacle(c Cell) bool {
	return g.InBounds(c) && g.obstacle[g.index(c)]
}

// IsBlocked reports whether c is currently impassable: a static obstacle not cleared by
// UnblockCell, or a cell blocked with BlockCell.
func (g *Grid) IsBlocked(c Cell) bool {
	if b, ok := g.toggled[c]; ok {
		return b
	}
	return g.IsObstacle(c)
}

// SetObstacle marks c as an obstacle in the static map. Use it only before a planner is
// created on the grid; later changes go through BlockCell and the planner.
func (g *Grid) SetObstacle(c Cell, blocked bool) error {
	if !g.InBounds(c) {
		return ErrOutOfBounds
	}
	g.obstacle[g.index(c)] = blocked
	return nil
}

func (g *Grid) numNeighbors() int {
	if g.conn == Conn8 {
		return 8
	}
	return 4
}

// Adjacent reports whether v is one move away from u.
func (g *Grid) Adjacent(u, v Cell) bool {
	dx, dy := v.X-u.X, v.Y-u.Y
	for _, off := range neighborOffsets[:g.numNeighbors()] {
		if off[0] == dx && off[1] == dy {
			return true
		}
	}
	return false
}

// MoveCost is the geometric cost of a move: 1 orthogonally, sqrt(2) diagonally.
func MoveCost(u, v Cell) float64 {
	if u.X != v.X && u.Y != v.Y {
		return pkg.DIAGONAL_COST
	}
	return 1
}

// BaseCost is the movement cost of u -> v ignoring overrides. Obstacles make it +Inf.
func (g *Grid) BaseCost(u, v Cell) float64 {
	if g.IsObstacle(u) || g.IsObstacle(v) {
		return pkg.INF_WEIGHT
	}
	return MoveCost(u, v)
}

// Cost is the current cost of u -> v. Non-adjacent pairs cost +Inf.
func (g *Grid) Cost(u, v Cell) float64 {
	if !g.InBounds(u) || !g.InBounds(v) || !g.Adjacent(u, v) {
		return pkg.INF_WEIGHT
	}
	if c, ok := g.overrides[edgeKey{u, v}]; ok {
		return c
	}
	return g.BaseCost(u, v)
}

// SetEdgeCost overrides the directed edge u -> v. Costs below the base movement cost are
// rejected because the grid heuristics would stop being admissible.
func (g *Grid) SetEdgeCost(u, v Cell, cost float64) error {
	if err := g.ValidateEdgeCost(u, v, cost); err != nil {
		return err
	}
	if cost == g.BaseCost(u, v) {
		delete(g.overrides, edgeKey{u, v})
		return nil
	}
	g.overrides[edgeKey{u, v}] = cost
	return nil
}

// ValidateEdgeCost reports whether SetEdgeCost would accept the change, without applying it.
func (g *Grid) ValidateEdgeCost(u, v Cell, cost float64) error {
	if !g.InBounds(u) || !g.InBounds(v) {
		return ErrOutOfBounds
	}
	if !g.Adjacent(u, v) {
		return ErrNotAdjacent
	}
	if math.IsNaN(cost) || cost < MoveCost(u, v) {
		return ErrBelowBaseCost
	}
	return nil
}

func (g *Grid) neighbors(c Cell) []Cell {
	ns := make([]Cell, 0, g.numNeighbors())
	for _, off := range neighborOffsets[:g.numNeighbors()] {
		n := Cell{X: c.X + off[0], Y: c.Y + off[1]}
		if g.InBounds(n) {
			ns = append(ns, n)
		}
	}
	return ns
}

func (g *Grid) Successors(c Cell) []dstarlite.Arc[Cell] {
	ns := g.neighbors(c)
	arcs := make([]dstarlite.Arc[Cell], len(ns))
	for i, n := range ns {
		arcs[i] = dstarlite.NewArc(n, g.Cost(c, n))
	}
	return arcs
}

func (g *Grid) Predecessors(c Cell) []dstarlite.Arc[Cell] {
	ns := g.neighbors(c)
	arcs := make([]dstarlite.Arc[Cell], len(ns))
	for i, n := range ns {
		arcs[i] = dstarlite.NewArc(n, g.Cost(n, c))
	}
	return arcs
}

// BlockCell records c as blocked and returns the edge changes that make every edge incident to
// c impassable.
func (g *Grid) BlockCell(c Cell) []dstarlite.EdgeChange[Cell] {
	g.toggled[c] = true
	changes := make([]dstarlite.EdgeChange[Cell], 0, 2*g.numNeighbors())
	for _, n := range g.neighbors(c) {
		changes = append(changes,
			dstarlite.NewEdgeChange(c, n, pkg.INF_WEIGHT),
			dstarlite.NewEdgeChange(n, c, pkg.INF_WEIGHT))
	}
	return changes
}

// UnblockCell records c as passable and returns the edge changes that reopen it. Edges towards
// neighbors that are still blocked stay +Inf.
func (g *Grid) UnblockCell(c Cell) []dstarlite.EdgeChange[Cell] {
	g.toggled[c] = false
	changes := make([]dstarlite.EdgeChange[Cell], 0, 2*g.numNeighbors())
	for _, n := range g.neighbors(c) {
		cost := MoveCost(c, n)
		if g.IsBlocked(n) {
			cost = pkg.INF_WEIGHT
		}
		changes = append(changes,
			dstarlite.NewEdgeChange(c, n, cost),
			dstarlite.NewEdgeChange(n, c, cost))
	}
	return changes
}

// Clone copies the grid including its edge overrides and toggled cells.
func (g *Grid) Clone() *Grid {
	c := &Grid{
		width:     g.width,
		height:    g.height,
		obstacle:  make([]bool, len(g.obstacle)),
		conn:      g.conn,
		overrides: make(map[edgeKey]float64, len(g.overrides)),
		toggled:   make(map[Cell]bool, len(g.toggled)),
	}
	copy(c.obstacle, g.obstacle)
	for k, v := range g.overrides {
		c.overrides[k] = v
	}
	for k, v := range g.toggled {
		c.toggled[k] = v
	}
	return c
}

// CloneWithConnectivity is Clone with the neighborhood switched to conn.
func (g *Grid) CloneWithConnectivity(conn Connectivity) *Grid {
	c := g.Clone()
	c.conn = conn
	return c
}
