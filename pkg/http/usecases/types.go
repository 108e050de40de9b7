package usecases

import (
	"errors"
	"time"

	"github.com/lintang-b-s/replanx/pkg/engine/dstarlite"
	"github.com/lintang-b-s/replanx/pkg/geo"
	"github.com/lintang-b-s/replanx/pkg/grid"
	"github.com/lintang-b-s/replanx/pkg/guidance"
	"github.com/lintang-b-s/replanx/pkg/roadgraph"
)

var (
	ErrSessionNotFound      = errors.New("planning session not found")
	ErrMapNotFound          = errors.New("grid map not found")
	ErrRoadGraphUnavailable = errors.New("no road graph loaded")
	ErrWrongSessionKind     = errors.New("operation does not match the session kind")
	ErrMissingMoveTarget    = errors.New("move needs a cell, a vertex, a coordinate or a positive advance")
)

type SessionKind string

const (
	SESSION_GRID SessionKind = "grid"
	SESSION_ROAD SessionKind = "road"
)

type GridSessionParams struct {
	MapName      string
	Rows         []string
	Connectivity string
	Heuristic    string
	Start        *grid.Cell
	Goal         *grid.Cell
}

type RoadSessionParams struct {
	Origin      geo.Coordinate
	Destination geo.Coordinate
}

// MoveParams picks the new position. Exactly one of the fields is used, in field order.
type MoveParams struct {
	Cell       *grid.Cell
	Vertex     *roadgraph.Index
	Coordinate *geo.Coordinate
	Advance    int
}

type GridEdge struct {
	From grid.Cell
	To   grid.Cell
	Cost float64
}

type RoadEdge struct {
	From roadgraph.Index
	To   roadgraph.Index
	Cost float64
}

// ChangeSet is a batch of edge changes; grid fields apply to grid sessions, road fields to road
// sessions.
type ChangeSet struct {
	GridEdges    []GridEdge
	BlockCells   []grid.Cell
	UnblockCells []grid.Cell

	RoadEdges    []RoadEdge
	BlockRoads   []RoadEdge
	RestoreRoads []RoadEdge
}

func (cs ChangeSet) hasGrid() bool {
	return len(cs.GridEdges)+len(cs.BlockCells)+len(cs.UnblockCells) > 0
}

func (cs ChangeSet) hasRoad() bool {
	return len(cs.RoadEdges)+len(cs.BlockRoads)+len(cs.RestoreRoads) > 0
}

type SessionInfo struct {
	ID       string
	Kind     SessionKind
	Status   string
	Pending  int
	Stats    dstarlite.Stats
	LastUsed time.Time

	StartCell, GoalCell     grid.Cell
	StartVertex, GoalVertex roadgraph.Index
	Width, Height           int
}

type PlanResult struct {
	Found    bool
	Cost     float64
	Expanded int
	Status   string

	Cells []grid.Cell

	Vertices   []roadgraph.Index
	Polyline   string
	Bearing    float64
	Directions []guidance.Instruction
}
