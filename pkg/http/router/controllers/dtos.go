package controllers

import (
	"math"
	"time"

	"github.com/lintang-b-s/replanx/pkg/engine/dstarlite"
	"github.com/lintang-b-s/replanx/pkg/geo"
	"github.com/lintang-b-s/replanx/pkg/grid"
	"github.com/lintang-b-s/replanx/pkg/guidance"
	"github.com/lintang-b-s/replanx/pkg/http/usecases"
	"github.com/lintang-b-s/replanx/pkg/roadgraph"
)

type cell struct {
	X int `json:"x" validate:"gte=0"`
	Y int `json:"y" validate:"gte=0"`
}

func (c cell) toCell() grid.Cell {
	return grid.NewCell(c.X, c.Y)
}

func newCell(c grid.Cell) cell {
	return cell{X: c.X, Y: c.Y}
}

func toCells(cs []cell) []grid.Cell {
	out := make([]grid.Cell, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.toCell())
	}
	return out
}

type gridSessionRequest struct {
	MapName      string   `json:"map_name" validate:"required_without=Rows"`
	Rows         []string `json:"rows" validate:"required_without=MapName"`
	Connectivity string   `json:"connectivity" validate:"omitempty,oneof=4 8 conn4 conn8"`
	Heuristic    string   `json:"heuristic" validate:"omitempty,oneof=manhattan octile euclidean zero"`
	Start        *cell    `json:"start"`
	Goal         *cell    `json:"goal"`
}

func (r gridSessionRequest) toParams() usecases.GridSessionParams {
	params := usecases.GridSessionParams{
		MapName:      r.MapName,
		Rows:         r.Rows,
		Connectivity: r.Connectivity,
		Heuristic:    r.Heuristic,
	}
	if r.Start != nil {
		c := r.Start.toCell()
		params.Start = &c
	}
	if r.Goal != nil {
		c := r.Goal.toCell()
		params.Goal = &c
	}
	return params
}

type roadSessionRequest struct {
	OriginLat      float64 `json:"origin_lat" validate:"required,min=-90,max=90"`
	OriginLon      float64 `json:"origin_lon" validate:"required,min=-180,max=180"`
	DestinationLat float64 `json:"destination_lat" validate:"required,min=-90,max=90"`
	DestinationLon float64 `json:"destination_lon" validate:"required,min=-180,max=180"`
}

func (r roadSessionRequest) toParams() usecases.RoadSessionParams {
	return usecases.RoadSessionParams{
		Origin:      geo.NewCoordinate(r.OriginLat, r.OriginLon),
		Destination: geo.NewCoordinate(r.DestinationLat, r.DestinationLon),
	}
}

type moveRequest struct {
	Cell    *cell    `json:"cell"`
	Vertex  *uint32  `json:"vertex"`
	Lat     *float64 `json:"lat" validate:"required_with=Lon,omitempty,min=-90,max=90"`
	Lon     *float64 `json:"lon" validate:"required_with=Lat,omitempty,min=-180,max=180"`
	Advance int      `json:"advance" validate:"gte=0"`
}

func (r moveRequest) toParams() usecases.MoveParams {
	var params usecases.MoveParams
	if r.Cell != nil {
		c := r.Cell.toCell()
		params.Cell = &c
	}
	if r.Vertex != nil {
		v := roadgraph.Index(*r.Vertex)
		params.Vertex = &v
	}
	if r.Lat != nil && r.Lon != nil {
		c := geo.NewCoordinate(*r.Lat, *r.Lon)
		params.Coordinate = &c
	}
	params.Advance = r.Advance
	return params
}

// edge costs are finite in JSON, a blocked edge is sent with blocked=true.
type gridEdge struct {
	From    cell    `json:"from"`
	To      cell    `json:"to"`
	Cost    float64 `json:"cost" validate:"gte=0"`
	Blocked bool    `json:"blocked"`
}

type roadEdge struct {
	From    uint32  `json:"from"`
	To      uint32  `json:"to"`
	Cost    float64 `json:"cost" validate:"gte=0"`
	Blocked bool    `json:"blocked"`
}

type roadPair struct {
	From uint32 `json:"from"`
	To   uint32 `json:"to"`
}

func edgeCost(cost float64, blocked bool) float64 {
	if blocked {
		return math.Inf(1)
	}
	return cost
}

type edgeChangesRequest struct {
	GridEdges    []gridEdge `json:"grid_edges" validate:"dive"`
	BlockCells   []cell     `json:"block_cells" validate:"dive"`
	UnblockCells []cell     `json:"unblock_cells" validate:"dive"`
	RoadEdges    []roadEdge `json:"road_edges" validate:"dive"`
	BlockRoads   []roadPair `json:"block_roads"`
	RestoreRoads []roadPair `json:"restore_roads"`
}

func toRoadPairs(ps []roadPair) []usecases.RoadEdge {
	out := make([]usecases.RoadEdge, 0, len(ps))
	for _, p := range ps {
		out = append(out, usecases.RoadEdge{From: roadgraph.Index(p.From), To: roadgraph.Index(p.To)})
	}
	return out
}

func (r edgeChangesRequest) toChangeSet() usecases.ChangeSet {
	cs := usecases.ChangeSet{
		BlockCells:   toCells(r.BlockCells),
		UnblockCells: toCells(r.UnblockCells),
		BlockRoads:   toRoadPairs(r.BlockRoads),
		RestoreRoads: toRoadPairs(r.RestoreRoads),
	}
	for _, e := range r.GridEdges {
		cs.GridEdges = append(cs.GridEdges, usecases.GridEdge{
			From: e.From.toCell(), To: e.To.toCell(), Cost: edgeCost(e.Cost, e.Blocked),
		})
	}
	for _, e := range r.RoadEdges {
		cs.RoadEdges = append(cs.RoadEdges, usecases.RoadEdge{
			From: roadgraph.Index(e.From), To: roadgraph.Index(e.To), Cost: edgeCost(e.Cost, e.Blocked),
		})
	}
	return cs
}

type replanRequest struct {
	Changes edgeChangesRequest `json:"changes"`
	Move    *moveRequest       `json:"move"`
}

// streamReplanRequest is one websocket message; each message names the session it replans.
type streamReplanRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	replanRequest
}

func replanWith(plannerService PlannerService, id string, request replanRequest) (usecases.PlanResult, error) {
	var move *usecases.MoveParams
	if request.Move != nil {
		params := request.Move.toParams()
		move = &params
	}
	return plannerService.Replan(id, request.Changes.toChangeSet(), move)
}

type sessionResponse struct {
	ID       string          `json:"id"`
	Kind     string          `json:"kind"`
	Status   string          `json:"status"`
	Pending  int             `json:"pending_edge_changes"`
	Stats    dstarlite.Stats `json:"stats"`
	LastUsed time.Time       `json:"last_used"`

	Start       *cell   `json:"start,omitempty"`
	Goal        *cell   `json:"goal,omitempty"`
	StartVertex *uint32 `json:"start_vertex,omitempty"`
	GoalVertex  *uint32 `json:"goal_vertex,omitempty"`
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
}

func NewSessionResponse(info usecases.SessionInfo) sessionResponse {
	resp := sessionResponse{
		ID:       info.ID,
		Kind:     string(info.Kind),
		Status:   info.Status,
		Pending:  info.Pending,
		Stats:    info.Stats,
		LastUsed: info.LastUsed,
	}
	switch info.Kind {
	case usecases.SESSION_GRID:
		start, goal := newCell(info.StartCell), newCell(info.GoalCell)
		resp.Start, resp.Goal = &start, &goal
		resp.Width, resp.Height = info.Width, info.Height
	case usecases.SESSION_ROAD:
		start, goal := uint32(info.StartVertex), uint32(info.GoalVertex)
		resp.StartVertex, resp.GoalVertex = &start, &goal
	}
	return resp
}

type drivingDirection struct {
	Instruction string  `json:"instruction"`
	Turn        string  `json:"turn"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Distance    float64 `json:"distance"`
}

func newDrivingDirections(ins []guidance.Instruction) []drivingDirection {
	out := make([]drivingDirection, 0, len(ins))
	for _, in := range ins {
		out = append(out, drivingDirection{
			Instruction: in.Description,
			Turn:        in.Sign.String(),
			Lat:         in.Point.Lat,
			Lon:         in.Point.Lon,
			Distance:    in.Distance,
		})
	}
	return out
}

type planResponse struct {
	Found      bool               `json:"found"`
	Cost       *float64           `json:"cost"`
	Expanded   int                `json:"expanded"`
	Status     string             `json:"status"`
	Cells      []cell             `json:"cells,omitempty"`
	Vertices   []uint32           `json:"vertices,omitempty"`
	Path       string             `json:"path,omitempty"`
	Bearing    float64            `json:"bearing,omitempty"`
	Directions []drivingDirection `json:"driving_directions,omitempty"`
}

// NewPlanResponse leaves cost null when there is no path, the planner reports +Inf there.
func NewPlanResponse(res usecases.PlanResult) planResponse {
	resp := planResponse{
		Found:    res.Found,
		Expanded: res.Expanded,
		Status:   res.Status,
		Path:     res.Polyline,
		Bearing:  res.Bearing,
	}
	if res.Found && !math.IsInf(res.Cost, 0) {
		cost := res.Cost
		resp.Cost = &cost
	}
	for _, c := range res.Cells {
		resp.Cells = append(resp.Cells, newCell(c))
	}
	for _, v := range res.Vertices {
		resp.Vertices = append(resp.Vertices, uint32(v))
	}
	if len(res.Directions) > 0 {
		resp.Directions = newDrivingDirections(res.Directions)
	}
	return resp
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
