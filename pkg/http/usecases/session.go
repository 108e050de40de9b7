package usecases

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lintang-b-s/replanx/pkg/engine/dstarlite"
	"github.com/lintang-b-s/replanx/pkg/grid"
	"github.com/lintang-b-s/replanx/pkg/guidance"
	"github.com/lintang-b-s/replanx/pkg/roadgraph"
	"github.com/lintang-b-s/replanx/pkg/util"
	"go.uber.org/zap"
)

// Session owns one planner. The planner is single threaded; mu serializes every call into it.
type Session struct {
	mu       sync.Mutex
	id       string
	kind     SessionKind
	lastUsed time.Time

	grid        *grid.Grid
	gridPlanner *dstarlite.Planner[grid.Cell]
	gridPath    []grid.Cell

	overlay     *roadgraph.Overlay
	roadPlanner *dstarlite.Planner[roadgraph.Index]
	roadPath    []roadgraph.Index
}

type SessionServiceConfig struct {
	Capacity        int
	SnapRadius      float64
	MaxSnapRadius   float64
	StrictHeuristic bool
	MaxPathLength   int

	// RoadHeuristic replaces the haversine heuristic of road sessions. It is assumed to be
	// precomputed on base costs, so road sessions then reject costs below them.
	RoadHeuristic dstarlite.Heuristic[roadgraph.Index]
}

type SessionService struct {
	log      *zap.Logger
	cfg      SessionServiceConfig
	sessions *lru.Cache[string, *Session]

	maps         map[string]*grid.Map
	road         *roadgraph.Graph
	spatialIndex SpatialIndex
}

func NewSessionService(log *zap.Logger, cfg SessionServiceConfig, maps map[string]*grid.Map,
	road *roadgraph.Graph, spatialIndex SpatialIndex) (*SessionService, error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1024
	}
	if cfg.SnapRadius <= 0 {
		cfg.SnapRadius = 0.05
	}
	if cfg.MaxSnapRadius < cfg.SnapRadius {
		cfg.MaxSnapRadius = 2
	}
	if maps == nil {
		maps = make(map[string]*grid.Map)
	}

	cache, err := lru.NewWithEvict[string, *Session](cfg.Capacity, func(id string, _ *Session) {
		log.Info("planning session evicted", zap.String("session_id", id))
	})
	if err != nil {
		return nil, err
	}

	return &SessionService{
		log:          log,
		cfg:          cfg,
		sessions:     cache,
		maps:         maps,
		road:         road,
		spatialIndex: spatialIndex,
	}, nil
}

func newSessionID() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func plannerOptions[V comparable](cfg SessionServiceConfig, log *zap.Logger) []dstarlite.Option[V] {
	opts := []dstarlite.Option[V]{dstarlite.WithLogger[V](log)}
	if cfg.StrictHeuristic {
		opts = append(opts, dstarlite.WithStrictHeuristic[V]())
	}
	if cfg.MaxPathLength > 0 {
		opts = append(opts, dstarlite.WithMaxPathLength[V](cfg.MaxPathLength))
	}
	return opts
}

func (ss *SessionService) CreateGridSession(params GridSessionParams) (SessionInfo, error) {
	conn, err := grid.ParseConnectivity(params.Connectivity)
	if err != nil {
		return SessionInfo{}, util.WrapErrorf(err, util.ErrBadParamInput, "connectivity")
	}

	var m *grid.Map
	switch {
	case len(params.Rows) > 0:
		m, err = grid.ParseRows(params.Rows, conn)
		if err != nil {
			return SessionInfo{}, util.WrapErrorf(err, util.ErrBadParamInput, "parse map rows")
		}
	case params.MapName != "":
		base, ok := ss.maps[params.MapName]
		if !ok {
			return SessionInfo{}, util.WrapErrorf(ErrMapNotFound, util.ErrNotFound, "map %q", params.MapName)
		}
		m = &grid.Map{Grid: base.Grid.CloneWithConnectivity(conn), Start: base.Start, Goal: base.Goal,
			HasStart: base.HasStart, HasGoal: base.HasGoal}
	default:
		return SessionInfo{}, util.WrapErrorf(ErrMapNotFound, util.ErrBadParamInput, "either map name or rows is required")
	}

	if params.Start != nil {
		m.Start, m.HasStart = *params.Start, true
	}
	if params.Goal != nil {
		m.Goal, m.HasGoal = *params.Goal, true
	}
	start, goal, err := m.StartGoal()
	if err != nil {
		return SessionInfo{}, util.WrapErrorf(err, util.ErrBadParamInput, "start and goal")
	}

	h, err := grid.HeuristicByName(params.Heuristic, conn)
	if err != nil {
		return SessionInfo{}, util.WrapErrorf(err, util.ErrBadParamInput, "heuristic")
	}

	planner, err := dstarlite.NewPlanner[grid.Cell](m.Grid, h, start, goal,
		plannerOptions[grid.Cell](ss.cfg, ss.log)...)
	if err != nil {
		return SessionInfo{}, util.WrapErrorf(err, util.ErrBadParamInput, "create planner")
	}

	id, err := newSessionID()
	if err != nil {
		return SessionInfo{}, util.WrapErrorf(err, util.ErrInternalServerError, "session id")
	}
	s := &Session{id: id, kind: SESSION_GRID, grid: m.Grid, gridPlanner: planner, lastUsed: time.Now()}
	ss.sessions.Add(id, s)

	ss.log.Info("grid planning session created", zap.String("session_id", id),
		zap.Stringer("start", start), zap.Stringer("goal", goal))
	return s.info(), nil
}

func (ss *SessionService) CreateRoadSession(params RoadSessionParams) (SessionInfo, error) {
	if ss.road == nil || ss.spatialIndex == nil {
		return SessionInfo{}, util.WrapErrorf(ErrRoadGraphUnavailable, util.ErrNotFound, "road session")
	}

	start, _, err := ss.spatialIndex.SnapToVertex(params.Origin, ss.cfg.SnapRadius, ss.cfg.MaxSnapRadius)
	if err != nil {
		return SessionInfo{}, util.WrapErrorf(err, util.ErrBadParamInput, "snap origin %v", params.Origin)
	}
	goal, _, err := ss.spatialIndex.SnapToVertex(params.Destination, ss.cfg.SnapRadius, ss.cfg.MaxSnapRadius)
	if err != nil {
		return SessionInfo{}, util.WrapErrorf(err, util.ErrBadParamInput, "snap destination %v", params.Destination)
	}

	overlay, h := roadgraph.NewOverlay(ss.road), ss.road.Heuristic()
	if ss.cfg.RoadHeuristic != nil {
		overlay, h = roadgraph.NewBoundedOverlay(ss.road), ss.cfg.RoadHeuristic
	}
	planner, err := dstarlite.NewPlanner[roadgraph.Index](overlay, h, start, goal,
		plannerOptions[roadgraph.Index](ss.cfg, ss.log)...)
	if err != nil {
		return SessionInfo{}, util.WrapErrorf(err, util.ErrBadParamInput, "create planner")
	}

	id, err := newSessionID()
	if err != nil {
		return SessionInfo{}, util.WrapErrorf(err, util.ErrInternalServerError, "session id")
	}
	s := &Session{id: id, kind: SESSION_ROAD, overlay: overlay, roadPlanner: planner, lastUsed: time.Now()}
	ss.sessions.Add(id, s)

	ss.log.Info("road planning session created", zap.String("session_id", id),
		zap.Uint32("start", uint32(start)), zap.Uint32("goal", uint32(goal)))
	return s.info(), nil
}

func (ss *SessionService) get(id string) (*Session, error) {
	s, ok := ss.sessions.Get(id)
	if !ok {
		return nil, util.WrapErrorf(ErrSessionNotFound, util.ErrNotFound, "session %q", id)
	}
	return s, nil
}

func (ss *SessionService) Get(id string) (SessionInfo, error) {
	s, err := ss.get(id)
	if err != nil {
		return SessionInfo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info(), nil
}

func (ss *SessionService) Delete(id string) error {
	if !ss.sessions.Remove(id) {
		return util.WrapErrorf(ErrSessionNotFound, util.ErrNotFound, "session %q", id)
	}
	ss.log.Info("planning session deleted", zap.String("session_id", id))
	return nil
}

func (ss *SessionService) NumberOfSessions() int {
	return ss.sessions.Len()
}

func (ss *SessionService) Plan(id string) (PlanResult, error) {
	s, err := ss.get(id)
	if err != nil {
		return PlanResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan()
}

func (ss *SessionService) Move(id string, params MoveParams) (SessionInfo, error) {
	s, err := ss.get(id)
	if err != nil {
		return SessionInfo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ss.move(s, params); err != nil {
		return SessionInfo{}, err
	}
	return s.info(), nil
}

func (ss *SessionService) ChangeEdges(id string, cs ChangeSet) (SessionInfo, error) {
	s, err := ss.get(id)
	if err != nil {
		return SessionInfo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.notify(cs); err != nil {
		return SessionInfo{}, err
	}
	return s.info(), nil
}

// Replan applies a batch of edge changes and an optional move, then plans, all under one lock.
func (ss *SessionService) Replan(id string, cs ChangeSet, move *MoveParams) (PlanResult, error) {
	s, err := ss.get(id)
	if err != nil {
		return PlanResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.notify(cs); err != nil {
		return PlanResult{}, err
	}
	if move != nil {
		if err := ss.move(s, *move); err != nil {
			return PlanResult{}, err
		}
	}
	return s.plan()
}

func (ss *SessionService) move(s *Session, params MoveParams) error {
	s.lastUsed = time.Now()
	switch s.kind {
	case SESSION_GRID:
		var next grid.Cell
		switch {
		case params.Cell != nil:
			next = *params.Cell
		case params.Advance > 0 && len(s.gridPath) > 0:
			next = s.gridPath[min(params.Advance, len(s.gridPath)-1)]
		default:
			return util.WrapErrorf(ErrMissingMoveTarget, util.ErrBadParamInput, "grid move")
		}
		if err := s.gridPlanner.MoveStart(next); err != nil {
			return util.WrapErrorf(err, util.ErrBadParamInput, "move to %v", next)
		}
		s.gridPath = nil

	case SESSION_ROAD:
		var next roadgraph.Index
		switch {
		case params.Vertex != nil:
			next = *params.Vertex
		case params.Coordinate != nil:
			v, _, err := ss.spatialIndex.SnapToVertex(*params.Coordinate, ss.cfg.SnapRadius, ss.cfg.MaxSnapRadius)
			if err != nil {
				return util.WrapErrorf(err, util.ErrBadParamInput, "snap %v", *params.Coordinate)
			}
			next = v
		case params.Advance > 0 && len(s.roadPath) > 0:
			next = s.roadPath[min(params.Advance, len(s.roadPath)-1)]
		default:
			return util.WrapErrorf(ErrMissingMoveTarget, util.ErrBadParamInput, "road move")
		}
		if err := s.roadPlanner.MoveStart(next); err != nil {
			return util.WrapErrorf(err, util.ErrBadParamInput, "move to %d", next)
		}
		s.roadPath = nil
	}
	return nil
}

func (s *Session) notify(cs ChangeSet) error {
	s.lastUsed = time.Now()
	switch s.kind {
	case SESSION_GRID:
		if cs.hasRoad() {
			return util.WrapErrorf(ErrWrongSessionKind, util.ErrBadParamInput, "road edges sent to grid session %s", s.id)
		}
		changes := make([]dstarlite.EdgeChange[grid.Cell], 0, len(cs.GridEdges))
		for _, e := range cs.GridEdges {
			if err := s.grid.ValidateEdgeCost(e.From, e.To, e.Cost); err != nil {
				return util.WrapErrorf(err, util.ErrBadParamInput, "edge %v -> %v", e.From, e.To)
			}
			changes = append(changes, dstarlite.NewEdgeChange(e.From, e.To, e.Cost))
		}
		// checked before BlockCell/UnblockCell record their cells
		for _, c := range append(append([]grid.Cell(nil), cs.BlockCells...), cs.UnblockCells...) {
			if !s.grid.InBounds(c) {
				return util.WrapErrorf(grid.ErrOutOfBounds, util.ErrBadParamInput, "cell %v", c)
			}
		}
		for _, c := range cs.BlockCells {
			changes = append(changes, s.grid.BlockCell(c)...)
		}
		for _, c := range cs.UnblockCells {
			changes = append(changes, s.grid.UnblockCell(c)...)
		}
		return s.gridPlanner.NotifyEdgesChanged(changes...)

	case SESSION_ROAD:
		if cs.hasGrid() {
			return util.WrapErrorf(ErrWrongSessionKind, util.ErrBadParamInput, "grid edges sent to road session %s", s.id)
		}
		base := s.overlay.Base()
		changes := make([]dstarlite.EdgeChange[roadgraph.Index], 0, len(cs.RoadEdges))
		for _, e := range cs.RoadEdges {
			if _, ok := base.Edge(e.From, e.To); !ok {
				return util.WrapErrorf(roadgraph.ErrEdgeNotFound, util.ErrBadParamInput, "edge %d -> %d", e.From, e.To)
			}
			changes = append(changes, dstarlite.NewEdgeChange(e.From, e.To, e.Cost))
		}
		for _, e := range cs.BlockRoads {
			changes = append(changes, base.BlockEdge(e.From, e.To)...)
		}
		for _, e := range cs.RestoreRoads {
			changes = append(changes, base.RestoreEdge(e.From, e.To)...)
		}
		return s.roadPlanner.NotifyEdgesChanged(changes...)
	}
	return nil
}

func (s *Session) plan() (PlanResult, error) {
	s.lastUsed = time.Now()
	switch s.kind {
	case SESSION_GRID:
		res, err := s.gridPlanner.Plan()
		if err != nil {
			return PlanResult{}, util.WrapErrorf(err, util.ErrorCode(err), "plan session %s", s.id)
		}
		s.gridPath = res.Path
		return PlanResult{
			Found:    res.Found,
			Cost:     res.TotalCost,
			Expanded: res.Expanded,
			Status:   s.gridPlanner.Status().String(),
			Cells:    res.Path,
		}, nil

	default:
		res, err := s.roadPlanner.Plan()
		if err != nil {
			return PlanResult{}, util.WrapErrorf(err, util.ErrorCode(err), "plan session %s", s.id)
		}
		s.roadPath = res.Path
		base := s.overlay.Base()
		out := PlanResult{
			Found:    res.Found,
			Cost:     res.TotalCost,
			Expanded: res.Expanded,
			Status:   s.roadPlanner.Status().String(),
			Vertices: res.Path,
		}
		if res.Found {
			out.Polyline = base.EncodePath(res.Path)
			out.Bearing = base.InitialBearing(res.Path)
			out.Directions = guidance.NewDirectionBuilder(base).GetDrivingDirections(res.Path)
		}
		return out, nil
	}
}

func (s *Session) info() SessionInfo {
	info := SessionInfo{ID: s.id, Kind: s.kind, LastUsed: s.lastUsed}
	switch s.kind {
	case SESSION_GRID:
		info.Status = s.gridPlanner.Status().String()
		info.Pending = s.gridPlanner.PendingEdgeChanges()
		info.Stats = s.gridPlanner.Stats()
		info.StartCell, info.GoalCell = s.gridPlanner.Start(), s.gridPlanner.Goal()
		info.Width, info.Height = s.grid.Width(), s.grid.Height()
	case SESSION_ROAD:
		info.Status = s.roadPlanner.Status().String()
		info.Pending = s.roadPlanner.PendingEdgeChanges()
		info.Stats = s.roadPlanner.Stats()
		info.StartVertex, info.GoalVertex = s.roadPlanner.Start(), s.roadPlanner.Goal()
	}
	return info
}
