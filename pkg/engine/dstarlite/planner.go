package dstarlite

import (
	"math"

	"github.com/lintang-b-s/replanx/pkg"
	da "github.com/lintang-b-s/replanx/pkg/datastructure"
	"github.com/lintang-b-s/replanx/pkg/util"
	"go.uber.org/zap"
)

type Planner[V comparable] struct {
	graph     Graph[V]
	heuristic Heuristic[V]
	setter    EdgeCostSetter[V]
	validator EdgeCostValidator[V]
	domain    VertexDomain[V]

	start V
	goal  V
	km    float64

	store *vertexStore[V]
	open  *openList[V]

	pending  []EdgeChange[V]
	state    State
	planning bool

	stats Stats
	opts  Options[V]
}

// NewPlanner initializes a planner for start and goal: rhs(goal) = 0, km = 0 and the goal is the
// only open vertex. No search runs until Plan is called.
func NewPlanner[V comparable](graph Graph[V], heuristic Heuristic[V], start, goal V,
	options ...Option[V]) (*Planner[V], error) {
	if graph == nil || heuristic == nil {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "dstarlite: graph and heuristic are required")
	}

	opts := defaultOptions[V]()
	for _, option := range options {
		option(&opts)
	}

	p := &Planner[V]{
		graph:     graph,
		heuristic: heuristic,
		start:     start,
		goal:      goal,
		store:     newVertexStore[V](),
		open:      newOpenList[V](opts.heapArity),
		pending:   make([]EdgeChange[V], 0),
		state:     STATE_INIT,
		opts:      opts,
	}
	if setter, ok := graph.(EdgeCostSetter[V]); ok {
		p.setter = setter
	}
	if validator, ok := graph.(EdgeCostValidator[V]); ok {
		p.validator = validator
	}
	if domain, ok := graph.(VertexDomain[V]); ok {
		p.domain = domain
	}

	if err := p.checkVertex(start); err != nil {
		return nil, err
	}
	if err := p.checkVertex(goal); err != nil {
		return nil, err
	}

	p.store.get(goal).rhs = 0
	goalKey, err := p.calculateKey(goal)
	if err != nil {
		return nil, err
	}
	p.open.push(goal, goalKey)
	p.stats.Pushed++

	if start == goal {
		p.state = STATE_SUCCESS
	}
	return p, nil
}

func (p *Planner[V]) Start() V {
	return p.start
}

func (p *Planner[V]) Goal() V {
	return p.goal
}

func (p *Planner[V]) Status() State {
	return p.state
}

func (p *Planner[V]) KeyModifier() float64 {
	return p.km
}

func (p *Planner[V]) Stats() Stats {
	s := p.stats
	s.StalePops = p.open.stalePops
	s.TouchedVertice = p.store.size()
	s.OpenListSize = p.open.size()
	return s
}

// G returns the current g-value of v (+Inf when v was never touched).
func (p *Planner[V]) G(v V) float64 {
	return p.store.g(v)
}

// Rhs returns the current rhs-value of v (+Inf when v was never touched).
func (p *Planner[V]) Rhs(v V) float64 {
	return p.store.rhs(v)
}

// InOpenList reports whether v is pending (re-)expansion.
func (p *Planner[V]) InOpenList(v V) bool {
	return p.open.contains(v)
}

// Visited reports whether the planner has ever assigned v a g or rhs value.
func (p *Planner[V]) Visited(v V) bool {
	return p.store.touched(v)
}

func (p *Planner[V]) PendingEdgeChanges() int {
	return len(p.pending)
}

func (p *Planner[V]) h(from, to V) (float64, error) {
	est := p.heuristic(from, to)
	if math.IsNaN(est) || est < 0 {
		return 0, util.WrapErrorf(ErrInvalidHeuristic, util.ErrBadParamInput,
			"heuristic(%v, %v) = %v", from, to, est)
	}
	return est, nil
}

// calculateKey computes (min(g,rhs) + h(start,v) + km, min(g,rhs)). Never cached.
func (p *Planner[V]) calculateKey(v V) (da.Key, error) {
	m := math.Min(p.store.g(v), p.store.rhs(v))
	est, err := p.h(p.start, v)
	if err != nil {
		return da.Key{}, err
	}
	return da.NewKey(m+est+p.km, m), nil
}

func (p *Planner[V]) checkVertex(v V) error {
	if p.domain != nil && !p.domain.HasVertex(v) {
		return util.WrapErrorf(ErrContractViolation, util.ErrBadParamInput, "vertex %v is not part of the graph", v)
	}
	return nil
}

func (p *Planner[V]) checkArc(from V, arc Arc[V]) error {
	if math.IsNaN(arc.Cost) || arc.Cost < 0 {
		return util.WrapErrorf(ErrContractViolation, util.ErrInternalServerError,
			"edge %v -> %v has invalid cost %v", from, arc.To, arc.Cost)
	}
	if p.domain != nil && !p.domain.HasVertex(arc.To) {
		return util.WrapErrorf(ErrContractViolation, util.ErrInternalServerError,
			"neighbor %v of %v is not part of the graph", arc.To, from)
	}
	return nil
}

// checkConsistency verifies h(start, s) <= h(start, u) + cost(u, s) for the edge u -> s.
func (p *Planner[V]) checkConsistency(u, s V, cost float64) error {
	if !p.opts.strictHeuristic || math.IsInf(cost, 1) {
		return nil
	}
	hu, err := p.h(p.start, u)
	if err != nil {
		return err
	}
	hs, err := p.h(p.start, s)
	if err != nil {
		return err
	}
	if da.Gt(hs, hu+cost) {
		return util.WrapErrorf(ErrInvalidHeuristic, util.ErrBadParamInput,
			"heuristic is inconsistent on edge %v -> %v: h(start,%v)=%v > h(start,%v)=%v + %v",
			u, s, s, hs, u, hu, cost)
	}
	return nil
}

// updateVertex recomputes rhs(u) from its forward successors and reconciles its open-list
// membership. It never recurses into neighbors.
func (p *Planner[V]) updateVertex(u V) error {
	if u != p.goal {
		rhs := pkg.INF_WEIGHT
		for _, arc := range p.graph.Successors(u) {
			if err := p.checkArc(u, arc); err != nil {
				return err
			}
			if err := p.checkConsistency(u, arc.To, arc.Cost); err != nil {
				return err
			}
			if c := arc.Cost + p.store.g(arc.To); c < rhs {
				rhs = c
			}
		}
		p.store.get(u).rhs = rhs
	}

	p.open.invalidate(u)

	if p.store.g(u) != p.store.rhs(u) {
		key, err := p.calculateKey(u)
		if err != nil {
			return err
		}
		p.open.push(u, key)
		p.stats.Pushed++
	}
	return nil
}

func (p *Planner[V]) updatePredecessors(u V) error {
	for _, arc := range p.graph.Predecessors(u) {
		if err := p.checkArc(u, arc); err != nil {
			return err
		}
		if err := p.updateVertex(arc.To); err != nil {
			return err
		}
	}
	return nil
}

// computeShortestPath pops vertices in key order until the current position is locally
// consistent and every open key has a k1 above the current position's k1.
func (p *Planner[V]) computeShortestPath() (int, error) {
	if p.planning {
		return 0, util.WrapErrorf(ErrReentrantPlan, util.ErrConflict, "compute shortest path")
	}
	p.planning = true
	defer func() { p.planning = false }()

	expanded := 0
	for !p.open.isEmpty() {
		startKey, err := p.calculateKey(p.start)
		if err != nil {
			return expanded, err
		}
		// keys tie along optimal diagonal paths up to rounding, so only a strictly larger k1 stops the loop
		top := p.open.peekMinKey()
		if (top.IsInf() || da.Gt(top.K1, startKey.K1)) && p.store.rhs(p.start) == p.store.g(p.start) {
			break
		}

		u, kOld, _ := p.open.popMin()
		kNew, err := p.calculateKey(u)
		if err != nil {
			return expanded, err
		}

		if kOld.Less(kNew) {
			// key went up since insertion (km grew after a move)
			p.open.push(u, kNew)
			p.stats.Pushed++
			p.stats.Requeued++
			continue
		}

		if p.opts.observer != nil {
			p.opts.observer(u, kOld)
		}
		expanded++

		info := p.store.get(u)
		if info.g > info.rhs {
			info.g = info.rhs
			if err := p.updatePredecessors(u); err != nil {
				return expanded, err
			}
		} else {
			info.g = pkg.INF_WEIGHT
			if err := p.updateVertex(u); err != nil {
				return expanded, err
			}
			if err := p.updatePredecessors(u); err != nil {
				return expanded, err
			}
		}
	}

	p.stats.Expanded += expanded
	p.opts.logger.Debug("shortest path converged",
		zap.Int("expanded", expanded),
		zap.Float64("g_start", p.store.g(p.start)),
		zap.Int("open", p.open.size()),
		zap.Int("heap", p.open.heapSize()))
	return expanded, nil
}
