package dstarlite

import (
	"math"

	da "github.com/lintang-b-s/replanx/pkg/datastructure"
	"github.com/lintang-b-s/replanx/pkg/util"
	"go.uber.org/zap"
)

// NotifyEdgeChanged buffers a cost change of the directed edge u -> v. Nothing is recomputed
// until the next Plan. Costs must be non-negative; +Inf blocks the edge.
func (p *Planner[V]) NotifyEdgeChanged(u, v V, cost float64) error {
	return p.NotifyEdgesChanged(NewEdgeChange(u, v, cost))
}

// NotifyEdgesChanged buffers a batch of edge changes. The whole batch is rejected if any change
// is invalid, including changes the graph's EdgeCostValidator refuses. Graphs without a validator
// can still fail in SetEdgeCost at the next Plan; that change is dropped and the rest of the
// pending changes are applied in the same Plan.
func (p *Planner[V]) NotifyEdgesChanged(changes ...EdgeChange[V]) error {
	for _, ch := range changes {
		if math.IsNaN(ch.Cost) || ch.Cost < 0 {
			return util.WrapErrorf(ErrContractViolation, util.ErrBadParamInput,
				"edge %v -> %v: invalid cost %v", ch.From, ch.To, ch.Cost)
		}
		if err := p.checkVertex(ch.From); err != nil {
			return err
		}
		if err := p.checkVertex(ch.To); err != nil {
			return err
		}
		if p.validator != nil {
			if err := p.validator.ValidateEdgeCost(ch.From, ch.To, ch.Cost); err != nil {
				return util.WrapErrorf(err, util.ErrBadParamInput, "edge %v -> %v", ch.From, ch.To)
			}
		}
	}
	p.pending = append(p.pending, changes...)
	return nil
}

// MoveStart advances the current position. km grows by h(old, new) so that keys already in the
// open list stay lower bounds. No recomputation happens here.
func (p *Planner[V]) MoveStart(newStart V) error {
	if p.planning {
		return util.WrapErrorf(ErrReentrantPlan, util.ErrConflict, "move during an in-progress computation")
	}
	if err := p.checkVertex(newStart); err != nil {
		return err
	}
	delta, err := p.h(p.start, newStart)
	if err != nil {
		return err
	}

	p.km += delta
	p.start = newStart
	p.stats.Moves++
	p.state = STATE_MOVE
	if newStart == p.goal {
		p.state = STATE_SUCCESS
	}

	p.opts.logger.Debug("start moved", zap.Any("start", newStart), zap.Float64("km", p.km))
	return nil
}

// applyEdgeChanges commits every buffered change to the graph and then updates the vertices
// whose rhs may depend on the changed edges. It runs only between convergence cycles.
func (p *Planner[V]) applyEdgeChanges() error {
	if len(p.pending) == 0 {
		return nil
	}
	p.state = STATE_EDGE_UPDATE

	affected := make([]V, 0, 2*len(p.pending))
	seen := make(map[V]struct{}, 2*len(p.pending))
	mark := func(v V) {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			affected = append(affected, v)
		}
	}

	var applyErr error
	for _, ch := range p.pending {
		if p.setter != nil {
			if err := p.setter.SetEdgeCost(ch.From, ch.To, ch.Cost); err != nil {
				if applyErr == nil {
					applyErr = util.WrapErrorf(err, util.ErrBadParamInput, "apply edge change %v -> %v", ch.From, ch.To)
				}
				continue
			}
		}
		p.stats.EdgeChanges++
		// u -> v feeds rhs(u); v is updated too so symmetric graphs stay covered
		mark(ch.From)
		mark(ch.To)
	}
	p.pending = p.pending[:0]

	for _, v := range affected {
		if err := p.updateVertex(v); err != nil {
			return err
		}
	}

	p.opts.logger.Debug("edge changes applied", zap.Int("affected_vertices", len(affected)))
	return applyErr
}

// Plan applies buffered edge changes, restores consistency around the current position and
// extracts a path by greedy descent over cost(current, s) + g(s). Found == false means NO_PATH.
func (p *Planner[V]) Plan() (Result[V], error) {
	if p.planning {
		return Result[V]{}, util.WrapErrorf(ErrReentrantPlan, util.ErrConflict, "plan")
	}

	if err := p.applyEdgeChanges(); err != nil {
		return Result[V]{}, err
	}

	p.state = STATE_PLAN
	p.stats.Replans++
	expanded, err := p.computeShortestPath()
	if err != nil {
		return Result[V]{Expanded: expanded}, err
	}

	if p.start == p.goal {
		p.state = STATE_SUCCESS
		return Result[V]{Path: []V{p.goal}, TotalCost: 0, Found: true, Expanded: expanded}, nil
	}

	if math.IsInf(p.store.rhs(p.start), 1) {
		p.state = STATE_NO_PATH
		p.opts.logger.Debug("no path", zap.Any("start", p.start), zap.Any("goal", p.goal))
		return Result[V]{Found: false, Expanded: expanded}, nil
	}

	path, cost, found, err := p.extractPath()
	if err != nil {
		return Result[V]{Expanded: expanded}, err
	}
	if !found {
		p.state = STATE_NO_PATH
		return Result[V]{Found: false, Expanded: expanded}, nil
	}

	return Result[V]{Path: path, TotalCost: cost, Found: true, Expanded: expanded}, nil
}

// extractPath walks from the current position to the goal, each step taking the successor with
// the smallest cost + g; ties go to the lower g, then to the graph's enumeration order.
// Vertices already on the path are skipped so zero-cost cycles cannot trap the walk.
func (p *Planner[V]) extractPath() ([]V, float64, bool, error) {
	path := []V{p.start}
	onPath := map[V]struct{}{p.start: {}}
	total := 0.0

	cur := p.start
	for cur != p.goal {
		if len(path) >= p.opts.maxPathLength {
			return nil, 0, false, util.WrapErrorf(ErrPathCycle, util.ErrInternalServerError,
				"path from %v exceeded %d vertices", p.start, p.opts.maxPathLength)
		}

		var (
			next      V
			nextCost  float64
			bestScore = math.Inf(1)
			bestG     = math.Inf(1)
			found     bool
		)
		for _, arc := range p.graph.Successors(cur) {
			if err := p.checkArc(cur, arc); err != nil {
				return nil, 0, false, err
			}
			if _, ok := onPath[arc.To]; ok {
				continue
			}
			gs := p.store.g(arc.To)
			score := arc.Cost + gs
			if math.IsInf(score, 1) {
				continue
			}
			if !found || da.Lt(score, bestScore) || (da.Eq(score, bestScore) && da.Lt(gs, bestG)) {
				next, nextCost, bestScore, bestG, found = arc.To, arc.Cost, score, gs, true
			}
		}
		if !found {
			return nil, 0, false, nil
		}

		total += nextCost
		path = append(path, next)
		onPath[next] = struct{}{}
		cur = next
	}
	return path, total, true, nil
}
