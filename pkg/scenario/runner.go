package scenario

import (
	"fmt"
	"math"

	da "github.com/lintang-b-s/replanx/pkg/datastructure"
	"github.com/lintang-b-s/replanx/pkg/engine/dstarlite"
	"github.com/lintang-b-s/replanx/pkg/engine/routing"
	"github.com/lintang-b-s/replanx/pkg/grid"
	"go.uber.org/zap"
)

type StepReport struct {
	Index     int         `json:"index" yaml:"index"`
	Action    Action      `json:"action" yaml:"action"`
	Status    string      `json:"status" yaml:"status"`
	Found     bool        `json:"found" yaml:"found"`
	Cost      float64     `json:"cost" yaml:"cost"`
	Path      []grid.Cell `json:"path,omitempty" yaml:"path,omitempty"`
	Expanded  int         `json:"expanded" yaml:"expanded"`
	Reference float64     `json:"reference_cost" yaml:"reference_cost"`
	Passed    bool        `json:"passed" yaml:"passed"`
	Message   string      `json:"message,omitempty" yaml:"message,omitempty"`
}

type Report struct {
	Name   string          `json:"name" yaml:"name"`
	Steps  []StepReport    `json:"steps" yaml:"steps"`
	Stats  dstarlite.Stats `json:"stats" yaml:"stats"`
	Passed bool            `json:"passed" yaml:"passed"`
}

type runOptions struct {
	logger     *zap.Logger
	verify     bool
	plannerOps []dstarlite.Option[grid.Cell]
}

type RunOption func(*runOptions)

func WithLogger(logger *zap.Logger) RunOption {
	return func(o *runOptions) { o.logger = logger }
}

// WithReferenceCheck compares every plan against a full Dijkstra recompute.
func WithReferenceCheck() RunOption {
	return func(o *runOptions) { o.verify = true }
}

func WithPlannerOptions(opts ...dstarlite.Option[grid.Cell]) RunOption {
	return func(o *runOptions) { o.plannerOps = append(o.plannerOps, opts...) }
}

// Run executes the steps in order. A failed expectation is recorded in the report and does not
// stop the run; planner errors do.
func Run(sc *Scenario, opts ...RunOption) (*Report, error) {
	ro := runOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&ro)
	}

	m, start, goal, err := sc.LoadMap()
	if err != nil {
		return nil, err
	}
	h, err := grid.HeuristicByName(sc.Heuristic, m.Grid.Connectivity())
	if err != nil {
		return nil, err
	}

	plannerOpts := append([]dstarlite.Option[grid.Cell]{dstarlite.WithLogger[grid.Cell](ro.logger)}, ro.plannerOps...)
	p, err := dstarlite.NewPlanner[grid.Cell](m.Grid, h, start, goal, plannerOpts...)
	if err != nil {
		return nil, err
	}

	report := &Report{Name: sc.Name, Steps: make([]StepReport, 0, len(sc.Steps)), Passed: true}
	var lastPath []grid.Cell

	for i, st := range sc.Steps {
		sr := StepReport{Index: i, Action: st.Action, Passed: true}

		switch st.Action {
		case ACTION_PLAN:
			res, err := p.Plan()
			if err != nil {
				return report, fmt.Errorf("step %d: %w", i, err)
			}
			lastPath = res.Path
			sr.Found, sr.Cost, sr.Path, sr.Expanded = res.Found, res.TotalCost, res.Path, res.Expanded
			if !res.Found {
				sr.Cost = math.Inf(1)
			}
			checkExpectations(&sr, st)
			if ro.verify {
				sr.Reference = routing.ShortestPathCost[grid.Cell](m.Grid, p.Start(), goal)
				if !da.Eq(sr.Reference, sr.Cost) {
					sr.Passed = false
					sr.Message = fmt.Sprintf("incremental cost %v differs from full recompute %v", sr.Cost, sr.Reference)
				}
			}

		case ACTION_MOVE:
			next, err := moveTarget(st, lastPath)
			if err != nil {
				return report, fmt.Errorf("step %d: %w", i, err)
			}
			if err := p.MoveStart(next); err != nil {
				return report, fmt.Errorf("step %d: %w", i, err)
			}
			lastPath = nil

		case ACTION_BLOCK, ACTION_UNBLOCK:
			for _, c := range st.Cells {
				if !m.Grid.InBounds(c) {
					return report, fmt.Errorf("step %d: %v: %w", i, c, grid.ErrOutOfBounds)
				}
				var changes []dstarlite.EdgeChange[grid.Cell]
				if st.Action == ACTION_UNBLOCK {
					changes = m.Grid.UnblockCell(c)
				} else {
					changes = m.Grid.BlockCell(c)
				}
				if err := p.NotifyEdgesChanged(changes...); err != nil {
					return report, fmt.Errorf("step %d: %w", i, err)
				}
			}

		case ACTION_SET_COST:
			if err := p.NotifyEdgeChanged(*st.From, *st.To, *st.Cost); err != nil {
				return report, fmt.Errorf("step %d: %w", i, err)
			}
		}

		sr.Status = p.Status().String()
		if !sr.Passed {
			report.Passed = false
			ro.logger.Warn("scenario step failed", zap.String("scenario", sc.Name),
				zap.Int("step", i), zap.String("reason", sr.Message))
		}
		report.Steps = append(report.Steps, sr)
	}

	report.Stats = p.Stats()
	return report, nil
}

func checkExpectations(sr *StepReport, st Step) {
	if st.ExpectFound != nil && *st.ExpectFound != sr.Found {
		sr.Passed = false
		sr.Message = fmt.Sprintf("expected found=%v, got %v", *st.ExpectFound, sr.Found)
		return
	}
	if st.ExpectCost != nil && !da.Eq(*st.ExpectCost, sr.Cost) {
		sr.Passed = false
		sr.Message = fmt.Sprintf("expected cost %v, got %v", *st.ExpectCost, sr.Cost)
	}
}

// moveTarget resolves a move step: an explicit cell, or Advance vertices along the last plan.
func moveTarget(st Step, lastPath []grid.Cell) (grid.Cell, error) {
	if st.Cell != nil {
		return *st.Cell, nil
	}
	if len(lastPath) == 0 {
		return grid.Cell{}, fmt.Errorf("%w: advance without a preceding plan", ErrInvalidStep)
	}
	idx := st.Advance
	if idx >= len(lastPath) {
		idx = len(lastPath) - 1
	}
	return lastPath[idx], nil
}
