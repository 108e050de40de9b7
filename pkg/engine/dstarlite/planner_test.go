package dstarlite_test

import (
	"math"
	"math/rand"
	"testing"

	da "github.com/lintang-b-s/replanx/pkg/datastructure"
	"github.com/lintang-b-s/replanx/pkg/engine/dstarlite"
	"github.com/lintang-b-s/replanx/pkg/engine/routing"
	"github.com/lintang-b-s/replanx/pkg/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const costDelta = 1e-7

func newGridPlanner(t *testing.T, g *grid.Grid, start, goal grid.Cell,
	opts ...dstarlite.Option[grid.Cell]) *dstarlite.Planner[grid.Cell] {
	t.Helper()
	p, err := dstarlite.NewPlanner[grid.Cell](g, grid.HeuristicFor(g.Connectivity()), start, goal, opts...)
	require.NoError(t, err)
	return p
}

func assertValidGridPath(t *testing.T, g *grid.Grid, res dstarlite.Result[grid.Cell], start, goal grid.Cell) {
	t.Helper()
	require.NotEmpty(t, res.Path)
	assert.Equal(t, start, res.Path[0])
	assert.Equal(t, goal, res.Path[len(res.Path)-1])
	for i := 1; i < len(res.Path); i++ {
		require.True(t, g.Adjacent(res.Path[i-1], res.Path[i]), "%v -> %v", res.Path[i-1], res.Path[i])
		require.False(t, math.IsInf(g.Cost(res.Path[i-1], res.Path[i]), 1), "path crosses a blocked edge")
	}
	assert.InDelta(t, pathCost(g, res.Path), res.TotalCost, costDelta)
}

func TestOpenGridPath(t *testing.T) {
	g, err := grid.New(3, 3, grid.Conn4)
	require.NoError(t, err)
	start, goal := grid.NewCell(0, 0), grid.NewCell(2, 2)

	p := newGridPlanner(t, g, start, goal)
	assert.Equal(t, dstarlite.STATE_INIT, p.Status())

	res, err := p.Plan()
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, 4.0, res.TotalCost)
	assert.Len(t, res.Path, 5)
	assertValidGridPath(t, g, res, start, goal)
	assert.Equal(t, dstarlite.STATE_PLAN, p.Status())
	assert.Equal(t, 4.0, p.G(start))
}

func TestDetourAroundBlockedCentre(t *testing.T) {
	g, err := grid.New(3, 3, grid.Conn4)
	require.NoError(t, err)
	start, goal := grid.NewCell(0, 0), grid.NewCell(2, 2)
	center := grid.NewCell(1, 1)

	p := newGridPlanner(t, g, start, goal)
	_, err = p.Plan()
	require.NoError(t, err)

	require.NoError(t, p.NotifyEdgesChanged(g.BlockCell(center)...))
	res, err := p.Plan()
	require.NoError(t, err)
	require.True(t, res.Found)

	assert.Equal(t, 4.0, res.TotalCost)
	assert.NotContains(t, res.Path, center)
	assertValidGridPath(t, g, res, start, goal)
	assert.InDelta(t, routing.ShortestPathCost[grid.Cell](g, start, goal), res.TotalCost, costDelta)
}

func TestStaticGraphMatchesDijkstra(t *testing.T) {
	testCases := []struct {
		name    string
		conn    grid.Connectivity
		density float64
	}{
		{name: "conn4 sparse", conn: grid.Conn4, density: 0.1},
		{name: "conn4 dense", conn: grid.Conn4, density: 0.3},
		{name: "conn8 sparse", conn: grid.Conn8, density: 0.1},
		{name: "conn8 dense", conn: grid.Conn8, density: 0.35},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			for seed := int64(1); seed <= 8; seed++ {
				rng := rand.New(rand.NewSource(seed))
				start, goal := grid.NewCell(0, 0), grid.NewCell(19, 14)
				g := obstacleGrid(rng, 20, 15, tt.conn, tt.density, start, goal)

				p := newGridPlanner(t, g, start, goal)
				res, err := p.Plan()
				require.NoError(t, err)

				want := routing.ShortestPathCost[grid.Cell](g, start, goal)
				if math.IsInf(want, 1) {
					assert.False(t, res.Found, "seed %d", seed)
					assert.Equal(t, dstarlite.STATE_NO_PATH, p.Status())
					continue
				}
				require.True(t, res.Found, "seed %d", seed)
				assert.InDelta(t, want, res.TotalCost, costDelta, "seed %d", seed)
				assertValidGridPath(t, g, res, start, goal)
			}
		})
	}
}

func TestPlanIsIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	start, goal := grid.NewCell(0, 0), grid.NewCell(14, 9)
	g := obstacleGrid(rng, 15, 10, grid.Conn8, 0.2, start, goal)
	p := newGridPlanner(t, g, start, goal)

	first, err := p.Plan()
	require.NoError(t, err)
	second, err := p.Plan()
	require.NoError(t, err)

	assert.Equal(t, first.Path, second.Path)
	assert.Equal(t, first.TotalCost, second.TotalCost)
	assert.Equal(t, first.Found, second.Found)
	assert.Equal(t, 0, second.Expanded)
}

func TestIncrementalMatchesFullRecompute(t *testing.T) {
	for _, conn := range []grid.Connectivity{grid.Conn4, grid.Conn8} {
		t.Run(conn.String(), func(t *testing.T) {
			for seed := int64(1); seed <= 5; seed++ {
				rng := rand.New(rand.NewSource(seed))
				start, goal := grid.NewCell(0, 0), grid.NewCell(24, 19)
				g := obstacleGrid(rng, 25, 20, conn, 0.15, start, goal)
				p := newGridPlanner(t, g, start, goal)

				_, err := p.Plan()
				require.NoError(t, err)

				for round := 0; round < 25; round++ {
					changes := make([]dstarlite.EdgeChange[grid.Cell], 0)
					for k := 0; k < 3; k++ {
						c := grid.NewCell(rng.Intn(25), rng.Intn(20))
						if c == p.Start() || c == goal {
							continue
						}
						if rng.Intn(3) == 0 {
							changes = append(changes, g.UnblockCell(c)...)
						} else {
							changes = append(changes, g.BlockCell(c)...)
						}
					}
					for k := 0; k < 4; k++ {
						u := grid.NewCell(rng.Intn(25), rng.Intn(20))
						succ := g.Successors(u)
						v := succ[rng.Intn(len(succ))].To
						changes = append(changes, dstarlite.NewEdgeChange(u, v, grid.MoveCost(u, v)*(1+3*rng.Float64())))
					}
					require.NoError(t, p.NotifyEdgesChanged(changes...))

					res, err := p.Plan()
					require.NoError(t, err)

					want := routing.ShortestPathCost[grid.Cell](g, p.Start(), goal)
					if math.IsInf(want, 1) {
						assert.False(t, res.Found, "seed %d round %d", seed, round)
						continue
					}
					require.True(t, res.Found, "seed %d round %d", seed, round)
					assert.InDelta(t, want, res.TotalCost, costDelta, "seed %d round %d", seed, round)
					assertValidGridPath(t, g, res, p.Start(), goal)

					if len(res.Path) > 2 {
						require.NoError(t, p.MoveStart(res.Path[1]))
					}
				}
			}
		})
	}
}

// Octile keys tie along optimal diagonal paths up to rounding; the loop must not stop on one
// of those near-ties while the current position still depends on an underconsistent vertex.
func TestIncrementalDiagonalGridStress(t *testing.T) {
	if testing.Short() {
		t.Skip("stress run")
	}
	const w, h = 60, 50
	for seed := int64(1); seed <= 12; seed++ {
		rng := rand.New(rand.NewSource(seed))
		start, goal := grid.NewCell(0, 0), grid.NewCell(w-1, h-1)
		g := obstacleGrid(rng, w, h, grid.Conn8, 0.2, start, goal)
		p := newGridPlanner(t, g, start, goal)

		for round := 0; round < 40; round++ {
			res, err := p.Plan()
			require.NoError(t, err)

			want := routing.ShortestPathCost[grid.Cell](g, p.Start(), goal)
			if math.IsInf(want, 1) {
				require.False(t, res.Found, "seed %d round %d", seed, round)
				require.True(t, math.IsInf(p.G(p.Start()), 1), "seed %d round %d", seed, round)
			} else {
				require.True(t, res.Found, "seed %d round %d", seed, round)
				require.InDelta(t, want, res.TotalCost, costDelta, "seed %d round %d", seed, round)
				require.InDelta(t, want, p.G(p.Start()), costDelta, "seed %d round %d", seed, round)
				if len(res.Path) > 2 {
					require.NoError(t, p.MoveStart(res.Path[1]))
				}
			}

			changes := make([]dstarlite.EdgeChange[grid.Cell], 0)
			for k := 0; k < 6; k++ {
				c := grid.NewCell(rng.Intn(w), rng.Intn(h))
				if c == p.Start() || c == goal {
					continue
				}
				if g.IsBlocked(c) {
					changes = append(changes, g.UnblockCell(c)...)
				} else {
					changes = append(changes, g.BlockCell(c)...)
				}
			}
			require.NoError(t, p.NotifyEdgesChanged(changes...))
		}
	}
}

func TestUnblockingNeighborKeepsBlockedGoalClosed(t *testing.T) {
	g, err := grid.New(3, 1, grid.Conn4)
	require.NoError(t, err)
	start, mid, goal := grid.NewCell(0, 0), grid.NewCell(1, 0), grid.NewCell(2, 0)
	p := newGridPlanner(t, g, start, goal)

	require.NoError(t, p.NotifyEdgesChanged(g.BlockCell(goal)...))
	require.NoError(t, p.NotifyEdgesChanged(g.BlockCell(mid)...))
	res, err := p.Plan()
	require.NoError(t, err)
	assert.False(t, res.Found)

	require.NoError(t, p.NotifyEdgesChanged(g.UnblockCell(mid)...))
	res, err = p.Plan()
	require.NoError(t, err)
	assert.False(t, res.Found, "goal is still blocked")
	assert.Equal(t, dstarlite.STATE_NO_PATH, p.Status())

	require.NoError(t, p.NotifyEdgesChanged(g.UnblockCell(goal)...))
	res, err = p.Plan()
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, 2.0, res.TotalCost)
}

func TestIncrementalDirectedGraph(t *testing.T) {
	for seed := int64(1); seed <= 6; seed++ {
		rng := rand.New(rand.NewSource(seed))
		g := randomDirectedGraph(rng, 80, 4)
		start, goal := 0, 79

		p, err := dstarlite.NewPlanner[int](g, g.euclid, start, goal, dstarlite.WithStrictHeuristic[int]())
		require.NoError(t, err)

		for round := 0; round < 20; round++ {
			res, err := p.Plan()
			require.NoError(t, err)

			_, want, reachable := routing.NewDijkstra[int](g).ShortestPath(p.Start(), goal)
			if !reachable {
				assert.False(t, res.Found, "seed %d round %d", seed, round)
			} else {
				require.True(t, res.Found, "seed %d round %d", seed, round)
				assert.InDelta(t, want, res.TotalCost, costDelta, "seed %d round %d", seed, round)
				if len(res.Path) > 2 && rng.Intn(2) == 0 {
					require.NoError(t, p.MoveStart(res.Path[1]))
				}
			}

			for k := 0; k < 5; k++ {
				u := rng.Intn(g.n)
				if len(g.out[u]) == 0 {
					continue
				}
				v := g.out[u][rng.Intn(len(g.out[u]))].To
				cost := g.euclid(u, v) * (1 + 2*rng.Float64())
				if rng.Intn(4) == 0 {
					cost = math.Inf(1)
				}
				require.NoError(t, p.NotifyEdgeChanged(u, v, cost))
			}
		}
	}
}

func TestExpandedKeysAreMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	start, goal := grid.NewCell(0, 0), grid.NewCell(29, 29)
	g := obstacleGrid(rng, 30, 30, grid.Conn8, 0.2, start, goal)

	var popped []da.Key
	p := newGridPlanner(t, g, start, goal, dstarlite.WithExpansionObserver[grid.Cell](func(_ grid.Cell, k da.Key) {
		popped = append(popped, k)
	}))

	for round := 0; round < 15; round++ {
		popped = popped[:0]
		res, err := p.Plan()
		require.NoError(t, err)

		for i := 1; i < len(popped); i++ {
			require.True(t, da.Le(popped[i-1].K1, popped[i].K1),
				"round %d: k1 decreased from %v to %v", round, popped[i-1], popped[i])
		}

		if res.Found && len(res.Path) > 3 {
			require.NoError(t, p.MoveStart(res.Path[1]))
			blocked := res.Path[len(res.Path)/2]
			if blocked != goal && blocked != p.Start() {
				require.NoError(t, p.NotifyEdgesChanged(g.BlockCell(blocked)...))
			}
		}
	}
}

func TestDisconnectedGoal(t *testing.T) {
	m, err := grid.ParseRows([]string{
		"S.#..",
		"..#..",
		"..#..",
		"..#.G",
	}, grid.Conn8)
	require.NoError(t, err)
	start, goal, err := m.StartGoal()
	require.NoError(t, err)

	p := newGridPlanner(t, m.Grid, start, goal)
	res, err := p.Plan()
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Nil(t, res.Path)
	assert.Equal(t, dstarlite.STATE_NO_PATH, p.Status())

	res, err = p.Plan()
	require.NoError(t, err)
	assert.False(t, res.Found, "no path is not fatal and stays stable")

	require.NoError(t, p.NotifyEdgesChanged(m.Grid.UnblockCell(grid.NewCell(2, 1))...))
	res, err = p.Plan()
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.InDelta(t, routing.ShortestPathCost[grid.Cell](m.Grid, start, goal), res.TotalCost, costDelta)
	assert.Contains(t, res.Path, grid.NewCell(2, 1))
}

func TestStartEqualsGoal(t *testing.T) {
	g, err := grid.New(2, 2, grid.Conn4)
	require.NoError(t, err)
	c := grid.NewCell(1, 1)

	p := newGridPlanner(t, g, c, c)
	assert.Equal(t, dstarlite.STATE_SUCCESS, p.Status())
	res, err := p.Plan()
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, []grid.Cell{c}, res.Path)
	assert.Equal(t, 0.0, res.TotalCost)
}

func TestMoveToGoal(t *testing.T) {
	g, err := grid.New(4, 1, grid.Conn4)
	require.NoError(t, err)
	start, goal := grid.NewCell(0, 0), grid.NewCell(3, 0)
	p := newGridPlanner(t, g, start, goal)

	res, err := p.Plan()
	require.NoError(t, err)
	for _, c := range res.Path[1:] {
		require.NoError(t, p.MoveStart(c))
		res, err = p.Plan()
		require.NoError(t, err)
		require.True(t, res.Found)
		assert.InDelta(t, float64(goal.X-c.X), res.TotalCost, costDelta)
	}
	assert.Equal(t, dstarlite.STATE_SUCCESS, p.Status())
	assert.Equal(t, 3.0, p.KeyModifier())
}

func TestMoveAndNotifyDoNotReplan(t *testing.T) {
	g, err := grid.New(5, 5, grid.Conn4)
	require.NoError(t, err)
	start, goal := grid.NewCell(0, 0), grid.NewCell(4, 4)
	p := newGridPlanner(t, g, start, goal)

	_, err = p.Plan()
	require.NoError(t, err)
	before := p.Stats()

	require.NoError(t, p.NotifyEdgesChanged(g.BlockCell(grid.NewCell(2, 2))...))
	assert.Equal(t, 8, p.PendingEdgeChanges())
	assert.Equal(t, 1.0, g.Cost(grid.NewCell(2, 1), grid.NewCell(2, 2)), "graph untouched until Plan")

	require.NoError(t, p.MoveStart(grid.NewCell(1, 0)))
	assert.Equal(t, dstarlite.STATE_MOVE, p.Status())
	assert.Equal(t, 1.0, p.KeyModifier())

	after := p.Stats()
	assert.Equal(t, before.Expanded, after.Expanded)
	assert.Equal(t, before.Replans, after.Replans)
	assert.Equal(t, 0, after.EdgeChanges)

	res, err := p.Plan()
	require.NoError(t, err)
	assert.Equal(t, 0, p.PendingEdgeChanges())
	assert.Equal(t, 8, p.Stats().EdgeChanges)
	assert.True(t, res.Found)
	assert.InDelta(t, 7.0, res.TotalCost, costDelta)
}

func TestVertexStateIsDerived(t *testing.T) {
	g, err := grid.New(6, 6, grid.Conn4)
	require.NoError(t, err)
	start, goal := grid.NewCell(0, 0), grid.NewCell(5, 5)
	p := newGridPlanner(t, g, start, goal)

	assert.True(t, p.InOpenList(goal))
	assert.True(t, p.Visited(goal))
	assert.False(t, p.Visited(start))
	assert.Equal(t, 0.0, p.Rhs(goal))
	assert.True(t, math.IsInf(p.G(start), 1))

	_, err = p.Plan()
	require.NoError(t, err)
	assert.False(t, p.InOpenList(start))
	assert.Equal(t, p.G(start), p.Rhs(start))
	assert.Equal(t, 0.0, p.Rhs(goal), "goal rhs never changes")
}

func TestHeuristicPreconditions(t *testing.T) {
	g, err := grid.New(5, 5, grid.Conn4)
	require.NoError(t, err)
	start, goal := grid.NewCell(0, 0), grid.NewCell(4, 4)

	_, err = dstarlite.NewPlanner[grid.Cell](g, func(a, b grid.Cell) float64 { return -1 }, start, goal)
	assert.ErrorIs(t, err, dstarlite.ErrInvalidHeuristic)

	_, err = dstarlite.NewPlanner[grid.Cell](g, func(a, b grid.Cell) float64 { return math.NaN() }, start, goal)
	assert.ErrorIs(t, err, dstarlite.ErrInvalidHeuristic)

	inflated := func(a, b grid.Cell) float64 { return 3 * grid.Manhattan(a, b) }
	p, err := dstarlite.NewPlanner[grid.Cell](g, inflated, start, goal, dstarlite.WithStrictHeuristic[grid.Cell]())
	require.NoError(t, err)
	_, err = p.Plan()
	assert.ErrorIs(t, err, dstarlite.ErrInvalidHeuristic)

	p, err = dstarlite.NewPlanner[grid.Cell](g, inflated, start, goal)
	require.NoError(t, err)
	res, err := p.Plan()
	require.NoError(t, err, "inconsistent heuristics are unsupported but must not crash")
	assert.True(t, res.Found)
}

func TestGraphContractViolations(t *testing.T) {
	t.Run("negative cost", func(t *testing.T) {
		g := newDirectedGraph(3)
		g.addEdge(0, 1, 1)
		g.addEdge(1, 2, -1)
		p, err := dstarlite.NewPlanner[int](g, func(a, b int) float64 { return 0 }, 0, 2)
		require.NoError(t, err)
		_, err = p.Plan()
		assert.ErrorIs(t, err, dstarlite.ErrContractViolation)
	})

	t.Run("vertex outside the domain", func(t *testing.T) {
		g := newDirectedGraph(2)
		g.addEdge(0, 1, 1)
		g.in[1] = append(g.in[1], dstarlite.NewArc(42, 1.0))
		p, err := dstarlite.NewPlanner[int](g, func(a, b int) float64 { return 0 }, 0, 1)
		require.NoError(t, err)
		_, err = p.Plan()
		assert.ErrorIs(t, err, dstarlite.ErrContractViolation)
	})

	t.Run("start outside the domain", func(t *testing.T) {
		g := newDirectedGraph(2)
		_, err := dstarlite.NewPlanner[int](g, func(a, b int) float64 { return 0 }, 5, 1)
		assert.ErrorIs(t, err, dstarlite.ErrContractViolation)
	})

	t.Run("invalid edge change", func(t *testing.T) {
		g := newDirectedGraph(2)
		g.addEdge(0, 1, 1)
		p, err := dstarlite.NewPlanner[int](g, func(a, b int) float64 { return 0 }, 0, 1)
		require.NoError(t, err)
		assert.ErrorIs(t, p.NotifyEdgeChanged(0, 1, -2), dstarlite.ErrContractViolation)
		assert.ErrorIs(t, p.NotifyEdgeChanged(0, 1, math.NaN()), dstarlite.ErrContractViolation)
		assert.ErrorIs(t, p.NotifyEdgeChanged(0, 9, 1), dstarlite.ErrContractViolation)
		assert.ErrorIs(t, p.MoveStart(9), dstarlite.ErrContractViolation)
		assert.Equal(t, 0, p.PendingEdgeChanges())
	})
}

func TestEdgeSetterErrorDropsFailingChange(t *testing.T) {
	g := newDirectedGraph(3)
	g.addEdge(0, 1, 1)
	g.addEdge(1, 2, 1)
	g.addEdge(0, 2, 5)
	p, err := dstarlite.NewPlanner[int](g, func(a, b int) float64 { return 0 }, 0, 2)
	require.NoError(t, err)

	require.NoError(t, p.NotifyEdgeChanged(2, 0, 1)) // no such edge
	_, err = p.Plan()
	assert.ErrorIs(t, err, errNoEdge)
	assert.Equal(t, 0, p.PendingEdgeChanges())

	res, err := p.Plan()
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, []int{0, 1, 2}, res.Path)
	assert.Equal(t, 2.0, res.TotalCost)
}

func TestEdgeSetterErrorKeepsRestOfBatch(t *testing.T) {
	g := newDirectedGraph(3)
	g.addEdge(0, 1, 1)
	g.addEdge(1, 2, 1)
	g.addEdge(0, 2, 5)
	p, err := dstarlite.NewPlanner[int](g, func(a, b int) float64 { return 0 }, 0, 2)
	require.NoError(t, err)
	_, err = p.Plan()
	require.NoError(t, err)

	require.NoError(t, p.NotifyEdgesChanged(
		dstarlite.NewEdgeChange(2, 0, 1), // no such edge
		dstarlite.NewEdgeChange(1, 2, math.Inf(1)),
	))
	_, err = p.Plan()
	assert.ErrorIs(t, err, errNoEdge)
	assert.Equal(t, 0, p.PendingEdgeChanges())

	res, err := p.Plan()
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, []int{0, 2}, res.Path, "the valid change of the batch was applied")
	assert.Equal(t, 5.0, res.TotalCost)
}

func TestValidatedBatchIsAllOrNothing(t *testing.T) {
	g, err := grid.New(3, 3, grid.Conn4)
	require.NoError(t, err)
	start, goal := grid.NewCell(0, 0), grid.NewCell(2, 2)
	p := newGridPlanner(t, g, start, goal)
	_, err = p.Plan()
	require.NoError(t, err)

	batch := g.BlockCell(grid.NewCell(1, 0))
	batch = append(batch, dstarlite.NewEdgeChange(grid.NewCell(0, 1), grid.NewCell(0, 2), 0.5))
	err = p.NotifyEdgesChanged(batch...)
	assert.ErrorIs(t, err, grid.ErrBelowBaseCost)
	assert.Equal(t, 0, p.PendingEdgeChanges())

	res, err := p.Plan()
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, 4.0, res.TotalCost)
	assert.Equal(t, 1.0, g.Cost(grid.NewCell(0, 0), grid.NewCell(1, 0)), "nothing of the batch reached the grid")
}
