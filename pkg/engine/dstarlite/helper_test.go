package dstarlite_test

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/lintang-b-s/replanx/pkg/engine/dstarlite"
	"github.com/lintang-b-s/replanx/pkg/grid"
)

var errNoEdge = errors.New("no such edge")

// directedGraph is a small adjacency-list graph with one-way edges.
type directedGraph struct {
	n    int
	out  [][]dstarlite.Arc[int]
	in   [][]dstarlite.Arc[int]
	pos  [][2]float64
	open bool // when set, HasVertex accepts anything
}

func newDirectedGraph(n int) *directedGraph {
	return &directedGraph{
		n:   n,
		out: make([][]dstarlite.Arc[int], n),
		in:  make([][]dstarlite.Arc[int], n),
		pos: make([][2]float64, n),
	}
}

func (g *directedGraph) addEdge(u, v int, cost float64) {
	g.out[u] = append(g.out[u], dstarlite.NewArc(v, cost))
	g.in[v] = append(g.in[v], dstarlite.NewArc(u, cost))
}

func (g *directedGraph) Successors(v int) []dstarlite.Arc[int] {
	return g.out[v]
}

func (g *directedGraph) Predecessors(v int) []dstarlite.Arc[int] {
	return g.in[v]
}

func (g *directedGraph) HasVertex(v int) bool {
	return g.open || (v >= 0 && v < g.n)
}

func (g *directedGraph) SetEdgeCost(u, v int, cost float64) error {
	found := false
	for i := range g.out[u] {
		if g.out[u][i].To == v {
			g.out[u][i].Cost = cost
			found = true
		}
	}
	for i := range g.in[v] {
		if g.in[v][i].To == u {
			g.in[v][i].Cost = cost
		}
	}
	if !found {
		return fmt.Errorf("%d -> %d: %w", u, v, errNoEdge)
	}
	return nil
}

// euclid is consistent whenever every edge costs at least the distance between its endpoints.
func (g *directedGraph) euclid(a, b int) float64 {
	return math.Hypot(g.pos[a][0]-g.pos[b][0], g.pos[a][1]-g.pos[b][1])
}

// randomDirectedGraph places n vertices on a plane and connects each to a few random others with
// cost = distance * stretch, stretch >= 1.
func randomDirectedGraph(rng *rand.Rand, n, degree int) *directedGraph {
	g := newDirectedGraph(n)
	for i := 0; i < n; i++ {
		g.pos[i] = [2]float64{rng.Float64() * 100, rng.Float64() * 100}
	}
	for u := 0; u < n; u++ {
		for d := 0; d < degree; d++ {
			v := rng.Intn(n)
			if v == u {
				continue
			}
			g.addEdge(u, v, g.euclid(u, v)*(1+rng.Float64()))
		}
	}
	return g
}

// obstacleGrid builds a grid with a deterministic obstacle pattern of the given density.
func obstacleGrid(rng *rand.Rand, w, h int, conn grid.Connectivity, density float64,
	keep ...grid.Cell) *grid.Grid {
	g, err := grid.New(w, h, conn)
	if err != nil {
		panic(err)
	}
	kept := make(map[grid.Cell]struct{}, len(keep))
	for _, c := range keep {
		kept[c] = struct{}{}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := grid.NewCell(x, y)
			if _, ok := kept[c]; ok {
				continue
			}
			if rng.Float64() < density {
				_ = g.SetObstacle(c, true)
			}
		}
	}
	return g
}

func pathCost(g *grid.Grid, path []grid.Cell) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += g.Cost(path[i-1], path[i])
	}
	return total
}
