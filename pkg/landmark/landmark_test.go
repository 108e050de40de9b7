package landmark

import (
	"path/filepath"
	"testing"

	"github.com/lintang-b-s/replanx/pkg/engine/dstarlite"
	"github.com/lintang-b-s/replanx/pkg/engine/routing"
	"github.com/lintang-b-s/replanx/pkg/geo"
	"github.com/lintang-b-s/replanx/pkg/roadgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mesh is a rows x cols block of two-way streets, every street 1.5 times its straight-line length.
func mesh(t *testing.T, rows, cols int) *roadgraph.Graph {
	t.Helper()
	g := roadgraph.NewGraph()
	id := func(r, c int) roadgraph.Index { return roadgraph.Index(r*cols + c) }
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			g.AddVertex(int64(r*cols+c+1), geo.NewCoordinate(-7.75-0.003*float64(r), 110.36+0.003*float64(c)))
		}
	}
	link := func(u, v roadgraph.Index) {
		length := 1.5 * g.Distance(u, v)
		require.NoError(t, g.AddEdge(u, v, length))
		require.NoError(t, g.AddEdge(v, u, length))
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c+1 < cols {
				link(id(r, c), id(r, c+1))
			}
			if r+1 < rows {
				link(id(r, c), id(r+1, c))
			}
		}
	}
	return g
}

func TestLandmarkBoundsAreConsistent(t *testing.T) {
	g := mesh(t, 5, 6)
	lm := NewLandmark()
	require.NoError(t, lm.PreprocessALT(4, g, zap.NewNop()))
	require.NotEmpty(t, lm.Landmarks())

	h := lm.Heuristic(g)
	n := g.NumberOfVertices()
	for s := 0; s < n; s++ {
		dist := routing.NewDijkstra[roadgraph.Index](g).ShortestPathsTo(roadgraph.Index(s))
		for u := 0; u < n; u++ {
			from, to := roadgraph.Index(u), roadgraph.Index(s)
			assert.LessOrEqual(t, h(from, to), dist[from]+1e-9, "h(%d, %d) overestimates", u, s)
		}
	}

	// h(x, ·) never drops faster than the edge cost along any edge.
	for x := 0; x < n; x++ {
		g.ForOutEdges(func(e *roadgraph.Edge) {
			from := roadgraph.Index(x)
			assert.LessOrEqual(t, h(from, e.GetHead()), h(from, e.GetTail())+e.GetCost()+1e-9)
		})
	}

	assert.Greater(t, lm.FindTighestLowerBound(0, roadgraph.Index(n-1)), g.Distance(0, roadgraph.Index(n-1)))
}

func TestPartialLandmarksAreDropped(t *testing.T) {
	g := roadgraph.NewGraph()
	a := g.AddVertex(1, geo.NewCoordinate(-7.75, 110.36))
	b := g.AddVertex(2, geo.NewCoordinate(-7.75, 110.37))
	c := g.AddVertex(3, geo.NewCoordinate(-7.75, 110.38))
	require.NoError(t, g.AddEdge(a, b, 0))
	require.NoError(t, g.AddEdge(b, a, 0))
	require.NoError(t, g.AddEdge(b, c, 0))

	lm := NewLandmark()
	require.NoError(t, lm.PreprocessALT(2, g, zap.NewNop()))
	assert.Empty(t, lm.Landmarks())
	assert.Equal(t, g.Distance(a, c), lm.Heuristic(g)(a, c))
}

func TestTooManyLandmarks(t *testing.T) {
	lm := NewLandmark()
	assert.ErrorIs(t, lm.PreprocessALT(MAX_LANDMARKS+1, mesh(t, 2, 2), zap.NewNop()), ErrTooManyLandmarks)
}

func TestWriteReadLandmark(t *testing.T) {
	g := mesh(t, 3, 4)
	lm := NewLandmark()
	require.NoError(t, lm.PreprocessALT(3, g, zap.NewNop()))

	file := filepath.Join(t.TempDir(), "road.landmark")
	require.NoError(t, lm.WriteLandmark(file))

	got, err := ReadLandmark(file, g.NumberOfVertices())
	require.NoError(t, err)
	assert.Equal(t, lm.Landmarks(), got.Landmarks())
	for u := 0; u < g.NumberOfVertices(); u++ {
		assert.InDelta(t, lm.FindTighestLowerBound(roadgraph.Index(u), 0), got.FindTighestLowerBound(roadgraph.Index(u), 0), 1e-12)
	}

	_, err = ReadLandmark(file, g.NumberOfVertices()+1)
	assert.ErrorIs(t, err, ErrGraphMismatch)
}

func TestPlanWithLandmarkHeuristic(t *testing.T) {
	g := mesh(t, 5, 6)
	lm := NewLandmark()
	require.NoError(t, lm.PreprocessALT(4, g, zap.NewNop()))

	overlay := roadgraph.NewBoundedOverlay(g)
	goal := roadgraph.Index(g.NumberOfVertices() - 1)
	p, err := dstarlite.NewPlanner[roadgraph.Index](overlay, lm.Heuristic(g), 0, goal,
		dstarlite.WithStrictHeuristic[roadgraph.Index]())
	require.NoError(t, err)

	res, err := p.Plan()
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.InDelta(t, routing.ShortestPathCost[roadgraph.Index](overlay, 0, goal), res.TotalCost, 1e-9)

	require.NoError(t, p.NotifyEdgesChanged(g.BlockEdge(res.Path[0], res.Path[1])...))
	res, err = p.Plan()
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.InDelta(t, routing.ShortestPathCost[roadgraph.Index](overlay, 0, goal), res.TotalCost, 1e-9)

	e, ok := g.Edge(1, 2)
	require.True(t, ok)
	assert.ErrorIs(t, overlay.SetEdgeCost(1, 2, e.GetCost()/1.2), roadgraph.ErrBelowBaseCost)
}
