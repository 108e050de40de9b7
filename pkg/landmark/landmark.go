package landmark

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/dsnet/compress/bzip2"
	"github.com/lintang-b-s/replanx/pkg/engine/dstarlite"
	"github.com/lintang-b-s/replanx/pkg/engine/routing"
	"github.com/lintang-b-s/replanx/pkg/roadgraph"
	"github.com/lintang-b-s/replanx/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const MAX_LANDMARKS = 64

var (
	ErrTooManyLandmarks = errors.New("too many landmarks, the maximum number of landmarks is 64")
	ErrGraphMismatch    = errors.New("landmark file does not match the road graph")
)

type Landmark struct {
	lw        [][]float64 // distance from each landmark to every vertex
	vlw       [][]float64 // distance from every vertex to each landmark
	landmarks []roadgraph.Index
}

func NewLandmark() *Landmark {
	return &Landmark{
		lw:        make([][]float64, 0),
		vlw:       make([][]float64, 0),
		landmarks: make([]roadgraph.Index, 0),
	}
}

func (lm *Landmark) Landmarks() []roadgraph.Index {
	return lm.landmarks
}

// reversed swaps successors and predecessors so a backward search computes forward distances.
type reversed struct {
	g *roadgraph.Graph
}

func (r reversed) Successors(v roadgraph.Index) []dstarlite.Arc[roadgraph.Index] {
	return r.g.Predecessors(v)
}

func (r reversed) Predecessors(v roadgraph.Index) []dstarlite.Arc[roadgraph.Index] {
	return r.g.Successors(v)
}

/*
SelectLandmarks. planar landmark selection from Goldberg and Harrelson (2005), section 7: the
bounding box is split into k sectors around its center and each sector contributes the vertex
farthest along its direction. The vertex nearest to the center is added last.
*/
func (lm *Landmark) SelectLandmarks(k int, g *roadgraph.Graph) []roadgraph.Index {
	if g.NumberOfVertices() == 0 || k <= 0 {
		return nil
	}

	minLon, maxLon := math.MaxFloat64, -math.MaxFloat64
	minLat, maxLat := math.MaxFloat64, -math.MaxFloat64
	g.ForVertices(func(v *roadgraph.Vertex) {
		c := v.GetCoordinate()
		minLon, maxLon = math.Min(minLon, c.Lon), math.Max(maxLon, c.Lon)
		minLat, maxLat = math.Min(minLat, c.Lat), math.Max(maxLat, c.Lat)
	})
	centerLat := (maxLat + minLat) / 2.0
	centerLon := (maxLon + minLon) / 2.0

	seen := make(map[roadgraph.Index]struct{}, k+1)
	landmarks := make([]roadgraph.Index, 0, k+1)
	add := func(v roadgraph.Index) {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			landmarks = append(landmarks, v)
		}
	}

	thetaDif := 360.0 / float64(k)
	theta := 0.0
	for i := 0; i < k; i++ {
		thetaRad := util.DegreeToRadians(theta)
		sint, cost := math.Sin(thetaRad), math.Cos(thetaRad)

		var cand roadgraph.Index
		best := -math.MaxFloat64
		g.ForVertices(func(v *roadgraph.Vertex) {
			c := v.GetCoordinate()
			proj := (c.Lon-centerLon)*cost + (c.Lat-centerLat)*sint
			if proj > best {
				best, cand = proj, v.GetID()
			}
		})
		add(cand)
		theta += thetaDif
	}

	var mid roadgraph.Index
	minMidDist := math.MaxFloat64
	g.ForVertices(func(v *roadgraph.Vertex) {
		c := v.GetCoordinate()
		dist := math.Hypot(c.Lat-centerLat, c.Lon-centerLon)
		if dist < minMidDist {
			minMidDist, mid = dist, v.GetID()
		}
	})
	add(mid)

	return landmarks
}

/*
PreprocessALT computes, for every selected landmark, the distances from it to every vertex and
from every vertex to it, over the base edge costs. Landmarks that cannot reach every vertex in
both directions are dropped: a partial landmark breaks the consistency of the bound.

time complexity: O((n+m) log n * k).
*/
func (lm *Landmark) PreprocessALT(k int, g *roadgraph.Graph, logger *zap.Logger) error {
	if k > MAX_LANDMARKS {
		return ErrTooManyLandmarks
	}
	logger.Info("computing landmarks....", zap.Int("k", k))

	candidates := lm.SelectLandmarks(k, g)
	n := g.NumberOfVertices()

	from := make([][]float64, len(candidates))
	to := make([][]float64, len(candidates))

	var eg errgroup.Group
	eg.SetLimit(2 * len(candidates))
	for i, l := range candidates {
		eg.Go(func() error {
			from[i] = distances(routing.NewDijkstra[roadgraph.Index](reversed{g}).ShortestPathsTo(l), n)
			return nil
		})
		eg.Go(func() error {
			to[i] = distances(routing.NewDijkstra[roadgraph.Index](g).ShortestPathsTo(l), n)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	lm.landmarks = lm.landmarks[:0]
	lm.lw = lm.lw[:0]
	kept := make([]int, 0, len(candidates))
	for i, l := range candidates {
		if !complete(from[i]) || !complete(to[i]) {
			logger.Warn("landmark does not reach every vertex, dropped", zap.Uint32("vertex", uint32(l)))
			continue
		}
		lm.landmarks = append(lm.landmarks, l)
		lm.lw = append(lm.lw, from[i])
		kept = append(kept, i)
	}

	lm.vlw = make([][]float64, n)
	for v := 0; v < n; v++ {
		lm.vlw[v] = make([]float64, len(kept))
		for j, i := range kept {
			lm.vlw[v][j] = to[i][v]
		}
	}

	logger.Info("done computing landmarks....", zap.Int("landmarks", len(lm.landmarks)))
	return nil
}

func distances(dist map[roadgraph.Index]float64, n int) []float64 {
	out := make([]float64, n)
	for v := range out {
		d, ok := dist[roadgraph.Index(v)]
		if !ok {
			d = math.Inf(1)
		}
		out[v] = d
	}
	return out
}

func complete(dist []float64) bool {
	for _, d := range dist {
		if math.IsInf(d, 1) {
			return false
		}
	}
	return true
}

/*
FindTighestLowerBound is the ALT lower bound on dist(u, t): the best triangle inequality over
all landmarks, clamped at 0.
*/
func (lm *Landmark) FindTighestLowerBound(u, t roadgraph.Index) float64 {
	tighestLowerBound := 0.0
	for i := 0; i < len(lm.landmarks); i++ {
		lbOne := lm.vlw[u][i] - lm.vlw[t][i]
		lbTwo := lm.lw[i][t] - lm.lw[i][u]
		tighestLowerBound = util.MaxOf(tighestLowerBound, util.MaxOf(lbOne, lbTwo))
	}
	return tighestLowerBound
}

// Heuristic combines the ALT bound with the straight-line distance. The maximum of two
// consistent bounds is consistent. Costs must never drop below the base costs the landmarks
// were computed on, see roadgraph.NewBoundedOverlay.
func (lm *Landmark) Heuristic(g *roadgraph.Graph) dstarlite.Heuristic[roadgraph.Index] {
	return func(from, to roadgraph.Index) float64 {
		return util.MaxOf(g.Distance(from, to), lm.FindTighestLowerBound(from, to))
	}
}

func (lm *Landmark) WriteLandmark(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}
	defer bz.Close()

	w := bufio.NewWriter(bz)

	k := len(lm.landmarks)
	n := len(lm.vlw)
	fmt.Fprintf(w, "%d %d\n", k, n)

	for i := 0; i < k; i++ {
		fmt.Fprintf(w, "%d ", lm.landmarks[i])
		for v := 0; v < n; v++ {
			fmt.Fprintf(w, "%s", strconv.FormatFloat(lm.lw[i][v], 'f', -1, 64))
			if v < n-1 {
				fmt.Fprintf(w, " ")
			}
		}
		fmt.Fprintf(w, "\n")

		for v := 0; v < n; v++ {
			fmt.Fprintf(w, "%s", strconv.FormatFloat(lm.vlw[v][i], 'f', -1, 64))
			if v < n-1 {
				fmt.Fprintf(w, " ")
			}
		}
		fmt.Fprintf(w, "\n")
	}

	return w.Flush()
}

// ReadLandmark reads a file written by WriteLandmark for a graph with numVertices vertices.
func ReadLandmark(filename string, numVertices int) (*Landmark, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bz, err := bzip2.NewReader(f, nil)
	if err != nil {
		return nil, err
	}
	defer bz.Close()
	br := bufio.NewReader(bz)

	line, err := util.ReadLine(br)
	if err != nil {
		return nil, err
	}
	ff := util.Fields(line)
	if len(ff) != 2 {
		return nil, fmt.Errorf("landmark header %q: %w", line, ErrGraphMismatch)
	}
	k, err := strconv.Atoi(ff[0])
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(ff[1])
	if err != nil {
		return nil, err
	}
	if n != numVertices || k > MAX_LANDMARKS {
		return nil, fmt.Errorf("%d landmarks over %d vertices, graph has %d: %w", k, n, numVertices, ErrGraphMismatch)
	}

	landmarks := make([]roadgraph.Index, k)
	lw := make([][]float64, k)
	vlw := make([][]float64, n)
	for v := 0; v < n; v++ {
		vlw[v] = make([]float64, k)
	}

	for i := 0; i < k; i++ {
		line, err := util.ReadLine(br)
		if err != nil {
			return nil, err
		}
		ff := util.Fields(line)
		if len(ff) != n+1 {
			return nil, fmt.Errorf("landmark %d has %d distances: %w", i, len(ff)-1, ErrGraphMismatch)
		}

		id, err := strconv.ParseUint(ff[0], 10, 32)
		if err != nil {
			return nil, err
		}
		landmarks[i] = roadgraph.Index(id)
		lw[i] = make([]float64, n)
		for j := 1; j < len(ff); j++ {
			if lw[i][j-1], err = strconv.ParseFloat(ff[j], 64); err != nil {
				return nil, err
			}
		}

		line, err = util.ReadLine(br)
		if err != nil {
			return nil, err
		}
		ff = util.Fields(line)
		if len(ff) != n {
			return nil, fmt.Errorf("landmark %d has %d reverse distances: %w", i, len(ff), ErrGraphMismatch)
		}
		for v := 0; v < n; v++ {
			if vlw[v][i], err = strconv.ParseFloat(ff[v], 64); err != nil {
				return nil, err
			}
		}
	}

	lm := NewLandmark()
	lm.lw = lw
	lm.vlw = vlw
	lm.landmarks = landmarks
	return lm, nil
}
