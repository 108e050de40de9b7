package spatialindex

import (
	"errors"
	"math"

	"github.com/lintang-b-s/replanx/pkg/geo"
	"github.com/lintang-b-s/replanx/pkg/roadgraph"
	"github.com/lintang-b-s/replanx/pkg/util"
	"github.com/tidwall/rtree"
	"go.uber.org/zap"
)

var ErrNoNearbyVertex = errors.New("no road vertex near the query point")

type Rtree struct {
	tr    *rtree.RTreeG[ArcEndpoint]
	graph *roadgraph.Graph
}

// ArcEndpoint is the indexed payload: one directed road segment.
type ArcEndpoint struct {
	tail roadgraph.Index
	head roadgraph.Index
}

func (ae ArcEndpoint) GetTail() roadgraph.Index {
	return ae.tail
}

func (ae ArcEndpoint) GetHead() roadgraph.Index {
	return ae.head
}

func newArcEndpoint(tail, head roadgraph.Index) ArcEndpoint {
	return ArcEndpoint{
		tail: tail,
		head: head,
	}
}

func NewRtree() *Rtree {
	var tr rtree.RTreeG[ArcEndpoint]
	return &Rtree{
		tr: &tr,
	}
}

// Build indexes the bounding box of every edge of graph.
func (rt *Rtree) Build(graph *roadgraph.Graph, log *zap.Logger) {
	log.Info("Building R-tree spatial index...")
	rt.graph = graph
	graph.ForOutEdges(func(e *roadgraph.Edge) {
		fromLat, fromLon := graph.GetVertexCoordinates(e.GetTail())
		toLat, toLon := graph.GetVertexCoordinates(e.GetHead())

		minLat := util.MinOf(fromLat, toLat)
		minLon := util.MinOf(fromLon, toLon)
		maxLat := util.MaxOf(fromLat, toLat)
		maxLon := util.MaxOf(fromLon, toLon)

		rt.tr.Insert([2]float64{minLon, minLat}, [2]float64{maxLon, maxLat},
			newArcEndpoint(e.GetTail(), e.GetHead()))
	})
	log.Info("R-tree spatial index built.", zap.Int("items", rt.tr.Len()))
}

// SearchWithinRadius returns at most limit segments whose bounding box intersects the box of
// radius km around (qLat, qLon).
func (rt *Rtree) SearchWithinRadius(qLat, qLon, radius float64, limit int) []ArcEndpoint {
	lo, hi := geo.BoundingBoxAround(geo.NewCoordinate(qLat, qLon), radius)

	results := make([]ArcEndpoint, 0, 10)
	rt.tr.Search(lo, hi,
		func(min, max [2]float64, data ArcEndpoint) bool {
			results = append(results, data)
			return len(results) < limit
		})
	return results
}

// SnapToVertex returns the graph vertex closest to q among the endpoints of the road segment
// nearest to q. The search radius doubles from radius up to maxRadius (km).
func (rt *Rtree) SnapToVertex(q geo.Coordinate, radius, maxRadius float64) (roadgraph.Index, float64, error) {
	if radius <= 0 {
		radius = 0.05
	}
	for r := radius; r <= maxRadius; r *= 2 {
		candidates := rt.SearchWithinRadius(q.Lat, q.Lon, r, 64)
		if len(candidates) == 0 {
			continue
		}

		bestDist := math.Inf(1)
		var best ArcEndpoint
		for _, c := range candidates {
			a := rt.graph.GetVertex(c.tail).GetCoordinate()
			b := rt.graph.GetVertex(c.head).GetCoordinate()
			if d := geo.DistanceToSegment(a, b, q); d < bestDist {
				bestDist, best = d, c
			}
		}

		tail := rt.graph.GetVertex(best.tail).GetCoordinate()
		head := rt.graph.GetVertex(best.head).GetCoordinate()
		dTail, dHead := geo.PointDistance(q, tail), geo.PointDistance(q, head)
		if dHead < dTail {
			return best.head, dHead, nil
		}
		return best.tail, dTail, nil
	}
	return 0, 0, ErrNoNearbyVertex
}
