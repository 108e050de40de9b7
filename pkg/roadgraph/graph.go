package roadgraph

import (
	"errors"
	"math"

	da "github.com/lintang-b-s/replanx/pkg/datastructure"
	"github.com/lintang-b-s/replanx/pkg/engine/dstarlite"
	"github.com/lintang-b-s/replanx/pkg/geo"
)

var (
	ErrVertexNotFound = errors.New("vertex not found")
	ErrEdgeNotFound   = errors.New("edge not found")
	ErrBelowDistance  = errors.New("edge cost below straight-line distance")
	ErrBelowBaseCost  = errors.New("edge cost below the base cost")
)

type Index uint32

type Vertex struct {
	id    Index
	osmID int64
	coord geo.Coordinate
}

func (v *Vertex) GetID() Index {
	return v.id
}

func (v *Vertex) GetOsmID() int64 {
	return v.osmID
}

func (v *Vertex) GetCoordinate() geo.Coordinate {
	return v.coord
}

// Edge is a directed road segment. length is fixed at load time; cost is the current traversal
// cost and starts equal to length (km).
type Edge struct {
	tail   Index
	head   Index
	length float64
	cost   float64
}

func (e *Edge) GetTail() Index {
	return e.tail
}

func (e *Edge) GetHead() Index {
	return e.head
}

func (e *Edge) GetLength() float64 {
	return e.length
}

func (e *Edge) GetCost() float64 {
	return e.cost
}

// Graph is a mutable adjacency-list road network. In and out lists share the same *Edge so a
// cost update is visible from both directions.
type Graph struct {
	vertices []*Vertex
	outEdges [][]*Edge
	inEdges  [][]*Edge
	osmIndex map[int64]Index
	numEdges int
}

func NewGraph() *Graph {
	return &Graph{
		vertices: make([]*Vertex, 0),
		outEdges: make([][]*Edge, 0),
		inEdges:  make([][]*Edge, 0),
		osmIndex: make(map[int64]Index),
	}
}

func (g *Graph) AddVertex(osmID int64, coord geo.Coordinate) Index {
	if id, ok := g.osmIndex[osmID]; ok && osmID != 0 {
		return id
	}
	id := Index(len(g.vertices))
	g.vertices = append(g.vertices, &Vertex{id: id, osmID: osmID, coord: coord})
	g.outEdges = append(g.outEdges, make([]*Edge, 0, 2))
	g.inEdges = append(g.inEdges, make([]*Edge, 0, 2))
	if osmID != 0 {
		g.osmIndex[osmID] = id
	}
	return id
}

// AddEdge adds u -> v. A non-positive length is replaced by the straight-line distance.
func (g *Graph) AddEdge(u, v Index, length float64) error {
	if !g.HasVertex(u) || !g.HasVertex(v) {
		return ErrVertexNotFound
	}
	straight := g.Distance(u, v)
	if length <= 0 || length < straight {
		length = straight
	}
	e := &Edge{tail: u, head: v, length: length, cost: length}
	g.outEdges[u] = append(g.outEdges[u], e)
	g.inEdges[v] = append(g.inEdges[v], e)
	g.numEdges++
	return nil
}

func (g *Graph) addEdgeWithCost(u, v Index, length, cost float64) {
	e := &Edge{tail: u, head: v, length: length, cost: cost}
	g.outEdges[u] = append(g.outEdges[u], e)
	g.inEdges[v] = append(g.inEdges[v], e)
	g.numEdges++
}

// SetEdgeCost updates every parallel u -> v edge. Costs below the straight-line distance are
// rejected because the haversine heuristic would stop being consistent.
func (g *Graph) SetEdgeCost(u, v Index, cost float64) error {
	if err := g.ValidateEdgeCost(u, v, cost); err != nil {
		return err
	}
	for _, e := range g.outEdges[u] {
		if e.head == v {
			e.cost = cost
		}
	}
	return nil
}

// ValidateEdgeCost reports whether SetEdgeCost would accept the change, without applying it.
func (g *Graph) ValidateEdgeCost(u, v Index, cost float64) error {
	if !g.HasVertex(u) || !g.HasVertex(v) {
		return ErrVertexNotFound
	}
	if math.IsNaN(cost) || da.Lt(cost, g.Distance(u, v)) {
		return ErrBelowDistance
	}
	if _, ok := g.Edge(u, v); !ok {
		return ErrEdgeNotFound
	}
	return nil
}

// Edge returns the cheapest u -> v edge.
func (g *Graph) Edge(u, v Index) (*Edge, bool) {
	if !g.HasVertex(u) {
		return nil, false
	}
	var best *Edge
	for _, e := range g.outEdges[u] {
		if e.head == v && (best == nil || e.cost < best.cost) {
			best = e
		}
	}
	return best, best != nil
}

func (g *Graph) Successors(v Index) []dstarlite.Arc[Index] {
	arcs := make([]dstarlite.Arc[Index], len(g.outEdges[v]))
	for i, e := range g.outEdges[v] {
		arcs[i] = dstarlite.NewArc(e.head, e.cost)
	}
	return arcs
}

func (g *Graph) Predecessors(v Index) []dstarlite.Arc[Index] {
	arcs := make([]dstarlite.Arc[Index], len(g.inEdges[v]))
	for i, e := range g.inEdges[v] {
		arcs[i] = dstarlite.NewArc(e.tail, e.cost)
	}
	return arcs
}

func (g *Graph) HasVertex(v Index) bool {
	return int(v) < len(g.vertices)
}

func (g *Graph) GetVertex(v Index) *Vertex {
	return g.vertices[v]
}

func (g *Graph) VertexByOsmID(osmID int64) (Index, bool) {
	id, ok := g.osmIndex[osmID]
	return id, ok
}

func (g *Graph) GetVertexCoordinates(v Index) (float64, float64) {
	c := g.vertices[v].coord
	return c.Lat, c.Lon
}

func (g *Graph) ForVertices(handle func(v *Vertex)) {
	for _, v := range g.vertices {
		handle(v)
	}
}

func (g *Graph) ForOutEdges(handle func(e *Edge)) {
	for _, edges := range g.outEdges {
		for _, e := range edges {
			handle(e)
		}
	}
}

func (g *Graph) NumberOfVertices() int {
	return len(g.vertices)
}

func (g *Graph) NumberOfEdges() int {
	return g.numEdges
}

// Distance is the haversine distance between two vertices in km.
func (g *Graph) Distance(u, v Index) float64 {
	return geo.HaversineDistance(g.vertices[u].coord, g.vertices[v].coord)
}

// Heuristic returns the haversine distance as a planner heuristic.
func (g *Graph) Heuristic() dstarlite.Heuristic[Index] {
	return g.Distance
}

// BlockEdge returns the changes that close the road between u and v in both directions. Missing
// directions are skipped.
func (g *Graph) BlockEdge(u, v Index) []dstarlite.EdgeChange[Index] {
	changes := make([]dstarlite.EdgeChange[Index], 0, 2)
	if _, ok := g.Edge(u, v); ok {
		changes = append(changes, dstarlite.NewEdgeChange(u, v, math.Inf(1)))
	}
	if _, ok := g.Edge(v, u); ok {
		changes = append(changes, dstarlite.NewEdgeChange(v, u, math.Inf(1)))
	}
	return changes
}

// RestoreEdge returns the changes that reset u -> v and v -> u to their lengths.
func (g *Graph) RestoreEdge(u, v Index) []dstarlite.EdgeChange[Index] {
	changes := make([]dstarlite.EdgeChange[Index], 0, 2)
	for _, pair := range [][2]Index{{u, v}, {v, u}} {
		if !g.HasVertex(pair[0]) {
			continue
		}
		for _, e := range g.outEdges[pair[0]] {
			if e.head == pair[1] {
				changes = append(changes, dstarlite.NewEdgeChange(pair[0], pair[1], e.length))
				break
			}
		}
	}
	return changes
}

// PathCoordinates maps a vertex path to its coordinates.
func (g *Graph) PathCoordinates(path []Index) []geo.Coordinate {
	coords := make([]geo.Coordinate, len(path))
	for i, v := range path {
		coords[i] = g.vertices[v].coord
	}
	return coords
}

// EncodePath returns the path as an encoded polyline.
func (g *Graph) EncodePath(path []Index) string {
	return geo.EncodePolyline(g.PathCoordinates(path))
}

// InitialBearing is the heading in degrees of the first step of path, 0 for paths shorter than 2.
func (g *Graph) InitialBearing(path []Index) float64 {
	if len(path) < 2 {
		return 0
	}
	a, b := g.vertices[path[0]].coord, g.vertices[path[1]].coord
	return geo.BearingTo(a.Lat, a.Lon, b.Lat, b.Lon)
}
