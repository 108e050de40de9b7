package routing

import (
	"math"

	"github.com/lintang-b-s/replanx/pkg"
	da "github.com/lintang-b-s/replanx/pkg/datastructure"
	"github.com/lintang-b-s/replanx/pkg/engine/dstarlite"
)

type VertexInfo[V comparable] struct {
	travelTime float64
	next       V
	hasNext    bool
	heapNode   *da.PriorityQueueNode[V]
	scanned    bool
}

func (vi *VertexInfo[V]) GetTravelTime() float64 {
	return vi.travelTime
}

func (vi *VertexInfo[V]) IsScanned() bool {
	return vi.scanned
}

// Dijkstra is a full, non-incremental backward search from the goal over Predecessors. It is the
// reference the incremental planner is checked against.
type Dijkstra[V comparable] struct {
	graph dstarlite.Graph[V]

	info map[V]*VertexInfo[V]
	pq   *da.MinHeap[V]

	numSettledNodes int
}

func NewDijkstra[V comparable](graph dstarlite.Graph[V]) *Dijkstra[V] {
	return &Dijkstra[V]{
		graph: graph,
		info:  make(map[V]*VertexInfo[V]),
		pq:    da.NewFourAryHeap[V](),
	}
}

func (d *Dijkstra[V]) GetNumSettledNodes() int {
	return d.numSettledNodes
}

// ShortestPathsTo settles every vertex that can reach goal and returns the distances to goal.
func (d *Dijkstra[V]) ShortestPathsTo(goal V) map[V]float64 {
	d.run(goal, nil)

	dist := make(map[V]float64, len(d.info))
	for v, vi := range d.info {
		if vi.scanned {
			dist[v] = vi.travelTime
		}
	}
	return dist
}

// ShortestPath returns the cheapest path source -> goal and its cost. found is false when goal
// is unreachable from source.
func (d *Dijkstra[V]) ShortestPath(source, goal V) ([]V, float64, bool) {
	d.run(goal, &source)

	si, ok := d.info[source]
	if !ok || !si.scanned || math.IsInf(si.travelTime, 1) {
		return nil, pkg.INF_WEIGHT, false
	}

	path := []V{source}
	cur := si
	for cur.hasNext {
		path = append(path, cur.next)
		cur = d.info[cur.next]
	}
	return path, si.travelTime, true
}

func (d *Dijkstra[V]) run(goal V, stopAt *V) {
	d.info = make(map[V]*VertexInfo[V])
	d.pq.Clear()
	d.numSettledNodes = 0

	gNode := da.NewPriorityQueueNode(da.NewKey(0, 0), goal)
	d.info[goal] = &VertexInfo[V]{travelTime: 0, heapNode: gNode}
	d.pq.Insert(gNode)

	for !d.pq.IsEmpty() {
		node, _ := d.pq.ExtractMin()
		u := node.GetItem()
		uInfo := d.info[u]
		uInfo.scanned = true
		d.numSettledNodes++

		if stopAt != nil && u == *stopAt {
			return
		}

		for _, arc := range d.graph.Predecessors(u) {
			if math.IsInf(arc.Cost, 1) {
				continue
			}
			newTravelTime := uInfo.travelTime + arc.Cost

			vInfo, labelled := d.info[arc.To]
			if labelled && (vInfo.scanned || !da.Lt(newTravelTime, vInfo.travelTime)) {
				continue
			}

			rank := da.NewKey(newTravelTime, newTravelTime)
			if labelled {
				vInfo.travelTime = newTravelTime
				vInfo.next, vInfo.hasNext = u, true
				_ = d.pq.DecreaseKey(vInfo.heapNode, rank)
				continue
			}

			vhNode := da.NewPriorityQueueNode(rank, arc.To)
			d.info[arc.To] = &VertexInfo[V]{travelTime: newTravelTime, next: u, hasNext: true, heapNode: vhNode}
			d.pq.Insert(vhNode)
		}
	}
}

// ShortestPathCost is a convenience wrapper returning only the cost, +Inf when unreachable.
func ShortestPathCost[V comparable](graph dstarlite.Graph[V], source, goal V) float64 {
	_, cost, found := NewDijkstra(graph).ShortestPath(source, goal)
	if !found {
		return pkg.INF_WEIGHT
	}
	return cost
}
