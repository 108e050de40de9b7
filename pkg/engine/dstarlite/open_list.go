package dstarlite

import (
	da "github.com/lintang-b-s/replanx/pkg/datastructure"
)

const (
	// compaction runs once stale entries outnumber live ones by this factor
	staleCompactionFactor = 4
	staleCompactionFloor  = 256
)

// openList is a min-heap of (vertex, key) entries with lazy deletion. current holds the
// authoritative key of every vertex that is logically in the list; a heap entry whose key does
// not match it is stale and is discarded when it reaches the top.
type openList[V comparable] struct {
	heap    *da.MinHeap[V]
	current map[V]da.Key

	stalePops int
}

func newOpenList[V comparable](arity int) *openList[V] {
	return &openList[V]{
		heap:    da.NewdAryHeap[V](arity),
		current: make(map[V]da.Key),
	}
}

func (ol *openList[V]) push(v V, key da.Key) {
	ol.current[v] = key
	ol.heap.Insert(da.NewPriorityQueueNode(key, v))
	ol.maybeCompact()
}

// invalidate marks every pending entry of v stale without touching the heap.
func (ol *openList[V]) invalidate(v V) {
	delete(ol.current, v)
}

func (ol *openList[V]) contains(v V) bool {
	_, ok := ol.current[v]
	return ok
}

func (ol *openList[V]) isValid(node *da.PriorityQueueNode[V]) bool {
	key, ok := ol.current[node.GetItem()]
	return ok && key.Equal(node.GetRank())
}

// discardStale pops stale entries until the top is valid or the heap is empty.
func (ol *openList[V]) discardStale() {
	for !ol.heap.IsEmpty() {
		top, _ := ol.heap.GetMin()
		if ol.isValid(top) {
			return
		}
		_, _ = ol.heap.ExtractMin()
		ol.stalePops++
	}
}

func (ol *openList[V]) isEmpty() bool {
	ol.discardStale()
	return ol.heap.IsEmpty()
}

// peekMinKey returns the smallest valid key, or the infinite key when the list is empty.
func (ol *openList[V]) peekMinKey() da.Key {
	ol.discardStale()
	return ol.heap.GetMinRank()
}

// popMin removes the smallest valid entry. The vertex leaves the list until it is pushed again.
func (ol *openList[V]) popMin() (V, da.Key, bool) {
	ol.discardStale()
	node, err := ol.heap.ExtractMin()
	if err != nil {
		var zero V
		return zero, da.InfKey(), false
	}
	v := node.GetItem()
	delete(ol.current, v)
	return v, node.GetRank(), true
}

func (ol *openList[V]) size() int {
	return len(ol.current)
}

func (ol *openList[V]) heapSize() int {
	return ol.heap.Size()
}

func (ol *openList[V]) maybeCompact() {
	if ol.heap.Size() < staleCompactionFloor || ol.heap.Size() < staleCompactionFactor*(len(ol.current)+1) {
		return
	}
	ol.stalePops += ol.heap.Retain(ol.isValid)
}
