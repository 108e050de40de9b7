package datastructure

import (
	"errors"
)

var ErrEmptyHeap = errors.New("heap is empty")

type PriorityQueueNode[T comparable] struct {
	rank    Key
	item    T
	itemPos int
}

func (p *PriorityQueueNode[T]) GetItem() T {
	return p.item
}

func (p *PriorityQueueNode[T]) GetRank() Key {
	return p.rank
}

func (p *PriorityQueueNode[T]) SetRank(rank Key) {
	p.rank = rank
}

func (p *PriorityQueueNode[T]) SetPos(i int) {
	p.itemPos = i
}

func (p *PriorityQueueNode[T]) GetPos() int {
	return p.itemPos
}

func NewPriorityQueueNode[T comparable](rank Key, item T) *PriorityQueueNode[T] {
	return &PriorityQueueNode[T]{rank: rank, item: item}
}

// MinHeap d-ary heap priorityqueue ordered by Key.
type MinHeap[T comparable] struct {
	heap []*PriorityQueueNode[T]
	d    int
}

func NewBinaryHeap[T comparable]() *MinHeap[T] {
	return NewdAryHeap[T](2)
}

func NewFourAryHeap[T comparable]() *MinHeap[T] {
	return NewdAryHeap[T](4)
}

func NewdAryHeap[T comparable](d int) *MinHeap[T] {
	if d < 2 {
		d = 2
	}
	return &MinHeap[T]{
		heap: make([]*PriorityQueueNode[T], 0),
		d:    d,
	}
}

func (h *MinHeap[T]) Preallocate(maxSearchSize int) {
	h.heap = make([]*PriorityQueueNode[T], 0, maxSearchSize)
}

// parent index of the parent node
func (h *MinHeap[T]) parent(index int) int {
	return (index - 1) / h.d
}

// heapifyUp moves index up while it is smaller than its parent. O(log N).
func (h *MinHeap[T]) heapifyUp(index int) {
	for index != 0 && h.heap[index].rank.Less(h.heap[h.parent(index)].rank) {
		h.Swap(index, h.parent(index))
		index = h.parent(index)
	}
}

// heapifyDown moves index down to its smallest child while the heap property is violated. O(log N).
func (h *MinHeap[T]) heapifyDown(index int) {
	for {
		leftMostChild := index*h.d + 1
		if leftMostChild >= len(h.heap) {
			return
		}

		sentinel := leftMostChild + h.d
		if sentinel > len(h.heap) {
			sentinel = len(h.heap)
		}

		smallest := leftMostChild
		for i := leftMostChild + 1; i < sentinel; i++ {
			if h.heap[i].rank.Less(h.heap[smallest].rank) {
				smallest = i
			}
		}

		if !h.heap[smallest].rank.Less(h.heap[index].rank) {
			return
		}
		h.Swap(index, smallest)
		index = smallest
	}
}

func (h *MinHeap[T]) Swap(i, j int) {
	h.heap[i], h.heap[j] = h.heap[j], h.heap[i]

	h.heap[i].SetPos(i)
	h.heap[j].SetPos(j)
}

func (h *MinHeap[T]) IsEmpty() bool {
	return len(h.heap) == 0
}

func (h *MinHeap[T]) Size() int {
	return len(h.heap)
}

func (h *MinHeap[T]) Clear() {
	h.heap = make([]*PriorityQueueNode[T], 0)
}

// GetMin returns the root without removing it.
func (h *MinHeap[T]) GetMin() (*PriorityQueueNode[T], error) {
	if h.IsEmpty() {
		return &PriorityQueueNode[T]{}, ErrEmptyHeap
	}
	return h.heap[0], nil
}

func (h *MinHeap[T]) GetMinRank() Key {
	if h.IsEmpty() {
		return InfKey()
	}
	return h.heap[0].rank
}

func (h *MinHeap[T]) Insert(key *PriorityQueueNode[T]) {
	h.heap = append(h.heap, key)
	index := h.Size() - 1
	key.SetPos(index)
	h.heapifyUp(index)
}

// ExtractMin pops the root. O(log N).
func (h *MinHeap[T]) ExtractMin() (*PriorityQueueNode[T], error) {
	if h.IsEmpty() {
		return &PriorityQueueNode[T]{}, ErrEmptyHeap
	}
	root := h.heap[0]

	h.Swap(0, h.Size()-1)

	h.heap[h.Size()-1] = nil
	h.heap = h.heap[:h.Size()-1]
	root.SetPos(-1)
	if len(h.heap) > 0 {
		h.heapifyDown(0)
	}

	return root, nil
}

// Retain drops every node for which keep returns false and restores the heap property. O(N).
func (h *MinHeap[T]) Retain(keep func(node *PriorityQueueNode[T]) bool) int {
	kept := h.heap[:0]
	removed := 0
	for _, node := range h.heap {
		if keep(node) {
			node.SetPos(len(kept))
			kept = append(kept, node)
		} else {
			node.SetPos(-1)
			removed++
		}
	}
	for i := len(kept); i < len(h.heap); i++ {
		h.heap[i] = nil
	}
	h.heap = kept
	for i := h.parent(len(h.heap) - 1); len(h.heap) > 1 && i >= 0; i-- {
		h.heapifyDown(i)
	}
	return removed
}

// DecreaseKey lowers the rank of an item already in the heap. O(log N).
func (h *MinHeap[T]) DecreaseKey(item *PriorityQueueNode[T], rank Key) error {
	itemPos := item.GetPos()
	if itemPos < 0 || itemPos >= h.Size() || h.heap[itemPos] != item || h.heap[itemPos].GetRank().Less(rank) {
		return errors.New("invalid index or new value")
	}

	h.heap[itemPos].SetRank(rank)
	h.heapifyUp(itemPos)
	return nil
}
