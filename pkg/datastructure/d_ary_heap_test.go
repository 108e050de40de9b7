package datastructure

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinHeapExtractOrder(t *testing.T) {
	testCases := []struct {
		name string
		d    int
	}{
		{name: "binary heap", d: 2},
		{name: "four-ary heap", d: 4},
		{name: "eight-ary heap", d: 8},
	}

	keys := []Key{
		NewKey(5, 1), NewKey(3, 3), NewKey(3, 1), NewKey(9, 0), NewKey(0, 7),
		NewKey(3, 2), InfKey(), NewKey(1, 1), NewKey(math.Inf(1), 2), NewKey(4, 4),
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			h := NewdAryHeap[int](tt.d)
			for i, k := range keys {
				h.Insert(NewPriorityQueueNode(k, i))
			}
			require.Equal(t, len(keys), h.Size())

			prev, err := h.ExtractMin()
			require.NoError(t, err)
			for !h.IsEmpty() {
				cur, err := h.ExtractMin()
				require.NoError(t, err)
				assert.True(t, prev.GetRank().LessEq(cur.GetRank()),
					"%v popped before %v", prev.GetRank(), cur.GetRank())
				assert.Equal(t, -1, cur.GetPos())
				prev = cur
			}
		})
	}
}

func TestMinHeapEmpty(t *testing.T) {
	h := NewBinaryHeap[string]()
	_, err := h.ExtractMin()
	assert.ErrorIs(t, err, ErrEmptyHeap)
	_, err = h.GetMin()
	assert.ErrorIs(t, err, ErrEmptyHeap)
	assert.True(t, h.GetMinRank().IsInf())
}

func TestMinHeapDecreaseKey(t *testing.T) {
	h := NewFourAryHeap[string]()
	a := NewPriorityQueueNode(NewKey(10, 10), "a")
	b := NewPriorityQueueNode(NewKey(5, 5), "b")
	c := NewPriorityQueueNode(NewKey(7, 7), "c")
	h.Insert(a)
	h.Insert(b)
	h.Insert(c)

	require.NoError(t, h.DecreaseKey(a, NewKey(1, 1)))
	min, err := h.GetMin()
	require.NoError(t, err)
	assert.Equal(t, "a", min.GetItem())

	assert.Error(t, h.DecreaseKey(c, NewKey(8, 0)), "increasing a key must be rejected")
}

func TestKeyOrdering(t *testing.T) {
	assert.True(t, NewKey(1, 9).Less(NewKey(2, 0)))
	assert.True(t, NewKey(2, 0).Less(NewKey(2, 1)))
	assert.False(t, NewKey(2, 1).Less(NewKey(2, 1)))
	assert.True(t, NewKey(2, 1).LessEq(NewKey(2, 1)))
	assert.True(t, NewKey(1e300, 0).Less(InfKey()))
	assert.False(t, InfKey().Less(InfKey()))
	assert.True(t, InfKey().Equal(InfKey()))
}

func TestFloatComparisons(t *testing.T) {
	assert.True(t, Eq(0.1+0.2, 0.3))
	assert.True(t, Eq(math.Inf(1), math.Inf(1)))
	assert.False(t, Eq(math.Inf(1), 1e300))
	assert.True(t, Lt(1, 2))
	assert.False(t, Lt(1, 1+EPS/2))
	assert.True(t, Le(1+EPS/2, 1))
	assert.True(t, Ge(2, 2))
	assert.True(t, Gt(3, 2))
}

func TestMinHeapRetain(t *testing.T) {
	h := NewBinaryHeap[int]()
	for i := 0; i < 20; i++ {
		h.Insert(NewPriorityQueueNode(NewKey(float64(20-i), 0), i))
	}

	removed := h.Retain(func(node *PriorityQueueNode[int]) bool {
		return node.GetItem()%2 == 0
	})
	assert.Equal(t, 10, removed)
	require.Equal(t, 10, h.Size())

	prev := NewKey(-1, 0)
	for !h.IsEmpty() {
		node, err := h.ExtractMin()
		require.NoError(t, err)
		assert.Equal(t, 0, node.GetItem()%2)
		assert.True(t, prev.Less(node.GetRank()))
		prev = node.GetRank()
	}
}
