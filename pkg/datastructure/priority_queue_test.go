package datastructure

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/rand"
)

func TestMinHeapOrdering(t *testing.T) {
	pq := NewMinHeap[int32]()

	ranks := make([]float64, 0, 10000)
	for i := 0; i < 10000; i++ {
		r := float64(rand.Intn(100000))
		ranks = append(ranks, r)
		pq.Insert(r, int32(i))
	}
	sort.Float64s(ranks)

	for i := 0; i < 10000; i++ {
		item, ok := pq.ExtractMin()
		assert.True(t, ok)
		assert.Equal(t, ranks[i], item.Rank)
	}
	_, ok := pq.ExtractMin()
	assert.False(t, ok)
}

func TestMinHeapTieBreakInsertionOrder(t *testing.T) {
	pq := NewMinHeap[int]()
	for i := 0; i < 100; i++ {
		pq.Insert(1.0, i)
	}
	for i := 0; i < 100; i++ {
		item, ok := pq.ExtractMin()
		assert.True(t, ok)
		assert.Equal(t, i, item.Item)
	}
}

func TestMinHeapClear(t *testing.T) {
	pq := NewMinHeap[int]()
	pq.Insert(3, 1)
	pq.Insert(1, 2)
	pq.Clear()
	assert.Equal(t, 0, pq.Size())

	pq.Insert(2, 7)
	item, ok := pq.GetMin()
	assert.True(t, ok)
	assert.Equal(t, 7, item.Item)
}
