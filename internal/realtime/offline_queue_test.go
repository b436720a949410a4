package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOfflineQueuePushAndDrainOrder(t *testing.T) {
	q := NewOfflineQueue(5)
	q.Push([]byte("a"))
	q.Push([]byte("b"))
	q.Push([]byte("c"))

	assert.Equal(t, 3, q.Len())
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, q.Drain())
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.Drain())
}

func TestOfflineQueueDropsOldestWhenFull(t *testing.T) {
	q := NewOfflineQueue(3)
	q.Push([]byte("a"))
	q.Push([]byte("b"))
	q.Push([]byte("c"))
	q.Push([]byte("d"))

	assert.Equal(t, 3, q.Len())
	assert.Equal(t, [][]byte{[]byte("b"), []byte("c"), []byte("d")}, q.Drain())
}

func TestOfflineQueueRequeuePreservesOrder(t *testing.T) {
	q := NewOfflineQueue(5)
	q.Push([]byte("c"))
	q.Requeue([][]byte{[]byte("a"), []byte("b")})

	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, q.Drain())
}

func TestOfflineQueueRequeueHoldsCapacityBound(t *testing.T) {
	q := NewOfflineQueue(3)
	q.Push([]byte("a"))
	q.Push([]byte("b"))
	q.Push([]byte("c"))

	drained := q.Drain()

	// Pushes that raced a failed flush land before the remainder returns
	q.Push([]byte("d"))
	q.Push([]byte("e"))
	q.Push([]byte("f"))
	q.Requeue(drained)

	assert.LessOrEqual(t, q.Len(), 3)
	assert.Equal(t, [][]byte{[]byte("d"), []byte("e"), []byte("f")}, q.Drain())
}

func TestOfflineQueueDefaultCapacity(t *testing.T) {
	q := NewOfflineQueue(0)
	for i := 0; i < 60; i++ {
		q.Push([]byte{byte(i)})
	}
	assert.Equal(t, 50, q.Len())
}
