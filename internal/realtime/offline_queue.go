package realtime

// OfflineQueue is a bounded FIFO of pending notification payloads for one
// offline user. When full, pushing evicts the oldest entry so the newest
// information wins. Not safe for concurrent use; the manager guards it with
// its own lock.
type OfflineQueue struct {
	items    [][]byte
	capacity int
}

func NewOfflineQueue(capacity int) *OfflineQueue {
	if capacity <= 0 {
		capacity = 50
	}
	return &OfflineQueue{capacity: capacity}
}

// Push appends a payload, evicting the oldest entry when at capacity
func (q *OfflineQueue) Push(payload []byte) {
	if len(q.items) >= q.capacity {
		q.items = q.items[1:]
	}
	q.items = append(q.items, payload)
}

// Drain removes and returns all pending payloads in enqueue order
func (q *OfflineQueue) Drain() [][]byte {
	items := q.items
	q.items = nil
	return items
}

// Requeue puts undelivered payloads back at the front, preserving their order
// ahead of anything pushed since the drain. The combined result is trimmed to
// capacity from the front so the bound holds even when pushes raced the flush
func (q *OfflineQueue) Requeue(payloads [][]byte) {
	if len(payloads) == 0 {
		return
	}
	q.items = append(payloads, q.items...)
	if len(q.items) > q.capacity {
		q.items = q.items[len(q.items)-q.capacity:]
	}
}

func (q *OfflineQueue) Len() int {
	return len(q.items)
}
