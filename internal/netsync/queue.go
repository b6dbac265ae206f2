package netsync

import (
	"sync"

	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/telemetry"
)

const (
	inboundQueueOccupancyMetricKey = "netsync_inbound_queue_occupancy"
	inboundQueueOverflowMetricKey  = "netsync_inbound_queue_overflow_total"
)

// Inbound is one decoded-envelope frame waiting for the frame loop. Conn
// identifies the connection that delivered it.
type Inbound struct {
	Conn    uint64
	Type    string
	Payload []byte
}

// InboundQueue stores inbound frames in a fixed-size ring. It is safe for
// concurrent producers and a single consumer.
type InboundQueue struct {
	mu      sync.Mutex
	data    []Inbound
	head    int
	tail    int
	count   int
	metrics telemetry.Metrics
}

// NewInboundQueue constructs a ring buffer with the provided capacity.
func NewInboundQueue(capacity int, metrics telemetry.Metrics) *InboundQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &InboundQueue{
		data:    make([]Inbound, capacity),
		metrics: metrics,
	}
}

// Capacity reports the maximum number of frames the queue can hold.
func (q *InboundQueue) Capacity() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}

// Push stages a frame, returning false if the queue is full.
func (q *InboundQueue) Push(msg Inbound) bool {
	if q == nil {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == len(q.data) {
		if q.metrics != nil {
			q.metrics.Add(inboundQueueOverflowMetricKey, 1)
		}
		return false
	}
	q.data[q.tail] = msg
	q.tail = (q.tail + 1) % len(q.data)
	q.count++
	q.storeOccupancyLocked()
	return true
}

// Drain returns all staged frames in FIFO order and clears the queue.
func (q *InboundQueue) Drain() []Inbound {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return nil
	}
	frames := make([]Inbound, q.count)
	for i := 0; i < q.count; i++ {
		idx := (q.head + i) % len(q.data)
		frames[i] = q.data[idx]
		q.data[idx] = Inbound{}
	}
	q.head = 0
	q.tail = 0
	q.count = 0
	q.storeOccupancyLocked()
	return frames
}

// Len reports the number of staged frames.
func (q *InboundQueue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

func (q *InboundQueue) storeOccupancyLocked() {
	if q.metrics == nil {
		return
	}
	q.metrics.Store(inboundQueueOccupancyMetricKey, uint64(q.count))
}
