// Package backlog holds readings that could not be delivered, in the order
// their reporting cycles closed, until a future cycle drains them.
package backlog

import (
	"github.com/NathanielJS1541/TemperatureMonitor/pkg/graphite"
)

// Queue is a FIFO of unsent readings backed by a ring buffer. Entries are
// never reordered; an entry is removed only after its transmission has been
// confirmed (Peek to send, Pop on success). The queue may be bounded, in
// which case the oldest reading is dropped to admit a new one.
//
// Not safe for concurrent use; only the delivery engine touches it.
type Queue struct {
	buf  []graphite.Reading
	head int
	n    int
	max  int
}

const initialCapacity = 16

// New creates a queue bounded to max entries. max <= 0 disables the bound,
// leaving the queue limited only by available memory.
func New(max int) *Queue {
	return &Queue{
		buf: make([]graphite.Reading, initialCapacity),
		max: max,
	}
}

// Push appends a reading. If the queue is at its bound the oldest reading
// is dropped to make room; the dropped reading is returned with ok=true.
func (q *Queue) Push(r graphite.Reading) (dropped graphite.Reading, ok bool) {
	if q.max > 0 && q.n == q.max {
		dropped, ok = q.Pop()
	}

	if q.n == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.n)%len(q.buf)] = r
	q.n++
	return dropped, ok
}

// Peek returns the oldest reading without removing it.
func (q *Queue) Peek() (graphite.Reading, bool) {
	if q.n == 0 {
		return graphite.Reading{}, false
	}
	return q.buf[q.head], true
}

// Pop removes and returns the oldest reading.
func (q *Queue) Pop() (graphite.Reading, bool) {
	if q.n == 0 {
		return graphite.Reading{}, false
	}
	r := q.buf[q.head]
	q.buf[q.head] = graphite.Reading{}
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	return r, true
}

// Len returns the number of queued readings.
func (q *Queue) Len() int {
	return q.n
}

// Readings returns the queued readings oldest first. Used for logging and
// tests; the returned slice is a copy.
func (q *Queue) Readings() []graphite.Reading {
	out := make([]graphite.Reading, q.n)
	for i := 0; i < q.n; i++ {
		out[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	return out
}

func (q *Queue) grow() {
	next := make([]graphite.Reading, len(q.buf)*2)
	for i := 0; i < q.n; i++ {
		next[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = next
	q.head = 0
}
