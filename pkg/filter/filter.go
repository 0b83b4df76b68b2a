// Package filter implements the fixed-size moving average used to smooth
// raw sensor samples before they are reported.
package filter

// MovingAverage holds the last N samples of one channel in a ring buffer
// and maintains their running sum. Pushing at capacity evicts the oldest
// sample. Not safe for concurrent use; the pipeline runs on one goroutine.
type MovingAverage struct {
	buf  []float64
	head int // index of the oldest sample
	n    int // samples currently held
	sum  float64
}

// New creates a moving average over the last capacity samples.
func New(capacity int) *MovingAverage {
	if capacity <= 0 {
		capacity = 1 // No averaging if invalid
	}
	return &MovingAverage{
		buf: make([]float64, capacity),
	}
}

// Push appends a sample, evicting the oldest if the window is full.
func (m *MovingAverage) Push(v float64) {
	if m.n == len(m.buf) {
		m.sum -= m.buf[m.head]
		m.buf[m.head] = v
		m.head = (m.head + 1) % len(m.buf)
	} else {
		m.buf[(m.head+m.n)%len(m.buf)] = v
		m.n++
	}
	m.sum += v
}

// Average returns the arithmetic mean of the samples currently held.
// It returns 0 before the first push.
func (m *MovingAverage) Average() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

// Len returns the number of samples currently held.
func (m *MovingAverage) Len() int {
	return m.n
}

// Cap returns the window capacity.
func (m *MovingAverage) Cap() int {
	return len(m.buf)
}
