package monitor

import (
	"context"
	"log"
	"time"

	"github.com/NathanielJS1541/TemperatureMonitor/pkg/graphite"
	"github.com/NathanielJS1541/TemperatureMonitor/pkg/status"
)

// cycleState names the phases of one delivery cycle.
type cycleState int

const (
	// awaitingConnectivity blocks until the network link is up. This wait
	// is uncapped and separate from the exponential back-off.
	awaitingConnectivity cycleState = iota
	// connecting attempts one connection to the graphite server.
	connecting
	// delivering drains the backlog and sends the pending reading over an
	// open connection.
	delivering
	// backingOff sleeps for a random delay after a failed connection.
	backingOff
	// cycleDone ends the cycle.
	cycleDone
)

// deliverCycle runs one delivery cycle: snapshot the averages into a
// pending reading, connect with exponential random back-off, drain the
// backlog oldest first, then send the pending reading. A cycle that
// exhausts its back-off budget, loses the link mid-drain, or fails a send
// queues the pending reading for a future cycle. Returns false only when
// the context is cancelled.
func (m *Monitor) deliverCycle(ctx context.Context) bool {
	pending := graphite.Reading{
		Temperature:      m.temperature.Average(),
		RelativeHumidity: m.humidity.Average(),
		Timestamp:        m.lastUpdateTime,
	}

	var (
		retries           int
		currentMaxTimeout time.Duration
		submitted         bool
		conn              graphite.Conn
	)
	maxTimeout := m.cfg.Backoff.MaxTimeout()

	st := awaitingConnectivity
	for st != cycleDone {
		switch st {
		case awaitingConnectivity:
			if m.link.IsUp() {
				m.status.Set(status.Idle)
				st = connecting
				break
			}
			m.status.Set(status.AwaitingWifi)
			m.link.Reconnect()
			if !m.sleep(ctx, m.cfg.Retry.ConnectDelay()) {
				return false
			}

		case connecting:
			c, err := m.dial()
			if err != nil {
				log.Printf("connection to graphite server failed: %v", err)
				st = backingOff
				break
			}
			conn = c
			st = delivering

		case backingOff:
			currentMaxTimeout = m.backoffBound(retries)
			if !m.sleep(ctx, m.randomDelay(currentMaxTimeout)) {
				return false
			}
			retries++
			if currentMaxTimeout < maxTimeout {
				st = connecting
			} else {
				// Back-off budget exhausted; abandon this cycle.
				st = cycleDone
			}

		case delivering:
			if m.drainBacklog(conn) {
				if err := conn.SendReading(pending); err != nil {
					log.Printf("failed to send reading: %v", err)
				} else {
					submitted = true
				}
			}
			conn.Close()
			conn = nil
			// A cut-short drain or a failed send fails the whole cycle;
			// the pending reading is queued below rather than dropped.
			st = cycleDone
		}
	}

	if !submitted {
		if dropped, ok := m.queue.Push(pending); ok {
			log.Printf("backlog full, dropped oldest reading (timestamp %d)", dropped.Timestamp)
		}
		log.Printf("delivery failed, reading queued (%d pending)", m.queue.Len())
	}
	return true
}

// drainBacklog transmits queued readings oldest first, removing each only
// after its send succeeds. It stops as soon as the link drops or a send
// fails, leaving the remaining entries queued in order.
func (m *Monitor) drainBacklog(conn graphite.Conn) bool {
	for m.queue.Len() > 0 {
		if !m.link.IsUp() {
			log.Printf("link dropped mid-drain, %d readings still queued", m.queue.Len())
			return false
		}
		r, _ := m.queue.Peek()
		if err := conn.SendReading(r); err != nil {
			log.Printf("backlog send failed, %d readings still queued: %v", m.queue.Len(), err)
			return false
		}
		m.queue.Pop()
	}
	return true
}

// backoffBound returns the sleep bound used after the given number of
// prior failed attempts: startTimeout doubled per retry. The bound is not
// clamped, so the attempt that finally trips the ceiling may sleep past
// it once.
func (m *Monitor) backoffBound(retries int) time.Duration {
	return m.cfg.Backoff.StartTimeout() << uint(retries)
}

// randomDelay picks a uniformly random delay in [0, bound).
func (m *Monitor) randomDelay(bound time.Duration) time.Duration {
	if bound <= 0 {
		return 0
	}
	return time.Duration(m.rng.Int63n(int64(bound)))
}
