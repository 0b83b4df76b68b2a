// Package netlink reports whether the host currently has a route toward
// the metrics server. On the original hardware this watched the WiFi
// association; on a hosted OS the kernel owns the interface, so the probe
// only answers "is the network there right now".
package netlink

import (
	"net"
	"strconv"
	"sync"
	"time"
)

// Link defines the interface for network link state.
type Link interface {
	// IsUp reports whether the link toward the server is usable.
	IsUp() bool
	// Reconnect nudges the link back up. Fire-and-forget; progress is
	// observed through IsUp.
	Reconnect()
}

// Ensure both implementations satisfy Link.
var (
	_ Link = (*Probe)(nil)
	_ Link = (*Mock)(nil)
)

// Probe checks reachability by resolving a local route toward the server.
// A UDP "dial" does not send any packets; it only asks the kernel whether
// it could.
type Probe struct {
	addr string
}

// NewProbe creates a link probe toward host:port.
func NewProbe(host string, port int) *Probe {
	return &Probe{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
	}
}

// IsUp reports whether the kernel has a route toward the server.
func (p *Probe) IsUp() bool {
	conn, err := net.DialTimeout("udp", p.addr, time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Reconnect is a no-op; the OS manages interface state.
func (p *Probe) Reconnect() {}

// Mock simulates a link with a scripted sequence of states for tests.
type Mock struct {
	mu sync.Mutex

	// States is consumed one entry per IsUp call; after it runs out the
	// last entry (or Up when empty) is the steady state.
	States []bool
	// Up is the steady state once States is exhausted.
	Up bool

	isUpCalls      int
	reconnectCalls int
}

// IsUp returns the next scripted state.
func (m *Mock) IsUp() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.isUpCalls++
	if len(m.States) > 0 {
		up := m.States[0]
		m.States = m.States[1:]
		if len(m.States) == 0 {
			m.Up = up
		}
		return up
	}
	return m.Up
}

// Reconnect records the call.
func (m *Mock) Reconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconnectCalls++
}

// IsUpCalls returns how many times IsUp was consulted.
func (m *Mock) IsUpCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isUpCalls
}

// ReconnectCalls returns how many times Reconnect was requested.
func (m *Mock) ReconnectCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnectCalls
}
