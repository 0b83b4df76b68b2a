// Package clock supplies epoch time for reading timestamps, optionally
// disciplined by an NTP server.
package clock

import (
	"sync"
	"time"

	"github.com/beevik/ntp"
)

// Clock defines the interface for time sources.
type Clock interface {
	// Now returns the current epoch time in seconds. Before the first
	// successful Resync an NTP clock may return undisciplined values.
	Now() int64
	// Resync refreshes the time source, returning true on success. It may
	// be called repeatedly on failure with no progress guarantee.
	Resync() bool
}

// Ensure both implementations satisfy Clock.
var (
	_ Clock = (*System)(nil)
	_ Clock = (*NTP)(nil)
)

// System is the local wall clock, assumed already disciplined by the host.
type System struct{}

// Now returns local epoch seconds.
func (System) Now() int64 {
	return time.Now().Unix()
}

// Resync is a no-op for the system clock.
func (System) Resync() bool {
	return true
}

// NTP tracks the offset between the local clock and an NTP server. The
// offset is refreshed on Resync and applied on every Now call, so between
// syncs time still advances with the local clock.
type NTP struct {
	server  string
	timeout time.Duration

	mu     sync.Mutex
	offset time.Duration
	synced bool
}

// NewNTP creates a clock disciplined by the given NTP server.
func NewNTP(server string, timeout time.Duration) *NTP {
	return &NTP{
		server:  server,
		timeout: timeout,
	}
}

// Now returns epoch seconds corrected by the last known offset.
func (c *NTP) Now() int64 {
	c.mu.Lock()
	offset := c.offset
	c.mu.Unlock()
	return time.Now().Add(offset).Unix()
}

// Resync queries the NTP server and stores the fresh offset. A failed
// query keeps the previous offset.
func (c *NTP) Resync() bool {
	resp, err := ntp.QueryWithOptions(c.server, ntp.QueryOptions{
		Timeout: c.timeout,
	})
	if err != nil {
		return false
	}
	if err := resp.Validate(); err != nil {
		return false
	}

	c.mu.Lock()
	c.offset = resp.ClockOffset
	c.synced = true
	c.mu.Unlock()
	return true
}

// Synced reports whether at least one Resync has succeeded.
func (c *NTP) Synced() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.synced
}
