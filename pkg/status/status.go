// Package status surfaces the pipeline's lifecycle to an operator. The
// original hardware drove an RGB LED; here the colour map survives as log
// output.
package status

import (
	"log"
	"sync"
)

// State is one lifecycle/error state of the pipeline.
type State int

const (
	// Idle means the pipeline is running normally.
	Idle State = iota
	// AwaitingWifi means the network link is down.
	AwaitingWifi
	// AwaitingSensor means the sensor has not initialized yet.
	AwaitingSensor
	// AwaitingTimeSync means the clock has not synchronized yet.
	AwaitingTimeSync
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingWifi:
		return "awaiting wifi"
	case AwaitingSensor:
		return "awaiting sensor"
	case AwaitingTimeSync:
		return "awaiting time sync"
	default:
		return "unknown"
	}
}

// Colour returns the LED colour the state maps to.
func (s State) Colour() string {
	switch s {
	case Idle:
		return "green"
	case AwaitingWifi:
		return "red"
	case AwaitingSensor:
		return "blue"
	case AwaitingTimeSync:
		return "yellow"
	default:
		return "off"
	}
}

// Indicator consumes state transitions as a side-effect sink.
type Indicator interface {
	Set(State)
}

// Ensure both implementations satisfy Indicator.
var (
	_ Indicator = (*Logger)(nil)
	_ Indicator = (*Recorder)(nil)
)

// Logger logs state transitions, once per change.
type Logger struct {
	mu      sync.Mutex
	current State
	seen    bool
}

// Set logs the transition if the state changed.
func (l *Logger) Set(s State) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.seen && s == l.current {
		return
	}
	l.current = s
	l.seen = true
	log.Printf("status: %s (%s)", s, s.Colour())
}

// Recorder captures the sequence of states for tests.
type Recorder struct {
	mu     sync.Mutex
	states []State
}

// Set records the state.
func (r *Recorder) Set(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

// States returns a copy of the recorded sequence.
func (r *Recorder) States() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, len(r.states))
	copy(out, r.states)
	return out
}

// Last returns the most recent state, or Idle if none was recorded.
func (r *Recorder) Last() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return Idle
	}
	return r.states[len(r.states)-1]
}
