// Package transition implements the Transition Manager: the 5-second
// wall-clock gate that keeps gapless track changes perceptually
// seamless. The ring buffer gives the decode loop a 5-second
// look-ahead, so a new session's first packets are already decoding
// while the old session's tail is still draining through the sink;
// the UI-facing song_change event and sample-offset reset must not
// fire until that look-ahead window has actually elapsed in wall-clock
// time, or the UI would announce the new track before it's audible.
// No separate reset-control pulse is sent to the sink.
package transition

import (
	"sync"
	"time"
)

// Window is the look-ahead the ring buffer provides; a transition's
// UI-facing effects are withheld until this much wall time has
// elapsed since the new session's first packet was decoded.
const Window = 5 * time.Second

// Manager gates the two transition side effects (song_change and the
// sample-offset reset) behind the look-ahead window, for both track
// changes and loop wrap-around
// (both ride the same gate, per the single-gate decision recorded in
// SPEC_FULL.md's Supplemented Features section).
type Manager struct {
	mu      sync.Mutex
	armedAt time.Time
	armed   bool
}

// New creates an idle Manager.
func New() *Manager {
	return &Manager{}
}

// Arm records the wall-clock moment the first packet of a new session
// was decoded. Call this exactly once per transition, right after
// decoding that first packet.
func (m *Manager) Arm(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.armedAt = now
	m.armed = true
}

// Ready reports whether Window has elapsed since Arm was called. Once
// Ready returns true it stays true until the next Arm or Disarm (so callers can
// poll it repeatedly from the decode loop without losing the result).
func (m *Manager) Ready(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.armed {
		return false
	}
	return now.Sub(m.armedAt) >= Window
}

// Disarm clears the pending transition, e.g. because a StreamFile
// command superseded it before the window elapsed.
func (m *Manager) Disarm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.armed = false
}

// Pending reports whether a transition is currently armed and
// waiting for its window to elapse.
func (m *Manager) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.armed
}
