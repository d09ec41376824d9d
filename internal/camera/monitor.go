package camera

import (
	"sync"
	"time"
)

// Monitor tracks camera heartbeats per username. A camera counts as live while its
// last heartbeat is younger than the window.
type Monitor struct {
	window time.Duration
	now    func() time.Time

	mu    sync.RWMutex
	beats map[string]time.Time
}

func NewMonitor(window time.Duration) *Monitor {
	return NewMonitorWithClock(window, time.Now)
}

// NewMonitorWithClock is test-only for deterministic timestamps.
func NewMonitorWithClock(window time.Duration, now func() time.Time) *Monitor {
	return &Monitor{
		window: window,
		now:    now,
		beats:  make(map[string]time.Time),
	}
}

// Heartbeat records that video is being produced for username.
func (m *Monitor) Heartbeat(username string) {
	m.mu.Lock()
	m.beats[username] = m.now()
	m.mu.Unlock()
}

// Drop forgets username, e.g. when its stream disconnects.
func (m *Monitor) Drop(username string) {
	m.mu.Lock()
	delete(m.beats, username)
	m.mu.Unlock()
}

// IsLive reports whether a heartbeat for username arrived within the window.
func (m *Monitor) IsLive(username string) bool {
	m.mu.RLock()
	last, ok := m.beats[username]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	return m.now().Sub(last) <= m.window
}
