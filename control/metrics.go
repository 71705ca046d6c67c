// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Counter registry for transport-level monitoring.
// Counters are created on first use; readers take snapshots.

package control

import (
	"sync"
	"time"
)

// Metrics holds named monotonically increasing counters.
type Metrics struct {
	mu       sync.RWMutex
	counters map[string]uint64
	updated  time.Time
}

// NewMetrics creates an empty registry.
func NewMetrics() *Metrics {
	return &Metrics{
		counters: make(map[string]uint64),
	}
}

// Add increments key by delta. A nil registry ignores the call.
func (m *Metrics) Add(key string, delta uint64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.counters[key] += delta
	m.updated = time.Now()
	m.mu.Unlock()
}

// Get returns the current value of key.
func (m *Metrics) Get(key string) uint64 {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[key]
}

// Updated returns the time of the last Add.
func (m *Metrics) Updated() time.Time {
	if m == nil {
		return time.Time{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updated
}

// Snapshot returns a copy of all counters.
func (m *Metrics) Snapshot() map[string]uint64 {
	if m == nil {
		return map[string]uint64{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]uint64, len(m.counters))
	for k, v := range m.counters {
		out[k] = v
	}
	return out
}
