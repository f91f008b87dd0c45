package stream

import (
	"sync"
)

// Metrics tracks streaming counters for observability.
type Metrics struct {
	mu sync.Mutex

	events      uint64
	dropped     uint64
	builds      uint64
	noopBuilds  uint64
	decorations uint64
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Events      uint64
	Dropped     uint64
	Builds      uint64
	NoopBuilds  uint64
	Decorations uint64
}

// NewMetrics creates an empty metrics registry.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncEvents increments the counter of drained boundary events.
func (m *Metrics) IncEvents() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.events++
	m.mu.Unlock()
}

// IncDropped increments the counter of boundary events dropped unresolved.
func (m *Metrics) IncDropped() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.dropped++
	m.mu.Unlock()
}

// IncBuilds increments the realised chunk counter and adds the decorations
// placed on the chunk.
func (m *Metrics) IncBuilds(decorations int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.builds++
	m.decorations += uint64(decorations)
	m.mu.Unlock()
}

// IncNoopBuilds increments the counter of builds that were no-ops.
func (m *Metrics) IncNoopBuilds() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.noopBuilds++
	m.mu.Unlock()
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{
		Events:      m.events,
		Dropped:     m.dropped,
		Builds:      m.builds,
		NoopBuilds:  m.noopBuilds,
		Decorations: m.decorations,
	}
}
