package build

import (
	"sync"
	"time"
)

// Metrics tracks page render counts and durations across builds.
type Metrics struct {
	Builds          int64
	PagesRendered   int64
	PagesFailed     int64
	AverageDuration time.Duration
	TotalDuration   time.Duration
	LastBuild       time.Time
	mutex           sync.RWMutex
}

// NewMetrics creates an empty metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordPage records the outcome of one page render.
func (m *Metrics) RecordPage(page PageResult) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.TotalDuration += page.Duration
	if page.Err != nil {
		m.PagesFailed++
	} else {
		m.PagesRendered++
	}

	if total := m.PagesRendered + m.PagesFailed; total > 0 {
		m.AverageDuration = m.TotalDuration / time.Duration(total)
	}
}

// RecordBuild counts a finished full build.
func (m *Metrics) RecordBuild(at time.Time) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.Builds++
	m.LastBuild = at
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() Metrics {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return Metrics{
		Builds:          m.Builds,
		PagesRendered:   m.PagesRendered,
		PagesFailed:     m.PagesFailed,
		AverageDuration: m.AverageDuration,
		TotalDuration:   m.TotalDuration,
		LastBuild:       m.LastBuild,
	}
}

// Reset zeroes all counters.
func (m *Metrics) Reset() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.Builds = 0
	m.PagesRendered = 0
	m.PagesFailed = 0
	m.AverageDuration = 0
	m.TotalDuration = 0
	m.LastBuild = time.Time{}
}

// SuccessRate returns the share of successful page renders as a percentage.
func (m *Metrics) SuccessRate() float64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	total := m.PagesRendered + m.PagesFailed
	if total == 0 {
		return 0.0
	}
	return float64(m.PagesRendered) / float64(total) * 100.0
}
