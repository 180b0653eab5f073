package monitoring

import (
	"runtime"
	"sync"
	"time"
)

// Metrics is a small in-process collector: monotonically increasing
// counters, settable gauges and latency aggregates per name.
type Metrics struct {
	mu        sync.RWMutex
	counters  map[string]int64
	gauges    map[string]float64
	latencies map[string]*latencyStats
	startTime time.Time
}

type latencyStats struct {
	Count int64   `json:"count"`
	Total float64 `json:"total_ms"`
	Max   float64 `json:"max_ms"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		counters:  make(map[string]int64),
		gauges:    make(map[string]float64),
		latencies: make(map[string]*latencyStats),
		startTime: time.Now(),
	}
}

func (m *Metrics) IncCounter(name string) {
	m.AddCounter(name, 1)
}

func (m *Metrics) AddCounter(name string, delta int64) {
	m.mu.Lock()
	m.counters[name] += delta
	m.mu.Unlock()
}

func (m *Metrics) SetGauge(name string, value float64) {
	m.mu.Lock()
	m.gauges[name] = value
	m.mu.Unlock()
}

func (m *Metrics) ObserveLatency(name string, d time.Duration) {
	ms := float64(d) / float64(time.Millisecond)
	m.mu.Lock()
	stats, ok := m.latencies[name]
	if !ok {
		stats = &latencyStats{}
		m.latencies[name] = stats
	}
	stats.Count++
	stats.Total += ms
	if ms > stats.Max {
		stats.Max = ms
	}
	m.mu.Unlock()
}

func (m *Metrics) Counter(name string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[name]
}

// Snapshot returns a copy of everything for the metrics endpoint.
func (m *Metrics) Snapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counters := make(map[string]int64, len(m.counters))
	for name, value := range m.counters {
		counters[name] = value
	}
	gauges := make(map[string]float64, len(m.gauges))
	for name, value := range m.gauges {
		gauges[name] = value
	}
	latencies := make(map[string]latencyStats, len(m.latencies))
	for name, stats := range m.latencies {
		entry := *stats
		latencies[name] = entry
	}

	return map[string]interface{}{
		"counters":       counters,
		"gauges":         gauges,
		"latencies":      latencies,
		"uptime_seconds": time.Since(m.startTime).Seconds(),
		"goroutines":     runtime.NumGoroutine(),
	}
}
