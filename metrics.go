package apartments

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one in-process counter.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricRegistrationBegin
	MetricRegistrationSuccess
	MetricRegistrationDuplicate
	MetricRegistrationFailure
	MetricCodeIssued
	MetricCodeExpired
	MetricCodeMismatch
	MetricDeliveryFailure
	MetricPasswordResetRequest
	MetricPasswordResetConfirmSuccess
	MetricPasswordResetConfirmFailure
	MetricPasswordResetSuccess
	MetricSessionCreated
	MetricSessionRestored
	MetricSessionMissing
	MetricLogout
	MetricPendingDiscarded
	// MetricLoginLatency is the only id with a histogram.
	MetricLoginLatency
	metricIDCount
)

// latencyBounds are the finite upper bounds of the login latency buckets.
var latencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const (
	histBucketCount = len(latencyBounds) + 1
	cacheLineSize   = 64
)

type paddedCounter struct {
	value atomic.Uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and the login latency histogram. A nil or
// disabled Metrics ignores every update.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	loginLatency  [histBucketCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all metrics. Histogram buckets
// are non-cumulative with upper bounds 5, 10, 25, 50, 100, 250, 500 ms and
// +Inf.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= MetricLoginLatency {
		return
	}
	m.counters[id].value.Add(1)
}

// Observe records d for an id that carries a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricLoginLatency {
		return
	}
	m.loginLatency[bucketIndex(d)].Add(1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= MetricLoginLatency {
		return 0
	}
	return m.counters[id].value.Load()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}

	for id := MetricID(0); id < MetricLoginLatency; id++ {
		s.Counters[id] = m.counters[id].value.Load()
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = m.loginLatency[i].Load()
		}
		s.Histograms[MetricLoginLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	for i, bound := range latencyBounds {
		if d <= bound {
			return i
		}
	}
	return len(latencyBounds)
}
