package authcore

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one in-process counter.
type MetricID uint16

const (
	// MetricLoginSuccess is an exported constant or variable used by the session security engine.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure is an exported constant or variable used by the session security engine.
	MetricLoginFailure
	// MetricCaptchaRequired is an exported constant or variable used by the session security engine.
	MetricCaptchaRequired
	// MetricCaptchaSolved is an exported constant or variable used by the session security engine.
	MetricCaptchaSolved
	// MetricCaptchaFailed is an exported constant or variable used by the session security engine.
	MetricCaptchaFailed
	// MetricRefreshSuccess is an exported constant or variable used by the session security engine.
	MetricRefreshSuccess
	// MetricRefreshFailure is an exported constant or variable used by the session security engine.
	MetricRefreshFailure
	// MetricValidateSuccess is an exported constant or variable used by the session security engine.
	MetricValidateSuccess
	// MetricValidateFailure is an exported constant or variable used by the session security engine.
	MetricValidateFailure
	// MetricTokenRevoked is an exported constant or variable used by the session security engine.
	MetricTokenRevoked
	// MetricLogout is an exported constant or variable used by the session security engine.
	MetricLogout
	// MetricLogoutAll is an exported constant or variable used by the session security engine.
	MetricLogoutAll
	// MetricPasswordResetRequest is an exported constant or variable used by the session security engine.
	MetricPasswordResetRequest
	// MetricPasswordResetConfirm is an exported constant or variable used by the session security engine.
	MetricPasswordResetConfirm
	// MetricEmailVerificationRequest is an exported constant or variable used by the session security engine.
	MetricEmailVerificationRequest
	// MetricEmailVerificationConfirm is an exported constant or variable used by the session security engine.
	MetricEmailVerificationConfirm
	// MetricStoreDegraded is an exported constant or variable used by the session security engine.
	MetricStoreDegraded
	// MetricValidateLatency is an exported constant or variable used by the session security engine.
	MetricValidateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

// paddedCounter keeps each counter on its own cache line so concurrent
// increments of different metrics never false-share.
type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the engine's in-process counters. All methods are safe
// for concurrent use and nil-receiver safe.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter.
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

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a validate-path latency sample. Only
// MetricValidateLatency carries a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricValidateLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricValidateLatency].buckets[i])
		}
		s.Histograms[MetricValidateLatency] = buckets
	}

	return s
}

// bucketIndex maps a latency sample to exponential buckets:
// <100µs, <250µs, <500µs, <1ms, <2.5ms, <5ms, <10ms, rest.
func bucketIndex(d time.Duration) int {
	switch {
	case d < 100*time.Microsecond:
		return 0
	case d < 250*time.Microsecond:
		return 1
	case d < 500*time.Microsecond:
		return 2
	case d < time.Millisecond:
		return 3
	case d < 2500*time.Microsecond:
		return 4
	case d < 5*time.Millisecond:
		return 5
	case d < 10*time.Millisecond:
		return 6
	default:
		return 7
	}
}
