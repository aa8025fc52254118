package conout

import (
	"sync/atomic"
	"time"
)

// MetricID indexes one workflow counter or histogram.
type MetricID uint16

const (
	// MetricRegisterSuccess counts successful registrations.
	MetricRegisterSuccess MetricID = iota
	// MetricRegisterFailure counts registration request failures.
	MetricRegisterFailure
	// MetricRegisterRejected counts registrations stopped by local validation.
	MetricRegisterRejected
	// MetricVerifySuccess counts successful code verifications.
	MetricVerifySuccess
	// MetricVerifyFailure counts verification request failures.
	MetricVerifyFailure
	// MetricVerifyRejected counts codes stopped by local validation.
	MetricVerifyRejected
	// MetricResendSuccess counts successful code resends.
	MetricResendSuccess
	// MetricResendFailure counts resend request failures.
	MetricResendFailure
	// MetricSubmitSuccess counts accepted preference submissions.
	MetricSubmitSuccess
	// MetricSubmitFailure counts submission request failures.
	MetricSubmitFailure
	// MetricSubmitRejected counts submissions stopped by local validation.
	MetricSubmitRejected
	// MetricMatchSuccess counts retrieved matches.
	MetricMatchSuccess
	// MetricMatchFailure counts match retrieval failures.
	MetricMatchFailure
	// MetricMatchRetry counts user-triggered match retries.
	MetricMatchRetry
	// MetricDuplicateSuppressed counts operations ignored because the step
	// already had a request in flight.
	MetricDuplicateSuppressed
	// MetricStaleCompletionDropped counts completions discarded because the
	// flow had moved on before they resolved.
	MetricStaleCompletionDropped
	// MetricMatchLatency is the match fetch latency histogram.
	MetricMatchLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

// paddedCounter keeps adjacent counters on separate cache lines so hot
// increments do not false-share.
type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the in-process workflow counters. All methods are safe for
// concurrent use and are no-ops on a nil or disabled receiver.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a Metrics recorder honoring cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is being recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records one match fetch duration.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricMatchLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value reads a single counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and, when enabled, the latency histogram.
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
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricMatchLatency].buckets[i])
		}
		s.Histograms[MetricMatchLatency] = buckets
	}

	return s
}

// bucketIndex maps a duration to a histogram bucket. Bounds follow the
// service's simulated latencies: sub-second buckets for local stubs, multi-
// second buckets for real round trips.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 50:
		return 0
	case ms <= 100:
		return 1
	case ms <= 250:
		return 2
	case ms <= 500:
		return 3
	case ms <= 1000:
		return 4
	case ms <= 2500:
		return 5
	case ms <= 5000:
		return 6
	default:
		return 7
	}
}
