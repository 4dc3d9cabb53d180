package chatgate

import (
	"time"

	"github.com/MrEthical07/chatgate/internal/metrics"
)

// MetricID identifies one engine counter.
type MetricID uint16

const (
	MetricRegisterSuccess MetricID = iota
	MetricRegisterDuplicate
	MetricRegisterWeakPassword
	MetricRegisterRateLimited
	MetricLoginChallengeIssued
	MetricLoginFailure
	MetricLoginRateLimited
	MetricLoginUnverified
	MetricChallengeSuccess
	MetricChallengeMismatch
	MetricChallengeLocked
	MetricChallengeMissing
	MetricSessionCreated
	MetricSessionValidated
	MetricSessionExpired
	MetricLogout
	MetricLogoutAll
	MetricEmailVerificationSent
	MetricEmailVerificationSuccess
	MetricEmailVerificationFailure
	MetricPasswordChangeSuccess
	MetricPasswordChangeFailure
	MetricMailFailure
	MetricRateLimitHit
	MetricValidateLatency
	metricIDCount
)

// HistogramBucketCount is the number of validate latency buckets.
const HistogramBucketCount = metrics.BucketCount

// Metrics is a fixed set of lock-free counters plus the validate latency
// histogram. A nil or disabled Metrics ignores every call.
type Metrics struct {
	enabled       bool
	enableLatency bool
	registry      *metrics.Registry
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
		registry:      metrics.New(int(metricIDCount)),
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.registry.Inc(int(id))
}

// Observe records d for MetricValidateLatency; other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricValidateLatency {
		return
	}
	m.registry.Observe(int(id), d)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.registry.Load(int(id))
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
		if id == MetricValidateLatency {
			continue
		}
		s.Counters[id] = m.registry.Load(int(id))
	}
	if m.enableLatency {
		s.Histograms[MetricValidateLatency] = m.registry.Buckets(int(MetricValidateLatency))
	}
	return s
}
