package metrics

import (
	"sync/atomic"
	"time"
)

const (
	// BucketCount is the number of latency buckets, the last being +Inf.
	BucketCount   = 8
	cacheLineSize = 64
)

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

type histogram struct {
	buckets [BucketCount]uint64
}

// Registry holds a fixed number of counters and histograms addressed by index.
type Registry struct {
	counters   []paddedCounter
	histograms []histogram
}

// New allocates a Registry with size counter and histogram slots.
func New(size int) *Registry {
	if size < 0 {
		size = 0
	}
	return &Registry{
		counters:   make([]paddedCounter, size),
		histograms: make([]histogram, size),
	}
}

// Inc adds one to counter id. Out-of-range ids are ignored.
func (r *Registry) Inc(id int) {
	if r == nil || id < 0 || id >= len(r.counters) {
		return
	}
	atomic.AddUint64(&r.counters[id].value, 1)
}

// Observe records d in histogram id.
func (r *Registry) Observe(id int, d time.Duration) {
	if r == nil || id < 0 || id >= len(r.histograms) {
		return
	}
	atomic.AddUint64(&r.histograms[id].buckets[BucketIndex(d)], 1)
}

// Load returns counter id.
func (r *Registry) Load(id int) uint64 {
	if r == nil || id < 0 || id >= len(r.counters) {
		return 0
	}
	return atomic.LoadUint64(&r.counters[id].value)
}

// Buckets returns the non-cumulative bucket counts of histogram id.
func (r *Registry) Buckets(id int) []uint64 {
	out := make([]uint64, BucketCount)
	if r == nil || id < 0 || id >= len(r.histograms) {
		return out
	}
	for i := range out {
		out[i] = atomic.LoadUint64(&r.histograms[id].buckets[i])
	}
	return out
}

// BucketIndex maps a duration to its histogram bucket.
func BucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
