package core

import (
	"math/rand"
	"sort"
	"time"
)

// DefaultLatencySamples is the reservoir size used by NewLatencySample.
const DefaultLatencySamples = 10000

// LatencyMetrics contains latency statistics for counted outcomes.
type LatencyMetrics struct {
	Min time.Duration `json:"min"`
	Max time.Duration `json:"max"`
	Avg time.Duration `json:"avg"`
	P50 time.Duration `json:"p50"`
	P90 time.Duration `json:"p90"`
	P95 time.Duration `json:"p95"`
	P99 time.Duration `json:"p99"`
}

// LatencySample keeps exact min/max/avg and a uniform reservoir of latencies
// for percentiles, so memory stays fixed on unbounded runs.
// Not safe for concurrent use.
type LatencySample struct {
	count     uint64
	total     time.Duration
	min       time.Duration
	max       time.Duration
	reservoir []time.Duration
	size      int
	rng       *rand.Rand
}

// NewLatencySample creates a sample holding at most size latencies.
func NewLatencySample(size int) *LatencySample {
	if size <= 0 {
		size = DefaultLatencySamples
	}
	return &LatencySample{
		size: size,
		rng:  rand.New(rand.NewSource(1)),
	}
}

// Record adds one latency.
func (s *LatencySample) Record(d time.Duration) {
	s.count++
	s.total += d
	if s.count == 1 || d < s.min {
		s.min = d
	}
	if d > s.max {
		s.max = d
	}

	if len(s.reservoir) < s.size {
		s.reservoir = append(s.reservoir, d)
		return
	}
	if j := s.rng.Int63n(int64(s.count)); j < int64(s.size) {
		s.reservoir[j] = d
	}
}

// Count returns the number of recorded latencies.
func (s *LatencySample) Count() uint64 {
	return s.count
}

// Metrics computes the statistics. Zero value when nothing was recorded.
func (s *LatencySample) Metrics() LatencyMetrics {
	if s == nil || s.count == 0 {
		return LatencyMetrics{}
	}

	sorted := make([]time.Duration, len(s.reservoir))
	copy(sorted, s.reservoir)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return LatencyMetrics{
		Min: s.min,
		Max: s.max,
		Avg: s.total / time.Duration(s.count),
		P50: Percentile(sorted, 0.50),
		P90: Percentile(sorted, 0.90),
		P95: Percentile(sorted, 0.95),
		P99: Percentile(sorted, 0.99),
	}
}

// Percentile returns the nearest-rank percentile p (0..1) of an ascending
// slice.
func Percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}
