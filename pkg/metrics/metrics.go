// Package metrics collects operation counters and timings for the search
// engine and exports them in Prometheus text format.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Collector accumulates real-time performance metrics for the engine's
// operations. Counter updates are atomic; histograms take a short lock.
type Collector struct {
	// Search metrics
	searchesExecuted uint64
	searchesFailed   uint64
	totalSearchTime  uint64 // in nanoseconds

	// Index metrics
	indexesExecuted uint64
	indexesFailed   uint64
	totalIndexTime  uint64 // in nanoseconds

	// Autocomplete metrics
	autocompletesExecuted uint64
	totalAutocompleteTime uint64

	// Recommendation metrics
	recommendsExecuted uint64
	recommendsMissed   uint64 // existence filter rejections
	totalRecommendTime uint64

	// View recording
	viewsRecorded uint64

	// Result cache
	cacheHits   uint64
	cacheMisses uint64

	searchTimings *TimingHistogram
	indexTimings  *TimingHistogram

	startTime time.Time
}

// NewCollector creates a metrics collector.
func NewCollector() *Collector {
	return &Collector{
		searchTimings: NewTimingHistogram(1000),
		indexTimings:  NewTimingHistogram(1000),
		startTime:     time.Now(),
	}
}

// RecordSearch records a search execution.
func (c *Collector) RecordSearch(duration time.Duration, success bool) {
	atomic.AddUint64(&c.searchesExecuted, 1)
	if !success {
		atomic.AddUint64(&c.searchesFailed, 1)
	}
	atomic.AddUint64(&c.totalSearchTime, uint64(duration.Nanoseconds()))
	c.searchTimings.Record(duration)
}

// RecordIndex records a product indexing operation.
func (c *Collector) RecordIndex(duration time.Duration, success bool) {
	atomic.AddUint64(&c.indexesExecuted, 1)
	if !success {
		atomic.AddUint64(&c.indexesFailed, 1)
	}
	atomic.AddUint64(&c.totalIndexTime, uint64(duration.Nanoseconds()))
	c.indexTimings.Record(duration)
}

// RecordAutocomplete records a prefix lookup.
func (c *Collector) RecordAutocomplete(duration time.Duration) {
	atomic.AddUint64(&c.autocompletesExecuted, 1)
	atomic.AddUint64(&c.totalAutocompleteTime, uint64(duration.Nanoseconds()))
}

// RecordRecommend records a recommendation lookup. missed marks existence
// filter rejections.
func (c *Collector) RecordRecommend(duration time.Duration, missed bool) {
	atomic.AddUint64(&c.recommendsExecuted, 1)
	if missed {
		atomic.AddUint64(&c.recommendsMissed, 1)
	}
	atomic.AddUint64(&c.totalRecommendTime, uint64(duration.Nanoseconds()))
}

// RecordView records a co-view ingestion.
func (c *Collector) RecordView() {
	atomic.AddUint64(&c.viewsRecorded, 1)
}

// RecordCacheHit records a result-cache hit.
func (c *Collector) RecordCacheHit() {
	atomic.AddUint64(&c.cacheHits, 1)
}

// RecordCacheMiss records a result-cache miss.
func (c *Collector) RecordCacheMiss() {
	atomic.AddUint64(&c.cacheMisses, 1)
}

// Uptime returns time since the collector was created.
func (c *Collector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// TimingHistogram stores operation durations in fixed buckets plus a bounded
// window of recent samples for percentile estimates.
type TimingHistogram struct {
	// Buckets: <1ms, 1-10ms, 10-100ms, 100ms-1s, >1s
	bucket0_1ms      uint64
	bucket1_10ms     uint64
	bucket10_100ms   uint64
	bucket100_1000ms uint64
	bucket1000ms     uint64

	mu               sync.Mutex
	recentTimings    []time.Duration
	maxRecentTimings int
}

// NewTimingHistogram creates a histogram keeping up to maxRecent samples.
func NewTimingHistogram(maxRecent int) *TimingHistogram {
	return &TimingHistogram{
		recentTimings:    make([]time.Duration, 0, maxRecent),
		maxRecentTimings: maxRecent,
	}
}

// Record adds a duration sample.
func (h *TimingHistogram) Record(d time.Duration) {
	switch {
	case d < time.Millisecond:
		atomic.AddUint64(&h.bucket0_1ms, 1)
	case d < 10*time.Millisecond:
		atomic.AddUint64(&h.bucket1_10ms, 1)
	case d < 100*time.Millisecond:
		atomic.AddUint64(&h.bucket10_100ms, 1)
	case d < time.Second:
		atomic.AddUint64(&h.bucket100_1000ms, 1)
	default:
		atomic.AddUint64(&h.bucket1000ms, 1)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.recentTimings) >= h.maxRecentTimings {
		// Drop the oldest half rather than shifting one by one.
		copy(h.recentTimings, h.recentTimings[len(h.recentTimings)/2:])
		h.recentTimings = h.recentTimings[:len(h.recentTimings)-len(h.recentTimings)/2]
	}
	h.recentTimings = append(h.recentTimings, d)
}

// Percentile returns the p-th percentile (0-100) of the recent samples.
func (h *TimingHistogram) Percentile(p float64) time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.recentTimings) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(h.recentTimings))
	copy(sorted, h.recentTimings)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(float64(len(sorted)-1) * p / 100)
	return sorted[idx]
}

// Buckets returns the histogram bucket counts in ascending bound order.
func (h *TimingHistogram) Buckets() [5]uint64 {
	return [5]uint64{
		atomic.LoadUint64(&h.bucket0_1ms),
		atomic.LoadUint64(&h.bucket1_10ms),
		atomic.LoadUint64(&h.bucket10_100ms),
		atomic.LoadUint64(&h.bucket100_1000ms),
		atomic.LoadUint64(&h.bucket1000ms),
	}
}
