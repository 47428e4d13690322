// Package metrics records one performance event per completed request into a
// bounded in-memory buffer and computes trailing-window aggregates on
// demand. Recording is cheap and non-blocking; nothing in this package ever
// surfaces an error to callers. Metrics are not persisted across restarts.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/uniseek/uniseek/pkg/log"
)

// Metric is one completed request observation. Created once per request,
// immutable, retained in the buffer until evicted.
type Metric struct {
	Timestamp        time.Time     `json:"timestamp"`
	RequestID        string        `json:"request_id,omitempty"`
	Endpoint         string        `json:"endpoint"`
	Method           string        `json:"method"`
	Duration         time.Duration `json:"duration_ms"`
	StatusCode       int           `json:"status_code"`
	Cached           bool          `json:"cached"`
	Compressed       bool          `json:"compressed"`
	CompressionRatio float64       `json:"compression_ratio,omitempty"`
	ErrorMessage     string        `json:"error_message,omitempty"`
}

// EndpointStat is per-endpoint aggregate used for the slowest-endpoints list.
type EndpointStat struct {
	Endpoint string  `json:"endpoint"`
	Count    int     `json:"count"`
	MeanMs   float64 `json:"mean_ms"`
}

// Summary is a derived trailing-window aggregate. It is recomputed on demand
// and never stored. An empty window yields all zeros.
type Summary struct {
	WindowMinutes    int            `json:"window_minutes"`
	Count            int            `json:"count"`
	MeanMs           float64        `json:"mean_ms"`
	MedianMs         float64        `json:"median_ms"`
	P95Ms            float64        `json:"p95_ms"`
	P99Ms            float64        `json:"p99_ms"`
	CacheHitRate     float64        `json:"cache_hit_rate"`
	CompressionRate  float64        `json:"compression_rate"`
	ErrorRate        float64        `json:"error_rate"`
	SlowestEndpoints []EndpointStat `json:"slowest_endpoints"`
}

// Options configure a Collector. Zero values pick a 10,000-entry buffer and
// a 1s slow-request threshold.
type Options struct {
	BufferSize    int
	SlowThreshold time.Duration
}

// Collector is the process-wide metric sink. Safe for concurrent use.
type Collector struct {
	mu       sync.Mutex
	buf      []Metric
	next     int
	size     int
	capacity int

	slowThreshold time.Duration
	logger        *log.Logger

	// observer, when set, receives every recorded metric. It must not
	// block; the firehose hub satisfies that by dropping on slow listeners.
	observer func(Metric)
}

// NewCollector creates a collector with a fixed-capacity FIFO buffer.
// When the buffer is full the oldest entry is dropped.
func NewCollector(opts Options) *Collector {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 10000
	}
	if opts.SlowThreshold <= 0 {
		opts.SlowThreshold = time.Second
	}
	return &Collector{
		buf:           make([]Metric, opts.BufferSize),
		capacity:      opts.BufferSize,
		slowThreshold: opts.SlowThreshold,
		logger:        log.ForComponent("metrics"),
	}
}

// SetObserver registers a per-metric callback, replacing any previous one.
func (c *Collector) SetObserver(fn func(Metric)) {
	c.mu.Lock()
	c.observer = fn
	c.mu.Unlock()
}

// Record appends a metric, evicting the oldest entry when at capacity.
// Slow or errored requests additionally get an immediate diagnostic log
// line, independent of aggregation.
func (c *Collector) Record(m Metric) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}

	c.mu.Lock()
	c.buf[c.next] = m
	c.next = (c.next + 1) % c.capacity
	if c.size < c.capacity {
		c.size++
	}
	observer := c.observer
	c.mu.Unlock()

	if m.ErrorMessage != "" {
		c.logger.Errorf("%s %s failed in %v (status %d): %s", m.Method, m.Endpoint, m.Duration, m.StatusCode, m.ErrorMessage)
	} else if m.Duration >= c.slowThreshold {
		c.logger.Warnf("slow request: %s %s took %v (status %d, cached=%v)", m.Method, m.Endpoint, m.Duration, m.StatusCode, m.Cached)
	}

	if observer != nil {
		observer(m)
	}
}

// Count returns the number of retained metrics.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Clear drops all retained metrics.
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = 0
	c.size = 0
}

// snapshot returns retained metrics oldest-first.
func (c *Collector) snapshot() []Metric {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Metric, 0, c.size)
	start := c.next - c.size
	if start < 0 {
		start += c.capacity
	}
	for i := 0; i < c.size; i++ {
		out = append(out, c.buf[(start+i)%c.capacity])
	}
	return out
}

// Snapshot exposes the retained metrics oldest-first, for diagnostics.
func (c *Collector) Snapshot() []Metric {
	return c.snapshot()
}

// Summary aggregates the metrics recorded within the trailing window.
// Percentiles are computed by sorting durations and indexing floor(n*p).
// The slowest-endpoints list holds at most the five endpoints with the
// highest mean duration.
func (c *Collector) Summary(window time.Duration) Summary {
	summary := Summary{WindowMinutes: int(window.Minutes())}

	cutoff := time.Now().Add(-window)
	var inWindow []Metric
	for _, m := range c.snapshot() {
		if m.Timestamp.After(cutoff) {
			inWindow = append(inWindow, m)
		}
	}
	if len(inWindow) == 0 {
		return summary
	}

	n := len(inWindow)
	summary.Count = n

	durations := make([]float64, n)
	var total float64
	var hits, compressed, errored int
	byEndpoint := make(map[string]*EndpointStat)

	for i, m := range inWindow {
		ms := float64(m.Duration) / float64(time.Millisecond)
		durations[i] = ms
		total += ms
		if m.Cached {
			hits++
		}
		if m.Compressed {
			compressed++
		}
		if m.ErrorMessage != "" || m.StatusCode >= 500 {
			errored++
		}

		stat, ok := byEndpoint[m.Endpoint]
		if !ok {
			stat = &EndpointStat{Endpoint: m.Endpoint}
			byEndpoint[m.Endpoint] = stat
		}
		stat.Count++
		stat.MeanMs += ms
	}

	sort.Float64s(durations)
	summary.MeanMs = total / float64(n)
	summary.MedianMs = percentile(durations, 0.5)
	summary.P95Ms = percentile(durations, 0.95)
	summary.P99Ms = percentile(durations, 0.99)
	summary.CacheHitRate = float64(hits) / float64(n)
	summary.CompressionRate = float64(compressed) / float64(n)
	summary.ErrorRate = float64(errored) / float64(n)

	endpoints := make([]EndpointStat, 0, len(byEndpoint))
	for _, stat := range byEndpoint {
		stat.MeanMs /= float64(stat.Count)
		endpoints = append(endpoints, *stat)
	}
	sort.Slice(endpoints, func(i, j int) bool {
		if endpoints[i].MeanMs == endpoints[j].MeanMs {
			return endpoints[i].Endpoint < endpoints[j].Endpoint
		}
		return endpoints[i].MeanMs > endpoints[j].MeanMs
	})
	if len(endpoints) > 5 {
		endpoints = endpoints[:5]
	}
	summary.SlowestEndpoints = endpoints

	return summary
}

// percentile indexes the sorted slice at floor(n*p), clamped to the last
// element so p=1.0 stays in range.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
