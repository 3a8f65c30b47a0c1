package observability

import (
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"
)

// MetricsRegistry holds all registered metrics.
type MetricsRegistry struct {
	mu       sync.RWMutex
	counters map[string]*Counter
	gauges   map[string]*Gauge
	histos   map[string]*Histogram
}

// Counter is a monotonically increasing metric.
type Counter struct {
	name  string
	help  string
	value float64
	mu    sync.Mutex
}

// Gauge is a metric that can go up or down.
type Gauge struct {
	name  string
	help  string
	value float64
	mu    sync.Mutex
}

// Histogram tracks distribution of values.
type Histogram struct {
	name    string
	help    string
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
	mu      sync.Mutex
}

// NewMetricsRegistry creates a new metrics registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		counters: make(map[string]*Counter),
		gauges:   make(map[string]*Gauge),
		histos:   make(map[string]*Histogram),
	}
}

// NewCounter creates and registers a counter.
func (r *MetricsRegistry) NewCounter(name, help string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := &Counter{name: name, help: help}
	r.counters[name] = c
	return c
}

// NewGauge creates and registers a gauge.
func (r *MetricsRegistry) NewGauge(name, help string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	g := &Gauge{name: name, help: help}
	r.gauges[name] = g
	return g
}

// NewHistogram creates and registers a histogram.
func (r *MetricsRegistry) NewHistogram(name, help string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	if buckets == nil {
		buckets = DefaultBuckets()
	}

	h := &Histogram{
		name:    name,
		help:    help,
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
	r.histos[name] = h
	return h
}

// DefaultBuckets returns default histogram buckets for latency.
func DefaultBuckets() []float64 {
	return []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
}

// Inc increments a counter by 1.
func (c *Counter) Inc() {
	c.Add(1)
}

// Add adds a value to the counter.
func (c *Counter) Add(v float64) {
	c.mu.Lock()
	c.value += v
	c.mu.Unlock()
}

// Value returns the counter value.
func (c *Counter) Value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set sets the gauge value.
func (g *Gauge) Set(v float64) {
	g.mu.Lock()
	g.value = v
	g.mu.Unlock()
}

// Inc increments the gauge by 1.
func (g *Gauge) Inc() {
	g.Add(1)
}

// Dec decrements the gauge by 1.
func (g *Gauge) Dec() {
	g.Add(-1)
}

// Add adds a value to the gauge.
func (g *Gauge) Add(v float64) {
	g.mu.Lock()
	g.value += v
	g.mu.Unlock()
}

// Value returns the gauge value.
func (g *Gauge) Value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

// Observe records a value in the histogram.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sum += v
	h.count++

	for i, bound := range h.buckets {
		if v <= bound {
			h.counts[i]++
		}
	}
}

// ObserveDuration records a duration in the histogram.
func (h *Histogram) ObserveDuration(start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Handler returns an HTTP handler for Prometheus metrics.
func (r *MetricsRegistry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		r.WritePrometheus(w)
	})
}

// WritePrometheus writes metrics in Prometheus text format. Output is sorted
// by metric name so scrapes are stable.
func (r *MetricsRegistry) WritePrometheus(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range sortedNames(r.counters) {
		c := r.counters[name]
		writeScalar(w, c.name, "counter", c.help, c.Value())
	}
	for _, name := range sortedNames(r.gauges) {
		g := r.gauges[name]
		writeScalar(w, g.name, "gauge", g.help, g.Value())
	}
	for _, name := range sortedNames(r.histos) {
		h := r.histos[name]
		h.mu.Lock()
		writeHistogram(w, h)
		h.mu.Unlock()
	}
}

func sortedNames[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func writeScalar(w io.Writer, name, metricType, help string, value float64) {
	io.WriteString(w, "# HELP "+name+" "+help+"\n")
	io.WriteString(w, "# TYPE "+name+" "+metricType+"\n")
	io.WriteString(w, name+" "+formatFloat(value)+"\n")
}

func writeHistogram(w io.Writer, h *Histogram) {
	io.WriteString(w, "# HELP "+h.name+" "+h.help+"\n")
	io.WriteString(w, "# TYPE "+h.name+" histogram\n")

	var cumulative uint64
	for i, bound := range h.buckets {
		cumulative += h.counts[i]
		io.WriteString(w, h.name+"_bucket{le=\""+formatFloat(bound)+"\"} "+
			strconv.FormatUint(cumulative, 10)+"\n")
	}
	io.WriteString(w, h.name+"_bucket{le=\"+Inf\"} "+strconv.FormatUint(h.count, 10)+"\n")
	io.WriteString(w, h.name+"_sum "+formatFloat(h.sum)+"\n")
	io.WriteString(w, h.name+"_count "+strconv.FormatUint(h.count, 10)+"\n")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// AtlasMetrics contains the engine's operational metrics.
type AtlasMetrics struct {
	Registry *MetricsRegistry

	// Query metrics
	QueriesTotal     *Counter
	QueryErrorsTotal *Counter
	QueryDuration    *Histogram

	// Index cache metrics
	CacheHitsTotal   *Counter
	CacheMissesTotal *Counter
	IndexBuildsTotal *Counter
	IndexBuildErrors *Counter
	IndexBuildTime   *Histogram
	CachedIndexes    *Gauge

	// Semantic backend metrics
	VectorSearchesTotal *Counter
	VectorUpsertsTotal  *Counter
}

// NewAtlasMetrics creates the engine metrics set.
func NewAtlasMetrics() *AtlasMetrics {
	r := NewMetricsRegistry()

	return &AtlasMetrics{
		Registry: r,

		QueriesTotal:     r.NewCounter("atlas_queries_total", "Total engine queries"),
		QueryErrorsTotal: r.NewCounter("atlas_query_errors_total", "Total failed engine queries"),
		QueryDuration:    r.NewHistogram("atlas_query_duration_seconds", "Engine query duration", nil),

		CacheHitsTotal:   r.NewCounter("atlas_cache_hits_total", "Index cache hits"),
		CacheMissesTotal: r.NewCounter("atlas_cache_misses_total", "Index cache misses"),
		IndexBuildsTotal: r.NewCounter("atlas_index_builds_total", "Total index builds"),
		IndexBuildErrors: r.NewCounter("atlas_index_build_errors_total", "Failed index builds"),
		IndexBuildTime:   r.NewHistogram("atlas_index_build_duration_seconds", "Index build duration", nil),
		CachedIndexes:    r.NewGauge("atlas_cached_indexes", "Number of indexes currently cached"),

		VectorSearchesTotal: r.NewCounter("atlas_vector_searches_total", "Total vector backend searches"),
		VectorUpsertsTotal:  r.NewCounter("atlas_vector_upserts_total", "Total vector backend upserts"),
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *AtlasMetrics) Handler() http.Handler {
	return m.Registry.Handler()
}

// RecordQuery records one engine query outcome.
func (m *AtlasMetrics) RecordQuery(operation string, err error) {
	m.QueriesTotal.Inc()
	if err != nil {
		m.QueryErrorsTotal.Inc()
	}
}

// RecordQueryDuration records how long an engine query took.
func (m *AtlasMetrics) RecordQueryDuration(start time.Time) {
	m.QueryDuration.ObserveDuration(start)
}

// RecordIndexBuild records an index build outcome.
func (m *AtlasMetrics) RecordIndexBuild(duration time.Duration, err error) {
	m.IndexBuildsTotal.Inc()
	m.IndexBuildTime.Observe(duration.Seconds())
	if err != nil {
		m.IndexBuildErrors.Inc()
	}
}

// RecordCacheAccess records a cache hit or miss.
func (m *AtlasMetrics) RecordCacheAccess(hit bool) {
	if hit {
		m.CacheHitsTotal.Inc()
	} else {
		m.CacheMissesTotal.Inc()
	}
}

// Global metrics instance
var globalMetrics *AtlasMetrics
var metricsOnce sync.Once

// Metrics returns the global metrics instance.
func Metrics() *AtlasMetrics {
	metricsOnce.Do(func() {
		globalMetrics = NewAtlasMetrics()
	})
	return globalMetrics
}
