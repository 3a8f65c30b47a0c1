package observability

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCounter(t *testing.T) {
	r := NewMetricsRegistry()
	c := r.NewCounter("test_counter", "Test counter")

	c.Inc()
	c.Inc()
	c.Add(2.5)

	if c.Value() != 4.5 {
		t.Fatalf("expected 4.5, got %f", c.Value())
	}
}

func TestGauge(t *testing.T) {
	r := NewMetricsRegistry()
	g := r.NewGauge("test_gauge", "Test gauge")

	g.Set(42)
	g.Inc()
	g.Dec()
	g.Dec()

	if g.Value() != 41 {
		t.Fatalf("expected 41, got %f", g.Value())
	}
}

func TestHistogram_Observe(t *testing.T) {
	r := NewMetricsRegistry()
	h := r.NewHistogram("test_histogram", "Test histogram", []float64{0.1, 1, 10})

	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(5)
	h.Observe(50)

	if h.count != 4 {
		t.Fatalf("expected count 4, got %d", h.count)
	}
	if h.counts[0] != 1 || h.counts[1] != 2 || h.counts[2] != 3 {
		t.Fatalf("unexpected bucket counts: %v", h.counts)
	}
}

func TestHistogram_ObserveDuration(t *testing.T) {
	r := NewMetricsRegistry()
	h := r.NewHistogram("test_duration", "Test duration", nil)

	h.ObserveDuration(time.Now().Add(-10 * time.Millisecond))
	if h.count != 1 {
		t.Fatalf("expected count 1, got %d", h.count)
	}
	if h.sum <= 0 {
		t.Fatalf("expected positive sum, got %f", h.sum)
	}
}

func TestHandler_PrometheusFormat(t *testing.T) {
	r := NewMetricsRegistry()
	r.NewCounter("requests_total", "Total requests").Add(3)
	r.NewGauge("active", "Active items").Set(7)
	r.NewHistogram("latency_seconds", "Latency", []float64{1}).Observe(0.5)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		"# TYPE requests_total counter",
		"requests_total 3",
		"# TYPE active gauge",
		"active 7",
		"# TYPE latency_seconds histogram",
		"latency_seconds_bucket{le=\"1\"} 1",
		"latency_seconds_bucket{le=\"+Inf\"} 1",
		"latency_seconds_count 1",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, body)
		}
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestAtlasMetrics_RecordQuery(t *testing.T) {
	m := NewAtlasMetrics()

	m.RecordQuery("search_nodes", nil)
	m.RecordQuery("explore_graph", errors.New("boom"))

	if m.QueriesTotal.Value() != 2 {
		t.Fatalf("expected 2 queries, got %f", m.QueriesTotal.Value())
	}
	if m.QueryErrorsTotal.Value() != 1 {
		t.Fatalf("expected 1 error, got %f", m.QueryErrorsTotal.Value())
	}
}

func TestAtlasMetrics_RecordIndexBuild(t *testing.T) {
	m := NewAtlasMetrics()

	m.RecordIndexBuild(50*time.Millisecond, nil)
	m.RecordIndexBuild(time.Second, errors.New("store down"))

	if m.IndexBuildsTotal.Value() != 2 {
		t.Fatalf("expected 2 builds, got %f", m.IndexBuildsTotal.Value())
	}
	if m.IndexBuildErrors.Value() != 1 {
		t.Fatalf("expected 1 build error, got %f", m.IndexBuildErrors.Value())
	}
}

func TestAtlasMetrics_RecordCacheAccess(t *testing.T) {
	m := NewAtlasMetrics()

	m.RecordCacheAccess(true)
	m.RecordCacheAccess(true)
	m.RecordCacheAccess(false)

	if m.CacheHitsTotal.Value() != 2 || m.CacheMissesTotal.Value() != 1 {
		t.Fatalf("unexpected hit/miss counts: %f/%f",
			m.CacheHitsTotal.Value(), m.CacheMissesTotal.Value())
	}
}

func TestMetrics_GlobalSingleton(t *testing.T) {
	if Metrics() != Metrics() {
		t.Fatal("expected the same global instance")
	}
}
