package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthServer_Healthy(t *testing.T) {
	s := NewHealthServer(&HealthConfig{Version: "test"})
	s.RegisterCheck("always-ok", func(ctx context.Context) HealthCheck {
		return HealthCheck{Status: HealthStatusHealthy}
	})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Status != HealthStatusHealthy {
		t.Fatalf("expected healthy, got %s", resp.Status)
	}
	if resp.Version != "test" {
		t.Fatalf("expected version test, got %q", resp.Version)
	}
}

func TestHealthServer_Unhealthy(t *testing.T) {
	s := NewHealthServer(nil)
	s.RegisterCheck("broken", func(ctx context.Context) HealthCheck {
		return HealthCheck{Status: HealthStatusUnhealthy, Message: "down"}
	})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestHealthServer_DegradedStaysOK(t *testing.T) {
	s := NewHealthServer(nil)
	s.RegisterCheck("slow", func(ctx context.Context) HealthCheck {
		return HealthCheck{Status: HealthStatusDegraded}
	})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for degraded, got %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Status != HealthStatusDegraded {
		t.Fatalf("expected degraded, got %s", resp.Status)
	}
}

func TestHealthServer_ReadyProbe(t *testing.T) {
	s := NewHealthServer(nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before SetReady, got %d", rec.Code)
	}

	s.SetReady(true)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after SetReady, got %d", rec.Code)
	}
}

func TestHealthServer_Mount(t *testing.T) {
	s := NewHealthServer(nil)
	s.Mount("/extra", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/extra", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected mounted handler to serve, got %d", rec.Code)
	}
}

func TestGraphStoreHealthChecker(t *testing.T) {
	ok := GraphStoreHealthChecker(func(ctx context.Context) error { return nil })
	if check := ok(context.Background()); check.Status != HealthStatusHealthy {
		t.Fatalf("expected healthy, got %s", check.Status)
	}

	bad := GraphStoreHealthChecker(func(ctx context.Context) error { return errors.New("refused") })
	if check := bad(context.Background()); check.Status != HealthStatusUnhealthy {
		t.Fatalf("expected unhealthy, got %s", check.Status)
	}
}

func TestVectorHealthChecker(t *testing.T) {
	disabled := VectorHealthChecker(false, nil)
	if check := disabled(context.Background()); check.Status != HealthStatusHealthy {
		t.Fatalf("expected healthy when disabled, got %s", check.Status)
	}

	failing := VectorHealthChecker(true, func(ctx context.Context) error { return errors.New("down") })
	if check := failing(context.Background()); check.Status != HealthStatusDegraded {
		t.Fatalf("expected degraded, got %s", check.Status)
	}
}

func TestCacheHealthChecker(t *testing.T) {
	checker := CacheHealthChecker(func() (int64, int64, int64, int64) {
		return 10, 2, 3, 1
	})
	check := checker(context.Background())
	if check.Status != HealthStatusHealthy {
		t.Fatalf("expected healthy, got %s", check.Status)
	}
	if check.Details["hits"] != "10" || check.Details["errors"] != "1" {
		t.Fatalf("unexpected details: %v", check.Details)
	}
}
