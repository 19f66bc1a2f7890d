package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func healthyProbe(context.Context) error { return nil }

func failingProbe(msg string) ProbeFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func decodeReport(t *testing.T, rec *httptest.ResponseRecorder) Report {
	t.Helper()

	var report Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode health report: %v", err)
	}
	return report
}

func TestHandler_AllComponentsHealthy(t *testing.T) {
	h := NewHandler("test-build")
	h.Register("mongo", healthyProbe)
	h.Register("postgres", healthyProbe)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	report := decodeReport(t, rec)
	if report.Status != StatusHealthy {
		t.Fatalf("expected healthy status, got %s", report.Status)
	}
	if len(report.Components) != 2 {
		t.Fatalf("expected 2 components, got %d", len(report.Components))
	}
	// Компоненты отсортированы по имени независимо от порядка регистрации.
	if report.Components[0].Name != "mongo" || report.Components[1].Name != "postgres" {
		t.Fatalf("unexpected component order: %+v", report.Components)
	}
	if report.Build != "test-build" {
		t.Fatalf("expected build test-build, got %s", report.Build)
	}
}

func TestHandler_FailedProbeTurnsReportUnhealthy(t *testing.T) {
	h := NewHandler("test-build")
	h.Register("mongo", healthyProbe)
	h.Register("postgres", failingProbe("connection refused"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	report := decodeReport(t, rec)
	if report.Status != StatusUnhealthy {
		t.Fatalf("expected unhealthy status, got %s", report.Status)
	}
	for _, c := range report.Components {
		if c.Name == "postgres" && c.Error != "connection refused" {
			t.Fatalf("probe error must surface in the report, got %+v", c)
		}
	}
}

func TestHandler_ReadinessFollowsProbes(t *testing.T) {
	h := NewHandler("test-build")
	h.Register("mongo", healthyProbe)

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected ready 200, got %d", rec.Code)
	}

	h.Register("broker", failingProbe("broker down"))

	rec = httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected not ready 503, got %d", rec.Code)
	}
}

func TestHandler_RegisterReplacesProbe(t *testing.T) {
	h := NewHandler("test-build")
	h.Register("redis", failingProbe("no route to host"))
	h.Register("redis", healthyProbe)

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("re-registered probe must replace the old one, got %d", rec.Code)
	}
}

func TestLiveness(t *testing.T) {
	rec := httptest.NewRecorder()
	Liveness(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
