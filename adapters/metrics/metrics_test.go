package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/artpar/autoadmin/adapters/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew(t *testing.T) {
	// Use a new registry to avoid conflicts with other tests
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	if m == nil {
		t.Fatal("NewWithRegistry returned nil")
	}
	if m.RequestsTotal == nil || m.RequestDuration == nil || m.RequestsInFlight == nil {
		t.Error("request metrics not initialized")
	}
	if m.LoginAttempts == nil || m.RecordActions == nil || m.ResourcesDiscovered == nil {
		t.Error("admin metrics not initialized")
	}
}

func TestRecordActions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.RecordActions.WithLabelValues("users", "create", "ok").Inc()
	m.RecordActions.WithLabelValues("users", "create", "invalid").Add(2)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}

	found := false
	for _, f := range families {
		if f.GetName() == "autoadmin_record_actions_total" {
			found = true
			if len(f.GetMetric()) != 2 {
				t.Errorf("expected 2 metric series, got %d", len(f.GetMetric()))
			}
		}
	}
	if !found {
		t.Error("autoadmin_record_actions_total metric not found")
	}
}

func TestMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/resources/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"users", "posts"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resources/"+id, nil))
	}

	got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/resources/{id}", "418"))
	if got != 2 {
		t.Errorf("requests_total = %v, want 2", got)
	}
	if v := testutil.ToFloat64(m.RequestsInFlight); v != 0 {
		t.Errorf("in flight = %v, want 0", v)
	}
}

func TestRoutePattern_Unmatched(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if got := metrics.RoutePattern(req); got != "unmatched" {
		t.Errorf("RoutePattern() = %s", got)
	}
}
