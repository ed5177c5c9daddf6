package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCountersAccumulatePerInstance(t *testing.T) {
	first := New()
	second := New()

	first.ObserveMutation("lead", "update_status", "ok", 20*time.Millisecond)
	first.ObserveMutation("lead", "update_status", "ok", 10*time.Millisecond)
	first.IncrSyncEvent("updated", "poll")
	first.IncrValuationFallback()

	if got := first.MutationCount("lead", "update_status", "ok"); got != 2 {
		t.Fatalf("expected 2 mutations, got %v", got)
	}
	if got := second.MutationCount("lead", "update_status", "ok"); got != 0 {
		t.Fatalf("expected isolated registry, got %v", got)
	}
	if got := first.SyncEventCount("updated", "poll"); got != 1 {
		t.Fatalf("expected 1 sync event, got %v", got)
	}
	if got := first.ValuationFallbackCount(); got != 1 {
		t.Fatalf("expected 1 fallback, got %v", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveMutation("lead", "delete", "ok", time.Millisecond)
	m.IncrSyncEvent("deleted", "mutation")
	m.IncrValuationFallback()
	m.IncrIdentityLookup("hit")
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveMutation("inquiry", "reply", "conflict", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `pipeline_mutations_total{entity="inquiry",op="reply",outcome="conflict"} 1`) {
		t.Fatalf("expected mutation counter in exposition, got:\n%s", rec.Body.String())
	}
}
