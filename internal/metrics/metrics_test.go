package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.IncDecision(true, "tier0_override")
	m.IncFeatureDegraded()
	m.ObserveWeight(42)
	m.IncPublish("dropped")
	m.IncLedgerAppend("inserted")
	if m.Registry() != nil {
		t.Error("nil metrics should have nil registry")
	}
}

func TestIndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.IncDecision(false, "insufficient_tier")
	a.IncDecision(false, "insufficient_tier")
	b.IncDecision(false, "insufficient_tier")

	if got := testutil.ToFloat64(a.Decisions.WithLabelValues("false", "insufficient_tier")); got != 2 {
		t.Errorf("a decisions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(b.Decisions.WithLabelValues("false", "insufficient_tier")); got != 1 {
		t.Errorf("b decisions = %v, want 1", got)
	}
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.IncFeatureDegraded()
	m.ObserveWeight(9_000_120_000)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{"accord_feature_degraded_total 1", "accord_svt_weight_count 1"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
