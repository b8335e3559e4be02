package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gatherValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metric:
		for _, m := range mf.GetMetric() {
			for k, v := range labels {
				if !hasLabel(m, k, v) {
					continue metric
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func hasLabel(m *dto.Metric, key, value string) bool {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == key && lp.GetValue() == value {
			return true
		}
	}
	return false
}

func TestTrackerCollectorRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewTrackerCollector(reg)
	if err != nil {
		t.Fatalf("NewTrackerCollector: %v", err)
	}

	c.IncOracleCall("venus")
	c.IncOracleCall("venus")
	c.IncOracleCall("moon")
	c.IncCacheHit()
	c.IncTick()
	c.ObserveAppend(15 * time.Millisecond)
	c.SetDatasetEntries(42)

	if got := gatherValue(t, reg, "oracle_calls_total", map[string]string{"body": "venus"}); got != 2 {
		t.Errorf("venus oracle calls = %v, want 2", got)
	}
	if got := gatherValue(t, reg, "oracle_calls_total", map[string]string{"body": "moon"}); got != 1 {
		t.Errorf("moon oracle calls = %v, want 1", got)
	}
	if got := gatherValue(t, reg, "snapshot_cache_hits_total", nil); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}
	if got := gatherValue(t, reg, "tracker_ticks_total", nil); got != 1 {
		t.Errorf("ticks = %v, want 1", got)
	}
	if got := gatherValue(t, reg, "datalog_append_duration_seconds", nil); got != 1 {
		t.Errorf("append samples = %v, want 1", got)
	}
	if got := gatherValue(t, reg, "datalog_entries", nil); got != 42 {
		t.Errorf("dataset entries = %v, want 42", got)
	}
}

func TestNewTrackerCollectorReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewTrackerCollector(reg)
	if err != nil {
		t.Fatalf("first NewTrackerCollector: %v", err)
	}
	second, err := NewTrackerCollector(reg)
	if err != nil {
		t.Fatalf("second NewTrackerCollector: %v", err)
	}

	first.IncTick()
	second.IncTick()
	if got := gatherValue(t, reg, "tracker_ticks_total", nil); got != 2 {
		t.Errorf("ticks = %v, want 2 on the shared counter", got)
	}
}

func TestTrackerCollectorNilSafe(t *testing.T) {
	var c *TrackerCollector
	c.IncOracleCall("venus")
	c.IncCacheHit()
	c.IncTick()
	c.ObserveAppend(time.Millisecond)
	c.SetDatasetEntries(1)
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewTrackerCollector(reg)
	if err != nil {
		t.Fatalf("NewTrackerCollector: %v", err)
	}
	c.IncTick()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tracker_ticks_total 1") {
		t.Errorf("exposition missing tick counter:\n%s", rec.Body.String())
	}
}
