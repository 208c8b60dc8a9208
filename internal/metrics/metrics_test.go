package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveReload(ResultOK, 20*time.Millisecond)
	m.ObserveReload(ResultOK, 30*time.Millisecond)
	m.ObserveReload(ResultFailed, time.Millisecond)
	m.SchemeFallback("console")
	m.SetSessions(3)
	m.Disabled()
	m.WatchReload()

	if got := testutil.ToFloat64(m.reloads.WithLabelValues(ResultOK)); got != 2 {
		t.Errorf("ok reloads = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.reloads.WithLabelValues(ResultFailed)); got != 1 {
		t.Errorf("failed reloads = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.fallbacks.WithLabelValues("console")); got != 1 {
		t.Errorf("fallbacks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.sessions); got != 3 {
		t.Errorf("sessions = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.disables); got != 1 {
		t.Errorf("disables = %v, want 1", got)
	}
	// two reload results, one of everything else
	n, err := testutil.GatherAndCount(reg)
	if err != nil {
		t.Fatal(err)
	}
	if n != 7 {
		t.Errorf("gathered series = %d, want 7", n)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveReload(ResultOK, time.Second)
	m.SchemeFallback("rgb")
	m.SetSessions(1)
	m.Disabled()
	m.WatchReload()
}

func TestTwoInstancesOnSeparateRegistries(t *testing.T) {
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
	New(nil)
}
