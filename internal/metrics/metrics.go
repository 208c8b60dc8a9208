// Package metrics exposes prometheus instruments for reloads and sessions.
//
// All methods are safe to call on a nil *Metrics, so components can take
// metrics as an optional dependency.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "colorer"

// Reload results.
const (
	ResultOK       = "ok"
	ResultFailed   = "failed"
	ResultSettings = "settings_error"
	ResultDryRun   = "dry_run"
)

var buckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Metrics holds the instruments of one add-on instance.
type Metrics struct {
	reloads        *prometheus.CounterVec
	reloadDuration prometheus.Histogram
	fallbacks      *prometheus.CounterVec
	sessions       prometheus.Gauge
	disables       prometheus.Counter
	watchEvents    prometheus.Counter
}

// New creates the instruments and registers them on reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reloads_total",
				Help:      "Rule database reloads by result",
			},
			[]string{"result"},
		),
		reloadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reload_duration_seconds",
				Help:      "Time spent building a bundle",
				Buckets:   buckets,
			},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheme_fallbacks_total",
				Help:      "Named schemes replaced by the engine default",
			},
			[]string{"mode"},
		),
		sessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions",
				Help:      "Editors with an attached highlighting session",
			},
		),
		disables: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "disables_total",
				Help:      "Transitions to the disabled state",
			},
		),
		watchEvents: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "watch_reloads_total",
				Help:      "Reloads requested by the file watcher",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.reloads, m.reloadDuration, m.fallbacks, m.sessions, m.disables, m.watchEvents)
	}
	return m
}

// ObserveReload records a finished reload.
func (m *Metrics) ObserveReload(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(result).Inc()
	m.reloadDuration.Observe(d.Seconds())
}

// SchemeFallback records a scheme that could not be resolved.
func (m *Metrics) SchemeFallback(mode string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(mode).Inc()
}

// SetSessions sets the live session count.
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

// Disabled records a transition to the disabled state.
func (m *Metrics) Disabled() {
	if m == nil {
		return
	}
	m.disables.Inc()
}

// WatchReload records a watcher-triggered reload request.
func (m *Metrics) WatchReload() {
	if m == nil {
		return
	}
	m.watchEvents.Inc()
}
