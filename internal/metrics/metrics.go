// Package metrics exposes Prometheus counters for scoring, batches and model
// loads. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service counters on a private registry.
type Metrics struct {
	reg        *prometheus.Registry
	rowsScored *prometheus.CounterVec
	batches    *prometheus.CounterVec
	modelLoads *prometheus.CounterVec
}

// New registers the counters plus Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		rowsScored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edupulse",
			Name:      "rows_scored_total",
			Help:      "Student rows scored, by domain and score source.",
		}, []string{"domain", "source"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edupulse",
			Name:      "batches_total",
			Help:      "Upload batches, by domain and outcome.",
		}, []string{"domain", "outcome"}),
		modelLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edupulse",
			Name:      "model_loads_total",
			Help:      "Model artifact load attempts, by domain and result.",
		}, []string{"domain", "result"}),
	}
	m.reg.MustRegister(
		m.rowsScored,
		m.batches,
		m.modelLoads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RowScored counts one scored row.
func (m *Metrics) RowScored(domain, source string) {
	if m == nil {
		return
	}
	m.rowsScored.WithLabelValues(domain, source).Inc()
}

// Batch counts one processed upload. Outcome is "ok" or "empty".
func (m *Metrics) Batch(domain, outcome string) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(domain, outcome).Inc()
}

// ModelLoad counts one load attempt. Result is "loaded" or "absent".
func (m *Metrics) ModelLoad(domain, result string) {
	if m == nil {
		return
	}
	m.modelLoads.WithLabelValues(domain, result).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
