// Package metrics holds the Prometheus collectors of the service
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "audite"

// Result labels
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Metrics groups the service collectors on their own registry
type Metrics struct {
	registry *prometheus.Registry

	Submissions      *prometheus.CounterVec
	Suggestions      *prometheus.CounterVec
	DependencyChecks *prometheus.CounterVec
	PolicyFallbacks  *prometheus.CounterVec
	DraftSaves       prometheus.Counter
	LiveClients      prometheus.Gauge
	RequestDuration  *prometheus.HistogramVec
}

// New creates and registers the collectors, plus the Go runtime and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Answer batch submissions by outcome.",
		}, []string{"result"}),
		Suggestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestions_issued_total",
			Help:      "Suggestions issued by sector and source.",
		}, []string{"sector", "source"}),
		DependencyChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dependency_checks_total",
			Help:      "Question dependency validations by outcome.",
		}, []string{"result"}),
		PolicyFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_fallbacks_total",
			Help:      "Fail-open degradations by kind.",
		}, []string{"kind"}),
		DraftSaves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draft_saves_total",
			Help:      "In-progress draft saves.",
		}),
		LiveClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_clients",
			Help:      "Connected live visibility clients.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "code"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Submissions,
		m.Suggestions,
		m.DependencyChecks,
		m.PolicyFallbacks,
		m.DraftSaves,
		m.LiveClients,
		m.RequestDuration,
	)
	return m
}

// Registry exposes the registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
