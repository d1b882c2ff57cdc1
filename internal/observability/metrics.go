// Package observability holds the Prometheus metrics of the page service.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application. Each collector
// owns its registry so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	// Model metrics
	ModelCalls    *prometheus.CounterVec
	ModelDuration *prometheus.HistogramVec

	// Normalization outcomes per operation
	Normalizations *prometheus.CounterVec

	// Sessions lazily created
	SessionsCreated prometheus.Counter

	// Preview bridge
	BridgeEvents  *prometheus.CounterVec
	BridgeDropped *prometheus.CounterVec
}

// NewCollector creates a new metrics collector with the given namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		ModelCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_calls_total",
				Help:      "Total number of upstream model calls",
			},
			[]string{"operation", "status"},
		),
		ModelDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "model_call_duration_seconds",
				Help:      "Upstream model call duration in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"operation"},
		),
		Normalizations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "normalizations_total",
				Help:      "Document normalizations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		SessionsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_created_total",
				Help:      "Total number of sessions created",
			},
		),
		BridgeEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bridge_events_total",
				Help:      "Preview bridge events accepted, by type and level",
			},
			[]string{"type", "level"},
		),
		BridgeDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bridge_dropped_total",
				Help:      "Preview bridge messages dropped, by reason",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(
		c.ModelCalls,
		c.ModelDuration,
		c.Normalizations,
		c.SessionsCreated,
		c.BridgeEvents,
		c.BridgeDropped,
		prometheus.NewGoCollector(),
	)
	return c
}

// ObserveModelCall records one upstream call.
func (c *Collector) ObserveModelCall(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.ModelCalls.WithLabelValues(operation, status).Inc()
	c.ModelDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
