// Package metric manages the Prometheus metrics exposed by a graphbook
// service: GraphQL operation counters and latency plus the live
// subscription gauge.
package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the Prometheus registry and the core service metrics.
type Registry struct {
	registry *prometheus.Registry

	// RequestsTotal counts GraphQL operations by name and outcome
	RequestsTotal *prometheus.CounterVec

	// RequestDuration observes operation latency by name
	RequestDuration *prometheus.HistogramVec

	// SubscriptionsActive tracks currently open subscription streams
	SubscriptionsActive prometheus.Gauge
}

// NewRegistry creates a registry with core metrics and Go runtime collectors.
func NewRegistry(service string) *Registry {
	registry := prometheus.NewRegistry()

	r := &Registry{
		registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "graphbook",
			Name:        "graphql_requests_total",
			Help:        "GraphQL operations by name and outcome",
			ConstLabels: prometheus.Labels{"service": service},
		}, []string{"operation", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "graphbook",
			Name:        "graphql_request_duration_seconds",
			Help:        "GraphQL operation latency",
			ConstLabels: prometheus.Labels{"service": service},
			Buckets:     prometheus.DefBuckets,
		}, []string{"operation"}),
		SubscriptionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "graphbook",
			Name:        "graphql_subscriptions_active",
			Help:        "Currently open subscription streams",
			ConstLabels: prometheus.Labels{"service": service},
		}),
	}

	registry.MustRegister(
		r.RequestsTotal,
		r.RequestDuration,
		r.SubscriptionsActive,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// ObserveRequest records one completed GraphQL operation.
func (r *Registry) ObserveRequest(operation string, failed bool, duration time.Duration) {
	status := "ok"
	if failed {
		status = "error"
	}
	r.RequestsTotal.WithLabelValues(operation, status).Inc()
	r.RequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Handler exposes the registry in Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gather exposes the raw registry for tests.
func (r *Registry) Gather() *prometheus.Registry {
	return r.registry
}
