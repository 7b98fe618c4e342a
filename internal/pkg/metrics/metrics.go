// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry bundles the collectors the service exports on /metrics.
// Each instance owns its own prometheus.Registry so tests can build as many as they like.
type Registry struct {
	reg *prometheus.Registry

	HTTPDuration *prometheus.HistogramVec
	Transitions  *prometheus.CounterVec
}

// New registers all collectors, including the Go runtime and process collectors.
func New(namespace string) *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Lifecycle transitions by resource, operation and result.",
		}, []string{"resource", "operation", "result"}),
	}

	reg.MustRegister(
		r.HTTPDuration,
		r.Transitions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Gatherer exposes the registry to promhttp.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// TransitionRecorder counts lifecycle transitions for one resource kind.
type TransitionRecorder struct {
	resource string
	counter  *prometheus.CounterVec
}

// ForResource returns a recorder bound to a resource label. A nil registry yields a no-op recorder.
func (r *Registry) ForResource(resource string) *TransitionRecorder {
	if r == nil {
		return &TransitionRecorder{resource: resource}
	}
	return &TransitionRecorder{resource: resource, counter: r.Transitions}
}

// Observe counts one transition attempt; result is "success" or the failure kind.
func (t *TransitionRecorder) Observe(operation, result string) {
	if t == nil || t.counter == nil {
		return
	}
	t.counter.WithLabelValues(t.resource, operation, result).Inc()
}
