// Package metrics exposes the small set of Prometheus collectors every
// operation feeds: a latency histogram and an error-kind counter,
// labeled by protocol and operation.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// OperationLatency records wall-clock latency per protocol/operation.
	OperationLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "portofcall",
		Name:      "operation_latency_seconds",
		Help:      "Latency of a protocol operation, end to end.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"protocol", "operation"})

	// Errors counts failures by protocol/operation/error-kind.
	Errors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portofcall",
		Name:      "operation_errors_total",
		Help:      "Count of failed protocol operations by error kind.",
	}, []string{"protocol", "operation", "kind"})
)

// Registry is a dedicated registry (not the global default) so embedding
// this module in another binary's /metrics endpoint is opt-in.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(OperationLatency, Errors)
}

// Observe records one operation's outcome.
func Observe(protocol, operation string, latencySeconds float64, errorKind string) {
	OperationLatency.WithLabelValues(protocol, operation).Observe(latencySeconds)
	if errorKind != "" {
		Errors.WithLabelValues(protocol, operation, errorKind).Inc()
	}
}
