package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Total number of gateway callbacks received",
		},
		[]string{"variant", "outcome"},
	)

	reconciliationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_reconciliations_total",
			Help: "Total number of reconciliation runs by terminal state",
		},
		[]string{"variant", "state"},
	)

	gatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_request_duration_seconds",
			Help:    "Duration of gateway round trips in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"variant", "operation"},
	)

	gatewayTransportFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_gateway_transport_failures_total",
			Help: "Total number of transport-level gateway failures",
		},
		[]string{"variant", "operation"},
	)

	parameterMismatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callback_parameter_mismatches_total",
			Help: "Callbacks whose gateway identifier disagreed with the recorded one",
		},
		[]string{"variant"},
	)
)

// RecordCallback counts an inbound callback by validation outcome
// (accepted, malformed, not_found, ambiguous).
func RecordCallback(variant, outcome string) {
	callbacksTotal.WithLabelValues(variant, outcome).Inc()
}

// RecordReconciliation counts a reconciliation run by terminal state.
func RecordReconciliation(variant, state string) {
	reconciliationsTotal.WithLabelValues(variant, state).Inc()
}

// ObserveGatewayRequest records the duration of one gateway round trip.
func ObserveGatewayRequest(variant, operation string, elapsed time.Duration) {
	gatewayRequestDuration.WithLabelValues(variant, operation).Observe(elapsed.Seconds())
}

// RecordTransportFailure counts a transport-level gateway failure.
func RecordTransportFailure(variant, operation string) {
	gatewayTransportFailures.WithLabelValues(variant, operation).Inc()
}

// RecordParameterMismatch counts a non-blocking identifier mismatch advisory.
func RecordParameterMismatch(variant string) {
	parameterMismatches.WithLabelValues(variant).Inc()
}
