// Package metrics exposes Prometheus instruments for outbound requests to the
// document store and for the sandbox server.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "docstore"

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Outbound HTTP requests by method and status code (0 for transport errors).",
		},
		[]string{"method", "code"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Latency of outbound HTTP requests, including retries.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "retries_total",
			Help:      "Outbound HTTP request attempts that were retried.",
		},
		[]string{"method"},
	)

	sandboxOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sandbox",
			Name:      "operations_total",
			Help:      "Operations served by the sandbox, by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)
)

// ObserveRequest records one attempt. code is 0 when no response arrived.
func ObserveRequest(method string, code int) {
	requestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// ObserveDuration records the total latency of a request.
func ObserveDuration(method string, start time.Time) {
	requestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// ObserveRetry records a retried attempt.
func ObserveRetry(method string) {
	retriesTotal.WithLabelValues(method).Inc()
}

// ObserveSandbox records a served sandbox operation.
func ObserveSandbox(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	sandboxOperations.WithLabelValues(operation, outcome).Inc()
}
