// Package metrics provides Prometheus metrics for the support relay.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RelayOutcomes counts relay chains by direction and terminal state.
	RelayOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_relay_outcomes_total",
			Help: "Total number of relay chains by direction and terminal state",
		},
		[]string{"direction", "state"},
	)

	// RelayDuration tracks end-to-end relay chain duration.
	RelayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "support_relay_duration_seconds",
			Help:    "Duration of relay chains from receipt to terminal state",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"direction"},
	)

	// ProviderCallDuration tracks provider HTTP call latency.
	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "support_relay_provider_call_duration_seconds",
			Help:    "Duration of provider API calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "operation"},
	)

	// ProviderCallErrors counts failed provider calls.
	ProviderCallErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_relay_provider_call_errors_total",
			Help: "Total number of failed provider API calls",
		},
		[]string{"provider", "operation"},
	)

	// ReconcilerActions counts side effects issued by the identity reconciler.
	ReconcilerActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_relay_reconciler_actions_total",
			Help: "Total number of reconciler side effects by action",
		},
		[]string{"action"},
	)

	// ActiveSockets tracks connected sockets.
	ActiveSockets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "support_relay_active_sockets",
			Help: "Number of currently connected sockets",
		},
	)

	// RoomJoins counts join_group calls, including idempotent repeats.
	RoomJoins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_relay_room_joins_total",
			Help: "Total number of room join requests",
		},
		[]string{"result"},
	)

	// HTTPRequests counts HTTP requests by route and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_relay_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency by route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "support_relay_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// WorkerQueueDepth tracks queued asynchronous relay jobs.
	WorkerQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "support_relay_worker_queue_depth",
			Help: "Number of relay jobs waiting for a worker",
		},
	)
)

// RecordRelayOutcome records the terminal state of one relay chain.
func RecordRelayOutcome(direction, state string, started time.Time) {
	RelayOutcomes.WithLabelValues(direction, state).Inc()
	RelayDuration.WithLabelValues(direction).Observe(time.Since(started).Seconds())
}

// RecordProviderCall records latency and failure of one provider call.
func RecordProviderCall(provider, operation string, started time.Time, err error) {
	ProviderCallDuration.WithLabelValues(provider, operation).Observe(time.Since(started).Seconds())
	if err != nil {
		ProviderCallErrors.WithLabelValues(provider, operation).Inc()
	}
}

// RecordReconcilerAction increments the reconciler side-effect counter.
func RecordReconcilerAction(action string) {
	ReconcilerActions.WithLabelValues(action).Inc()
}

// RecordSocketConnected increments the connected socket gauge.
func RecordSocketConnected() {
	ActiveSockets.Inc()
}

// RecordSocketDisconnected decrements the connected socket gauge.
func RecordSocketDisconnected() {
	ActiveSockets.Dec()
}

// RecordRoomJoin records a join_group call; joined is false for repeats.
func RecordRoomJoin(joined bool) {
	if joined {
		RoomJoins.WithLabelValues("joined").Inc()
		return
	}
	RoomJoins.WithLabelValues("already_member").Inc()
}

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, route string, status int, started time.Time) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(started).Seconds())
}
