package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dirstream",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dirstream",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method", "path"})

	ActiveTransfers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dirstream",
		Name:      "active_transfers",
		Help:      "Number of file transfers currently streaming to clients.",
	})

	TransfersStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dirstream",
		Name:      "transfers_started_total",
		Help:      "Total number of file transfers started.",
	})

	TransferFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dirstream",
		Name:      "transfer_failures_total",
		Help:      "Total number of failed file transfers by failure phase.",
	}, []string{"phase"})

	TransferStateTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dirstream",
		Name:      "transfer_state_transitions_total",
		Help:      "Total transfer state machine transitions.",
	}, []string{"from", "to"})

	TransferBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dirstream",
		Name:      "transfer_bytes_total",
		Help:      "Total file bytes delivered to clients.",
	})

	UpstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dirstream",
		Name:      "upstream_requests_total",
		Help:      "Total upstream requests by operation and outcome.",
	}, []string{"operation", "outcome"})

	UpstreamRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dirstream",
		Name:      "upstream_request_duration_seconds",
		Help:      "Upstream request duration in seconds, up to response headers.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"operation"})

	WSClientsConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dirstream",
		Name:      "ws_clients_connected",
		Help:      "Number of currently connected WebSocket clients.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ActiveTransfers,
		TransfersStartedTotal,
		TransferFailuresTotal,
		TransferStateTransitionsTotal,
		TransferBytesTotal,
		UpstreamRequestsTotal,
		UpstreamRequestDuration,
		WSClientsConnected,
	)
}
