package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mathroute"

type moduleMetrics struct {
	queryTotal    *prometheus.CounterVec
	queryDuration prometheus.Histogram

	completionTotal    *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec

	engineExecutionTotal    *prometheus.CounterVec
	engineExecutionDuration *prometheus.HistogramVec

	rpcConnections prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			queryTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "query_total",
					Help:      "Total handled queries by outcome status and error kind.",
				},
				[]string{"status", "kind"},
			),
			queryDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Name:      "query_duration_seconds",
					Help:      "End-to-end query duration in seconds.",
					Buckets:   prometheus.DefBuckets,
				},
			),
			completionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "completion_total",
					Help:      "Total completion calls by provider, round and status.",
				},
				[]string{"provider", "round", "status"},
			),
			completionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Name:      "completion_duration_seconds",
					Help:      "Completion call duration in seconds by provider and round.",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"provider", "round"},
			),
			engineExecutionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "engine_execution_total",
					Help:      "Total engine executions by tool, operation and status.",
				},
				[]string{"tool", "operation", "status"},
			),
			engineExecutionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Name:      "engine_execution_duration_seconds",
					Help:      "Engine execution duration in seconds by tool.",
					Buckets:   []float64{.00001, .0001, .001, .01, .1, 1},
				},
				[]string{"tool"},
			),
			rpcConnections: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Namespace: namespace,
					Name:      "rpc_websocket_connections",
					Help:      "Current open WebSocket connections.",
				},
			),
		}

		prometheus.MustRegister(
			m.queryTotal,
			m.queryDuration,
			m.completionTotal,
			m.completionDuration,
			m.engineExecutionTotal,
			m.engineExecutionDuration,
			m.rpcConnections,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

// MetricsHandler serves the default Prometheus registry.
func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordQuery records one HandleQuery outcome. kind is empty on success.
func RecordQuery(status, kind string, duration time.Duration) {
	m := getMetrics()
	m.queryTotal.WithLabelValues(status, kind).Inc()
	m.queryDuration.Observe(duration.Seconds())
}

// RecordCompletion records one completion round trip.
func RecordCompletion(provider, round string, duration time.Duration, success bool) {
	m := getMetrics()
	m.completionTotal.WithLabelValues(provider, round, statusLabel(success)).Inc()
	m.completionDuration.WithLabelValues(provider, round).Observe(duration.Seconds())
}

// RecordEngineExecution records one routed engine call.
func RecordEngineExecution(tool, operation string, duration time.Duration, success bool) {
	m := getMetrics()
	m.engineExecutionTotal.WithLabelValues(tool, operation, statusLabel(success)).Inc()
	m.engineExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// SetWebSocketConnections sets the open WebSocket connection gauge.
func SetWebSocketConnections(count int) {
	m := getMetrics()
	m.rpcConnections.Set(float64(count))
}
