// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "orders"

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

// NewServerMetrics registers the HTTP collectors on reg.
func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"route", "method", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route", "method"})

	reg.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

func (m *ServerMetrics) Observe(route, method string, status int, latencyMS float64) {
	m.Requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.LatencyMS.WithLabelValues(route, method).Observe(latencyMS)
}

// RelayMetrics counts relay outcomes per run.
type RelayMetrics struct {
	Messages  *prometheus.CounterVec
	Exhausted prometheus.Counter
	Runs      *prometheus.CounterVec
}

func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "messages_total",
		Help:      "Outbox messages processed by the relay, by outcome.",
	}, []string{"outcome"})
	exhausted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "exhausted_total",
		Help:      "Outbox messages that ran out of publish attempts.",
	})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "relay_runs_total",
		Help:      "Relay runs, by result.",
	}, []string{"result"})

	reg.MustRegister(messages, exhausted, runs)
	return &RelayMetrics{Messages: messages, Exhausted: exhausted, Runs: runs}
}

// Handler serves the collectors of gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
