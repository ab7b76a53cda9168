package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cover_letter"

// Metrics holds the service's prometheus collectors. It implements agent.Recorder.
type Metrics struct {
	registry        *prometheus.Registry
	agentCalls      *prometheus.CounterVec
	agentDuration   *prometheus.HistogramVec
	agentRetries    *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	documentsStored prometheus.Counter
}

// NewMetrics registers every collector on a fresh registry, plus the Go and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		agentCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_calls_total",
			Help:      "Agent invocations by agent and outcome.",
		}, []string{"agent", "outcome"}),
		agentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_call_duration_seconds",
			Help:      "Agent invocation latency, including retries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"agent"}),
		agentRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_retries_total",
			Help:      "Retried completion attempts by agent.",
		}, []string{"agent"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		documentsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_ingested_total",
			Help:      "Documents added to the vector store.",
		}),
	}

	m.registry.MustRegister(
		m.agentCalls, m.agentDuration, m.agentRetries,
		m.httpRequests, m.httpDuration, m.documentsStored,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCall records one agent invocation
func (m *Metrics) ObserveCall(agent, outcome string, d time.Duration) {
	m.agentCalls.WithLabelValues(agent, outcome).Inc()
	m.agentDuration.WithLabelValues(agent).Observe(d.Seconds())
}

// ObserveRetry records one retried completion attempt
func (m *Metrics) ObserveRetry(agent string) {
	m.agentRetries.WithLabelValues(agent).Inc()
}

// ObserveRequest records one served HTTP request
func (m *Metrics) ObserveRequest(route, method string, code int, d time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveIngest records one stored document
func (m *Metrics) ObserveIngest() {
	m.documentsStored.Inc()
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
