// Package metrics holds the service's Prometheus collectors on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "stockscope"

	// Labels
	statusLabel   = "status"
	stageLabel    = "stage"
	endpointLabel = "endpoint"
	outcomeLabel  = "outcome"
	codeLabel     = "code"
	methodLabel   = "method"
	pathLabel     = "path"
)

// Backend request outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeHTTPError = "http_error"
	OutcomeError     = "error"
)

// Metrics is the set of collectors exported at /metrics. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	jobsSubmitted   prometheus.Counter
	jobsFinished    *prometheus.CounterVec
	jobsInFlight    prometheus.Gauge
	jobDuration     prometheus.Histogram
	stageDuration   *prometheus.HistogramVec
	backendRequests *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
}

// New creates the collectors and registers them, plus the Go and process collectors, on
// a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		jobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "research_jobs_submitted_total",
			Help:      "Number of research jobs accepted.",
		}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "research_jobs_finished_total",
			Help:      "Number of research jobs that reached a terminal state, by status.",
		}, []string{statusLabel}),
		jobsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "research_jobs_in_flight",
			Help:      "Number of research jobs currently running.",
		}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "research_job_duration_seconds",
			Help:      "Wall time of research jobs from start to terminal state.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "research_stage_duration_seconds",
			Help:      "Wall time of each research pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{stageLabel}),
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Number of requests to analysis collaborators, by endpoint and outcome.",
		}, []string{endpointLabel, outcomeLabel}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests partitioned by status code, method and route pattern.",
		}, []string{codeLabel, methodLabel, pathLabel}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time spent on HTTP requests partitioned by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{methodLabel, pathLabel}),
	}

	m.registry.MustRegister(
		m.jobsSubmitted,
		m.jobsFinished,
		m.jobsInFlight,
		m.jobDuration,
		m.stageDuration,
		m.backendRequests,
		m.httpRequests,
		m.httpLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// JobSubmitted counts an accepted job.
func (m *Metrics) JobSubmitted() {
	if m == nil {
		return
	}
	m.jobsSubmitted.Inc()
}

// JobStarted marks a job as running.
func (m *Metrics) JobStarted() {
	if m == nil {
		return
	}
	m.jobsInFlight.Inc()
}

// JobFinished records a job's terminal status and total duration.
func (m *Metrics) JobFinished(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.jobsInFlight.Dec()
	m.jobsFinished.With(prometheus.Labels{statusLabel: status}).Inc()
	m.jobDuration.Observe(elapsed.Seconds())
}

// StageCompleted records how long one pipeline stage took.
func (m *Metrics) StageCompleted(stage string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.With(prometheus.Labels{stageLabel: stage}).Observe(elapsed.Seconds())
}

// BackendRequest counts one collaborator call.
func (m *Metrics) BackendRequest(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.backendRequests.With(prometheus.Labels{endpointLabel: endpoint, outcomeLabel: outcome}).Inc()
}

// HTTPRequest records one served request. path should be the route pattern, not the raw
// URL, to keep label cardinality bounded.
func (m *Metrics) HTTPRequest(code int, method, path string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.With(prometheus.Labels{
		codeLabel:   strconv.Itoa(code),
		methodLabel: method,
		pathLabel:   path,
	}).Inc()
	m.httpLatency.With(prometheus.Labels{methodLabel: method, pathLabel: path}).Observe(elapsed.Seconds())
}
