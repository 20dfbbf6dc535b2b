// Package metrics exposes Prometheus metrics for proposal generation.
//
// A nil *Manager is valid and records nothing, so components can be built
// without metrics in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline stages observed by ObserveStage.
const (
	StageExtract  = "extract"
	StageRetrieve = "retrieve"
	StageGenerate = "generate"
	StageIndex    = "index"
)

// Manager owns a registry and the metrics recorded on it.
type Manager struct {
	namespace      string
	latencyBuckets []float64
	registry       *prometheus.Registry
	runtime        bool

	proposalsGenerated *prometheus.CounterVec
	proposalsFailed    prometheus.Counter
	extractFallbacks   prometheus.Counter
	profileIndexed     *prometheus.CounterVec
	retrievalErrors    prometheus.Counter
	archiveErrors      prometheus.Counter
	retrievalHits      prometheus.Histogram
	confidence         prometheus.Histogram
	stageDuration      *prometheus.HistogramVec

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a Manager with all metrics registered.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "swiftme",
		latencyBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 180},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	if m.runtime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.proposalsGenerated = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "proposals_generated_total",
		Help:      "Proposals generated successfully, by tone.",
	}, []string{"tone"})

	m.proposalsFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "proposals_failed_total",
		Help:      "Proposal generations that returned an error.",
	})

	m.extractFallbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "requirements_fallback_total",
		Help:      "Requirement extractions that fell back to the default record.",
	})

	m.profileIndexed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "profile_index_total",
		Help:      "Profile indexing attempts, by result.",
	}, []string{"result"})

	m.retrievalErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "retrieval_errors_total",
		Help:      "Experience searches that failed.",
	})

	m.archiveErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "archive_errors_total",
		Help:      "Proposals that could not be written to the archive.",
	})

	m.retrievalHits = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "retrieval_hits",
		Help:      "Number of experience hits returned per search.",
		Buckets:   prometheus.LinearBuckets(0, 1, 11),
	})

	m.confidence = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "proposal_confidence",
		Help:      "Confidence score of generated proposals.",
		Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
	})

	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of pipeline stages.",
		Buckets:   m.latencyBuckets,
	}, []string{"stage"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration by route and method.",
		Buckets:   m.latencyBuckets,
	}, []string{"route", "method"})
}

// RecordProposal counts a generated proposal and observes its confidence.
func (m *Manager) RecordProposal(tone string, confidence float64) {
	if m == nil {
		return
	}
	m.proposalsGenerated.WithLabelValues(tone).Inc()
	m.confidence.Observe(confidence)
}

// RecordProposalFailure counts a failed generation.
func (m *Manager) RecordProposalFailure() {
	if m == nil {
		return
	}
	m.proposalsFailed.Inc()
}

// RecordExtractFallback counts a degraded requirement extraction.
func (m *Manager) RecordExtractFallback() {
	if m == nil {
		return
	}
	m.extractFallbacks.Inc()
}

// RecordProfileIndex counts a profile indexing attempt.
func (m *Manager) RecordProfileIndex(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.profileIndexed.WithLabelValues(result).Inc()
}

// RecordRetrieval observes the hit count of a search, or counts its failure.
func (m *Manager) RecordRetrieval(hits int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.retrievalErrors.Inc()
		return
	}
	m.retrievalHits.Observe(float64(hits))
}

// RecordArchiveError counts a failed archive write.
func (m *Manager) RecordArchiveError() {
	if m == nil {
		return
	}
	m.archiveErrors.Inc()
}

// ObserveStage records how long stage took since start.
func (m *Manager) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RecordHTTPRequest counts a served request and observes its duration.
func (m *Manager) RecordHTTPRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// Registry returns the registry metrics are recorded on.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format. A nil
// Manager serves an empty registry.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
