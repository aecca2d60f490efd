package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the petition document service.
// Metrics are organized by subsystem: cases, documents, generation providers,
// and URL fetching. All counters and histograms are registered via promauto
// for automatic registration with the default Prometheus registry.
type Metrics struct {
	// CasesStarted counts the total number of petition cases initiated.
	CasesStarted prometheus.Counter

	// CasesCompleted counts the total number of cases that finished successfully.
	CasesCompleted prometheus.Counter

	// CasesFailed counts the total number of cases that ended in failure.
	CasesFailed prometheus.Counter

	// CaseDuration observes the end-to-end duration of cases in seconds.
	CaseDuration prometheus.Histogram

	// DocumentsGenerated counts generated documents, labeled by document type.
	DocumentsGenerated *prometheus.CounterVec

	// FallbackDocuments counts documents produced with fallback content, labeled by document type.
	FallbackDocuments *prometheus.CounterVec

	// DocumentWords observes the word count of generated documents.
	DocumentWords prometheus.Histogram

	// GenerationRequests counts provider calls, labeled by provider and outcome.
	GenerationRequests *prometheus.CounterVec

	// GenerationDuration observes provider call duration in seconds, labeled by provider.
	GenerationDuration *prometheus.HistogramVec

	// GenerationFailovers counts failovers between providers, labeled by from and to.
	GenerationFailovers *prometheus.CounterVec

	// GenerationTokens counts tokens consumed, labeled by provider and token type.
	GenerationTokens *prometheus.CounterVec

	// URLFetches counts URL fetch attempts, labeled by outcome.
	URLFetches *prometheus.CounterVec

	// URLFetchDuration observes URL fetch duration in seconds.
	URLFetchDuration prometheus.Histogram

	// ProgressWrites counts progress updates, labeled by store (database, memory).
	ProgressWrites *prometheus.CounterVec

	// EventsPublished counts lifecycle events published to Kafka, labeled by outcome.
	EventsPublished *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Cases
		CasesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cases_started_total",
			Help:      "Total number of petition cases started",
		}),
		CasesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cases_completed_total",
			Help:      "Total number of petition cases completed successfully",
		}),
		CasesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cases_failed_total",
			Help:      "Total number of petition cases that failed",
		}),
		CaseDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "case_duration_seconds",
			Help:      "Duration of petition cases in seconds",
			Buckets:   []float64{30, 60, 120, 300, 600, 1200, 1800, 3600, 7200},
		}),

		// Documents
		DocumentsGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_generated_total",
			Help:      "Total number of documents generated by document type",
		}, []string{"document_type"}),
		FallbackDocuments: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_documents_total",
			Help:      "Total number of documents produced with fallback content by document type",
		}, []string{"document_type"}),
		DocumentWords: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "document_words",
			Help:      "Word count of generated documents",
			Buckets:   []float64{100, 250, 500, 1000, 2500, 5000, 10000, 20000},
		}),

		// Generation providers
		GenerationRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_requests_total",
			Help:      "Total number of text generation provider calls by provider and outcome",
		}, []string{"provider", "outcome"}),
		GenerationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Duration of text generation provider calls in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"provider"}),
		GenerationFailovers: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failovers_total",
			Help:      "Total number of failovers between text generation providers",
		}, []string{"from", "to"}),
		GenerationTokens: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_tokens_total",
			Help:      "Total number of tokens used by text generation calls",
		}, []string{"provider", "token_type"}),

		// URL fetching
		URLFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "url_fetches_total",
			Help:      "Total number of URL fetch attempts by outcome",
		}, []string{"outcome"}),
		URLFetchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "url_fetch_duration_seconds",
			Help:      "Duration of URL fetches in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		// Progress
		ProgressWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "progress_writes_total",
			Help:      "Total number of progress updates by store",
		}, []string{"store"}),

		// Events
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of case lifecycle events published by outcome",
		}, []string{"outcome"}),
	}
}

// RecordCaseStarted records that a case has started.
func (m *Metrics) RecordCaseStarted() {
	m.CasesStarted.Inc()
}

// RecordCaseCompleted records that a case has completed.
func (m *Metrics) RecordCaseCompleted(durationSeconds float64) {
	m.CasesCompleted.Inc()
	m.CaseDuration.Observe(durationSeconds)
}

// RecordCaseFailed records that a case has failed.
func (m *Metrics) RecordCaseFailed(durationSeconds float64) {
	m.CasesFailed.Inc()
	m.CaseDuration.Observe(durationSeconds)
}

// RecordDocumentGenerated records a generated document.
func (m *Metrics) RecordDocumentGenerated(documentType string, wordCount int, isFallback bool) {
	m.DocumentsGenerated.WithLabelValues(documentType).Inc()
	m.DocumentWords.Observe(float64(wordCount))
	if isFallback {
		m.FallbackDocuments.WithLabelValues(documentType).Inc()
	}
}

// RecordGeneration records one provider call with its outcome and duration.
func (m *Metrics) RecordGeneration(provider, outcome string, duration time.Duration) {
	m.GenerationRequests.WithLabelValues(provider, outcome).Inc()
	m.GenerationDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordFailover records a failover from one provider to another.
func (m *Metrics) RecordFailover(from, to string) {
	m.GenerationFailovers.WithLabelValues(from, to).Inc()
}

// RecordGenerationTokens records tokens used by a generation call.
func (m *Metrics) RecordGenerationTokens(provider string, inputTokens, outputTokens int) {
	m.GenerationTokens.WithLabelValues(provider, "input").Add(float64(inputTokens))
	m.GenerationTokens.WithLabelValues(provider, "output").Add(float64(outputTokens))
}

// RecordURLFetch records a URL fetch attempt.
func (m *Metrics) RecordURLFetch(outcome string, durationSeconds float64) {
	m.URLFetches.WithLabelValues(outcome).Inc()
	m.URLFetchDuration.Observe(durationSeconds)
}

// RecordProgressWrite records a progress update to the given store.
func (m *Metrics) RecordProgressWrite(store string) {
	m.ProgressWrites.WithLabelValues(store).Inc()
}

// RecordEventPublished records a lifecycle event publish attempt.
func (m *Metrics) RecordEventPublished(outcome string) {
	m.EventsPublished.WithLabelValues(outcome).Inc()
}
