// Package metrics provides Prometheus metrics for the assistant service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service
type Metrics struct {
	// Chat turn metrics
	ChatTurnsTotal     prometheus.Counter
	CompletionsTotal   *prometheus.CounterVec
	CompletionDuration prometheus.Histogram

	// Retrieval metrics
	RetrievalQueriesTotal  *prometheus.CounterVec
	RetrievalFailuresTotal *prometheus.CounterVec
	RetrievalChunksTotal   prometheus.Counter

	// Session metrics
	ActiveSessions       prometheus.Gauge
	FeedbackTotal        *prometheus.CounterVec
	ConversationsCleared prometheus.Counter

	// Ingestion metrics
	DocumentsIngestedTotal *prometheus.CounterVec
	ChunksStoredTotal      prometheus.Counter

	ServerStartTime time.Time
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	m := &Metrics{
		ServerStartTime: time.Now(),
	}

	m.ChatTurnsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_chat_turns_total",
			Help: "Total number of chat turns processed",
		},
	)

	m.CompletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_completions_total",
			Help: "Total number of completion calls by outcome",
		},
		[]string{"status"},
	)

	m.CompletionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assistant_completion_duration_seconds",
			Help:    "Duration of completion calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	m.RetrievalQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_retrieval_queries_total",
			Help: "Total number of retrieval queries by mode",
		},
		[]string{"mode"},
	)

	m.RetrievalFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_retrieval_failures_total",
			Help: "Total number of failed retrieval queries by mode",
		},
		[]string{"mode"},
	)

	m.RetrievalChunksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_retrieval_chunks_total",
			Help: "Total number of chunks returned by retrieval",
		},
	)

	m.ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assistant_active_sessions",
			Help: "Number of sessions currently held in memory",
		},
	)

	m.FeedbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_feedback_total",
			Help: "Total feedback submissions by rating",
		},
		[]string{"rating"},
	)

	m.ConversationsCleared = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_conversations_cleared_total",
			Help: "Total number of conversation resets",
		},
	)

	m.DocumentsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_documents_ingested_total",
			Help: "Total documents processed by the ingestion pipeline",
		},
		[]string{"status"},
	)

	m.ChunksStoredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_chunks_stored_total",
			Help: "Total corpus chunks written to the store",
		},
	)

	return m
}
