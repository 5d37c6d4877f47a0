package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RAG query metrics
	RAGQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiplatform_rag_queries_total",
			Help: "Total number of RAG queries",
		},
		[]string{"mode", "status", "cached"},
	)

	RAGQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aiplatform_rag_query_duration_seconds",
			Help:    "RAG query latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	RAGChunksRetrieved = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aiplatform_rag_chunks_retrieved",
			Help:    "Number of chunks retrieved per query",
			Buckets: []float64{0, 1, 2, 5, 10, 20},
		},
	)

	// Ingestion metrics
	DocumentsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiplatform_documents_ingested_total",
			Help: "Total number of processed documents by terminal status",
		},
		[]string{"file_type", "status"},
	)

	ChunksIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aiplatform_chunks_ingested_total",
			Help: "Total number of chunks written to the vector store",
		},
	)

	// Provider metrics
	ProviderTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiplatform_provider_tokens_total",
			Help: "Tokens consumed by provider and direction",
		},
		[]string{"provider", "model", "direction"},
	)

	PlaygroundSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aiplatform_playground_sessions",
			Help: "Open playground websocket sessions",
		},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aiplatform_rate_limited_requests_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)

// RecordTokens adds prompt and completion token counts for one generation.
func RecordTokens(provider, model string, prompt, completion int) {
	ProviderTokens.WithLabelValues(provider, model, "prompt").Add(float64(prompt))
	ProviderTokens.WithLabelValues(provider, model, "completion").Add(float64(completion))
}
