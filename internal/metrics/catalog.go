package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion, search and recommendation metrics.
var (
	IngestEntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_entries_total",
			Help:      "Stream entries handled by the indexer",
		},
		[]string{"outcome"}, // "indexed" / "retry" / "dead_lettered"
	)

	IngestBatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_batch_duration_seconds",
			Help:      "Time to process one stream batch",
			Buckets:   prometheus.DefBuckets,
		},
	)

	SearchQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_queries_total",
			Help:      "Catalog queries by kind and outcome",
		},
		[]string{"kind", "outcome"}, // kind: filter/vector/semantic/nearby/trending
	)

	RecommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendation requests by resolution path",
		},
		[]string{"path"}, // "personalized" / "trending" / "empty"
	)

	EventsTrackedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_tracked_total",
			Help:      "User events recorded",
		},
		[]string{"type"},
	)
)

var catalogMetricsRegistered bool

// RegisterCatalogMetrics registers ingestion, search and recommendation metrics.
func RegisterCatalogMetrics() {
	if catalogMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestEntriesTotal)
	prometheus.MustRegister(IngestBatchDuration)
	prometheus.MustRegister(SearchQueriesTotal)
	prometheus.MustRegister(RecommendationsTotal)
	prometheus.MustRegister(EventsTrackedTotal)
	catalogMetricsRegistered = true
}
