package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ArticlesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panzee_ingest_articles_total",
			Help: "Ingestion item outcomes per source",
		},
		[]string{"source", "outcome"},
	)

	IngestRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "panzee_ingest_run_duration_seconds",
			Help:    "Duration of one source ingestion run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"source"},
	)

	VectorSearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "panzee_vector_search_duration_seconds",
			Help:    "Vector store search latency",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
	)

	ChatRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panzee_chat_requests_total",
			Help: "RAG chat requests by result",
		},
		[]string{"result"},
	)
)

// Outcome labels for ArticlesProcessed.
const (
	OutcomeIngested     = "ingested"
	OutcomeDuplicate    = "skipped_duplicate"
	OutcomeNoContent    = "skipped_no_content"
	OutcomeIrrelevant   = "skipped_irrelevant"
	OutcomeMalformedLLM = "skipped_malformed_analysis"
	OutcomeFailed       = "failed"
)

func Register() {
	prometheus.MustRegister(
		ArticlesProcessed,
		IngestRunDuration,
		VectorSearchDuration,
		ChatRequests,
	)
}

// Handler exposes the default registry on a fiber route.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
