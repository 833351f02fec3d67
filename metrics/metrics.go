package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestedRecords counts records written by the ingestion service, by kind.
	IngestedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitepulse_ingested_records_total",
			Help: "Total number of records written to the event store",
		},
		[]string{"kind"},
	)

	// IngestFailures counts rejected or failed submissions, by reason.
	IngestFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitepulse_ingest_failures_total",
			Help: "Total number of ingestion submissions that did not produce a record",
		},
		[]string{"reason"},
	)

	// AggregationDuration tracks read query latency, by query name.
	AggregationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sitepulse_aggregation_duration_seconds",
			Help:    "Duration of aggregation queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)
)

// Failure reasons.
const (
	ReasonInvalidPayload = "invalid_payload"
	ReasonStore          = "store"
	ReasonTimeout        = "timeout"
)
