// Package metrics exposes Prometheus collectors for ingestion and report runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "channel_analyst"

var (
	// IngestedTotal counts ingestion attempts by result.
	IngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_total",
			Help:      "Ingested posts by result",
		},
		[]string{"result"},
	)

	// ReportsTotal counts report runs by period and outcome status.
	ReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Report runs by period and status",
		},
		[]string{"period", "status"},
	)

	// SendFailuresTotal counts failed deliveries per channel.
	SendFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Failed report deliveries",
		},
		[]string{"channel"},
	)

	// GenerationDuration measures a full report run.
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Duration of report runs in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"period"},
	)
)

// RecordIngest records one ingestion result.
func RecordIngest(result string) {
	IngestedTotal.WithLabelValues(result).Inc()
}

// RecordReport records a finished report run.
func RecordReport(period, status string, seconds float64) {
	ReportsTotal.WithLabelValues(period, status).Inc()
	GenerationDuration.WithLabelValues(period).Observe(seconds)
}

// RecordSendFailure records a failed delivery.
func RecordSendFailure(channel string) {
	SendFailuresTotal.WithLabelValues(channel).Inc()
}
