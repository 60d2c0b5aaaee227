package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GenerationsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "casegen_generations_started_total",
			Help: "Total number of generation runs started",
		},
	)

	GenerationsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casegen_generations_completed_total",
			Help: "Total number of generation runs completed, by outcome",
		},
		[]string{"outcome"},
	)

	GenerationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casegen_generations_failed_total",
			Help: "Total number of generation runs failed, by error code",
		},
		[]string{"error_code"},
	)

	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "casegen_phase_duration_seconds",
			Help:    "Duration of each pipeline phase in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 13),
		},
		[]string{"phase"},
	)

	PollAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "casegen_poll_attempts",
			Help:    "Number of status polls per remote job",
			Buckets: prometheus.LinearBuckets(5, 15, 20),
		},
	)

	MissingSymbols = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "casegen_missing_symbols",
			Help:    "Distinct products that fell back to the placeholder symbol per run",
			Buckets: prometheus.LinearBuckets(0, 1, 10),
		},
	)
)
