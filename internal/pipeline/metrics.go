package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// runsTotal counts finished runs.
	// Labels: phase (complete, failed)
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faultline",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Analysis runs by final phase",
	}, []string{"phase"})

	// runDuration measures whole runs, extraction to critique.
	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "faultline",
		Subsystem: "pipeline",
		Name:      "run_duration_seconds",
		Help:      "Duration of an analysis run",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	// claimsExtracted observes claims per run after deduplication.
	claimsExtracted = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "faultline",
		Subsystem: "pipeline",
		Name:      "claims_extracted",
		Help:      "Claims extracted per run",
		Buckets:   []float64{1, 5, 10, 20, 40, 80},
	})
)
