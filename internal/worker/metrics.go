package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// verificationAttempts counts single provider calls.
	// Labels: result (success, error, timeout, cancelled)
	verificationAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faultline",
		Subsystem: "verification",
		Name:      "attempts_total",
		Help:      "Verification attempts by result",
	}, []string{"result"})

	// verificationAttemptDuration measures single provider calls.
	verificationAttemptDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "faultline",
		Subsystem: "verification",
		Name:      "attempt_duration_seconds",
		Help:      "Latency of a single verification attempt",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 45, 60},
	})

	// verificationRetries counts backoff waits between attempts.
	verificationRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "faultline",
		Subsystem: "verification",
		Name:      "retries_total",
		Help:      "Retries scheduled after a failed verification attempt",
	})

	// verificationOutcomes counts settled claims.
	// Labels: status (supported, contradicted, mixed, unverified)
	verificationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faultline",
		Subsystem: "verification",
		Name:      "outcomes_total",
		Help:      "Settled verification outcomes by status",
	}, []string{"status"})

	// chunkDuration measures how long one scheduler chunk takes to settle.
	chunkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "faultline",
		Subsystem: "scheduler",
		Name:      "chunk_duration_seconds",
		Help:      "Time for every claim in a chunk to settle",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 45, 90, 180},
	})
)
