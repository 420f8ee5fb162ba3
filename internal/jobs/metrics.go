// File: internal/jobs/metrics.go
package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	enqueuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onboarding_jobs_enqueued_total",
		Help: "Jobs accepted by the queue, by kind.",
	}, []string{"kind"})

	enqueueFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onboarding_jobs_enqueue_failed_total",
		Help: "Jobs the queue refused, by kind.",
	}, []string{"kind"})

	processedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onboarding_jobs_processed_total",
		Help: "Job attempts, by kind and outcome.",
	}, []string{"kind", "outcome"})

	deadLettersSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onboarding_jobs_dead_letters_swept_total",
		Help: "Dead letters removed by the retention sweep.",
	})
)

func observeEnqueue(kind Kind, err error) {
	if err != nil {
		enqueueFailedTotal.WithLabelValues(string(kind)).Inc()
		return
	}
	enqueuedTotal.WithLabelValues(string(kind)).Inc()
}

func observeOutcome(kind Kind, out Outcome) {
	processedTotal.WithLabelValues(string(kind), out.Status.String()).Inc()
}
