// Package metrics exposes prometheus instrumentation for the query pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chathero",
		Name:      "pipeline_requests_total",
		Help:      "Pipeline runs by terminal outcome.",
	}, []string{"outcome"})

	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chathero",
		Name:      "pipeline_phase_duration_seconds",
		Help:      "Duration of each pipeline phase.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"phase"})

	ExecutionRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chathero",
		Name:      "sandbox_execution_retries_total",
		Help:      "Times a failed sandbox execution triggered a re-plan.",
	})

	ValidationRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chathero",
		Name:      "code_validation_rejections_total",
		Help:      "Generated code snippets rejected by the safety validator.",
	})
)
