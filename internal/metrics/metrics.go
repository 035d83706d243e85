// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "triage"

// Variables declared for metrics.
var (
	AnalyzeCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "intake",
		Name:      "analyze_total",
		Help:      "Counter of analyze requests by result.",
	}, []string{"result"})

	AnalyzeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "intake",
		Name:      "analyze_duration_seconds",
		Help:      "Histogram of end-to-end analyze latency.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "inference",
		Name:      "duration_seconds",
		Help:      "Histogram of model call latency by stage.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"stage"})

	AssessmentFallbackCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "assessment",
		Name:      "fallback_total",
		Help:      "Counter of assessments replaced by the fallback, by reason.",
	}, []string{"reason"})

	RouteCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "routing",
		Name:      "routed_total",
		Help:      "Counter of items by disposition.",
	}, []string{"suggestion"})

	CandidateCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "curation",
		Name:      "candidate_total",
		Help:      "Counter of training candidates by the rule that fired.",
	}, []string{"rule"})

	NearDuplicateCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "curation",
		Name:      "near_duplicate_total",
		Help:      "Counter of samples within the duplicate distance of a recent sample.",
	})

	SampleWriteFailureCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "curation",
		Name:      "sample_write_failure_total",
		Help:      "Counter of dataset samples that failed to persist after the intake record was written.",
	})

	AdminDeniedCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "admin",
		Name:      "denied_total",
		Help:      "Counter of admin requests refused for a bad credential.",
	}, []string{"path"})

	TrainingTriggerCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "training",
		Name:      "trigger_total",
		Help:      "Counter of trigger evaluations by source and decision.",
	}, []string{"source", "decision"})

	TrainingTransitionCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "training",
		Name:      "transition_total",
		Help:      "Counter of training run state transitions.",
	}, []string{"event", "to"})

	TrainingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "training",
		Name:      "duration_seconds",
		Help:      "Histogram of training capability call duration.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
	})
)
