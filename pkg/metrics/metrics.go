// Package metrics exposes Prometheus collectors for the pipeline stages.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EmailsClassified counts classifier runs, split by whether the default
	// classification had to be used.
	EmailsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "officeflow_emails_classified_total",
			Help: "Total number of emails classified",
		},
		[]string{"fallback"},
	)

	// RouteStepFailures counts secondary writes that failed during routing.
	RouteStepFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "officeflow_route_step_failures_total",
			Help: "Routing steps that failed and were skipped",
		},
		[]string{"step"},
	)

	EscalationsFiled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "officeflow_escalations_total",
			Help: "Escalations filed by the SLA scanner",
		},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "officeflow_llm_request_duration_seconds",
			Help:    "Text generation call latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~50s
		},
		[]string{"status"},
	)

	IngestMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "officeflow_ingest_messages_total",
			Help: "Provider messages seen during ingestion",
		},
		[]string{"provider", "result"}, // result: stored, skipped, failed
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "officeflow_job_duration_seconds",
			Help:    "Worker job duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"type", "status"},
	)
)

// RecordClassification records a classifier run.
func RecordClassification(fallback bool) {
	label := "false"
	if fallback {
		label = "true"
	}
	EmailsClassified.WithLabelValues(label).Inc()
}

// RecordRouteStepFailure records a skipped routing step.
func RecordRouteStepFailure(step string) {
	RouteStepFailures.WithLabelValues(step).Inc()
}

// RecordEscalation records a newly filed escalation.
func RecordEscalation() {
	EscalationsFiled.Inc()
}

// RecordLLMRequest records a text generation call.
func RecordLLMRequest(status string, d time.Duration) {
	LLMRequestDuration.WithLabelValues(status).Observe(d.Seconds())
}

// RecordIngest records the outcome of one provider message.
func RecordIngest(provider, result string) {
	IngestMessages.WithLabelValues(provider, result).Inc()
}

// RecordJob records a worker job.
func RecordJob(jobType, status string, d time.Duration) {
	JobDuration.WithLabelValues(jobType, status).Observe(d.Seconds())
}
