package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements the Recorder interface using Prometheus metrics.
type PrometheusRecorder struct {
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	attemptsTotal   *prometheus.CounterVec
	stepsTotal      *prometheus.CounterVec
	stepDuration    *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new Prometheus-based metrics recorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	return &PrometheusRecorder{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Total number of model requests by model, task, status, and error type",
			},
			[]string{"model", "task_id", "status", "error_type"},
		),
		tokensTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_total",
				Help: "Total number of tokens used in model requests",
			},
			[]string{"model", "task_id", "type"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_request_duration_seconds",
				Help:    "Duration of model requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model", "task_id"},
		),
		attemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resilient_call_attempts_total",
				Help: "Total underlying attempts made by resilient calls, per target",
			},
			[]string{"target"},
		),
		stepsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_steps_total",
				Help: "Total loop steps by task, outcome, and target",
			},
			[]string{"task_id", "outcome", "target"},
		),
		stepDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agent_step_duration_seconds",
				Help:    "Duration of loop steps in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"task_id", "outcome"},
		),
	}
}

// ObserveModelRequest records metrics for a completed model request.
func (p *PrometheusRecorder) ObserveModelRequest(
	model, taskID string,
	promptTokens, completionTokens int,
	success bool,
	errorType string,
	duration time.Duration,
) {
	status := "success"
	if !success {
		status = "error"
	}

	p.requestsTotal.WithLabelValues(model, taskID, status, errorType).Inc()

	if success {
		p.tokensTotal.WithLabelValues(model, taskID, "prompt").Add(float64(promptTokens))
		p.tokensTotal.WithLabelValues(model, taskID, "completion").Add(float64(completionTokens))
	}

	p.requestDuration.WithLabelValues(model, taskID).Observe(duration.Seconds())
}

// ObserveAttempts records underlying attempt counts for a resilient call.
func (p *PrometheusRecorder) ObserveAttempts(target string, attempts int) {
	p.attemptsTotal.WithLabelValues(target).Add(float64(attempts))
}

// ObserveStep records metrics for one completed loop step.
func (p *PrometheusRecorder) ObserveStep(taskID, outcome, target string, _ int, duration time.Duration) {
	p.stepsTotal.WithLabelValues(taskID, outcome, target).Inc()
	p.stepDuration.WithLabelValues(taskID, outcome).Observe(duration.Seconds())
}
