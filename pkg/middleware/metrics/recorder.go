// Package metrics provides metrics recording for model calls and loop steps.
package metrics

import (
	"context"
	"time"
)

// Recorder defines the interface for recording agent runtime metrics.
type Recorder interface {
	// ObserveModelRequest records metrics for a completed model request.
	ObserveModelRequest(
		model, taskID string,
		promptTokens, completionTokens int,
		success bool,
		errorType string,
		duration time.Duration,
	)

	// ObserveAttempts records the number of underlying attempts a resilient
	// call needed (1 = no retries).
	ObserveAttempts(target string, attempts int)

	// ObserveStep records metrics for one completed loop step.
	ObserveStep(taskID, outcome, target string, sequence int, duration time.Duration)
}

// NopRecorder discards all observations. Used in tests and when metrics are disabled.
type NopRecorder struct{}

// NewNopRecorder creates a recorder that discards all observations.
func NewNopRecorder() *NopRecorder { return &NopRecorder{} }

// ObserveModelRequest implements Recorder.
func (*NopRecorder) ObserveModelRequest(string, string, int, int, bool, string, time.Duration) {}

// ObserveAttempts implements Recorder.
func (*NopRecorder) ObserveAttempts(string, int) {}

// ObserveStep implements Recorder.
func (*NopRecorder) ObserveStep(string, string, string, int, time.Duration) {}

// taskIDKey carries the running task's ID through call chains so the model
// middleware can label observations without threading state providers.
type taskIDKey struct{}

// WithTaskID returns a context carrying the task ID for metrics labeling.
func WithTaskID(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, taskIDKey{}, taskID)
}

// TaskIDFrom extracts the task ID from the context, or "" if absent.
func TaskIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(taskIDKey{}).(string); ok {
		return id
	}
	return ""
}
