package agent

import (
	"time"

	"agentrunner/pkg/middleware/metrics"
)

// StepEvent is the per-step telemetry record.
type StepEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	TaskID    string        `json:"task_id"`
	Outcome   string        `json:"outcome"`
	Target    string        `json:"target,omitempty"`
	Duration  time.Duration `json:"duration"`
	Sequence  int           `json:"sequence"`
}

// TelemetrySink receives step events. Implementations must be safe for
// concurrent use; the loop delivers events fire-and-forget and never
// waits on a sink.
type TelemetrySink interface {
	RecordStep(event StepEvent)
}

// metricsSink adapts a metrics recorder to the telemetry interface.
type metricsSink struct {
	recorder metrics.Recorder
}

// NewMetricsSink creates a telemetry sink backed by a metrics recorder.
func NewMetricsSink(recorder metrics.Recorder) TelemetrySink {
	return &metricsSink{recorder: recorder}
}

func (s *metricsSink) RecordStep(event StepEvent) {
	s.recorder.ObserveStep(event.TaskID, event.Outcome, event.Target, event.Sequence, event.Duration)
}

// emit delivers an event to all sinks in a detached goroutine. Sink
// panics are swallowed so telemetry can never fail the loop.
func emit(sinks []TelemetrySink, event StepEvent) {
	if len(sinks) == 0 {
		return
	}
	go func() {
		defer func() { _ = recover() }()
		for _, sink := range sinks {
			sink.RecordStep(event)
		}
	}()
}
