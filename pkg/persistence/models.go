package persistence

import "time"

// Task run statuses.
const (
	StatusCompleted = "completed"
	StatusStepLimit = "step_limit"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// TaskRecord is a stored task run.
type TaskRecord struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	ID          string    `json:"id"`
	Query       string    `json:"query"`
	Status      string    `json:"status"`
	Answer      string    `json:"answer,omitempty"`
	StepCount   int       `json:"step_count"`
}

// StepRecord is a stored transcript step.
type StepRecord struct {
	StartedAt       time.Time `json:"started_at"`
	TaskID          string    `json:"task_id"`
	RawOutput       string    `json:"raw_output"`
	ObservationKind string    `json:"observation_kind,omitempty"`
	Observation     string    `json:"observation,omitempty"`
	DurationMS      int64     `json:"duration_ms"`
	Sequence        int       `json:"sequence"`
}
