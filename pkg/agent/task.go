// Package agent implements the bounded reasoning/acting loop that drives
// a model through tool use to a terminal answer.
package agent

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultMaxSteps bounds the loop when the caller does not.
	DefaultMaxSteps = 10
	// DefaultStepTimeout bounds one reasoning or acting step.
	DefaultStepTimeout = 2 * time.Minute
	// DefaultMaxContextTokens caps the transcript portion of each prompt.
	// Older steps are compacted away once the rendered transcript would
	// exceed this budget.
	DefaultMaxContextTokens = 65536
)

// Task is the immutable input to one loop execution: the user query plus
// a configuration snapshot taken at invocation time.
type Task struct {
	ID               string
	Query            string
	ToolAllowlist    []string
	MaxSteps         int
	StepTimeout      time.Duration
	MaxContextTokens int
}

// NewTask creates a task with a fresh ID and default bounds.
func NewTask(query string) Task {
	return Task{
		ID:               uuid.New().String(),
		Query:            query,
		MaxSteps:         DefaultMaxSteps,
		StepTimeout:      DefaultStepTimeout,
		MaxContextTokens: DefaultMaxContextTokens,
	}
}

// Validate checks the task configuration.
func (t *Task) Validate() error {
	if t.Query == "" {
		return fmt.Errorf("task query is required")
	}
	if t.MaxSteps < 1 {
		return fmt.Errorf("task max steps must be at least 1, got %d", t.MaxSteps)
	}
	if t.StepTimeout <= 0 {
		return fmt.Errorf("task step timeout must be positive, got %v", t.StepTimeout)
	}
	if t.MaxContextTokens < 0 {
		return fmt.Errorf("task max context tokens must not be negative, got %d", t.MaxContextTokens)
	}
	return nil
}
