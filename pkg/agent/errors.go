package agent

import (
	"fmt"

	"agentrunner/pkg/transcript"
)

// StepLimitError is the loop-level terminal condition: the step budget
// was exhausted without a final answer. It carries the full transcript
// so callers can diagnose without re-deriving state.
type StepLimitError struct {
	Transcript *transcript.Transcript
	MaxSteps   int
}

func (e *StepLimitError) Error() string {
	return fmt.Sprintf("step limit exceeded: no final answer after %d steps", e.MaxSteps)
}

// CancelledError reports an external cancellation honored at a
// suspension point.
type CancelledError struct {
	Err        error
	Transcript *transcript.Transcript
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("task cancelled: %v", e.Err)
}

func (e *CancelledError) Unwrap() error {
	return e.Err
}

// FatalError reports an unrecoverable failure, typically the model
// endpoint unreachable after retry and fallback exhaustion. The loop
// does not continue past it.
type FatalError struct {
	Err        error
	Transcript *transcript.Transcript
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal agent error: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
