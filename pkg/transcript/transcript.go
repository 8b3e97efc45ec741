// Package transcript holds the append-only step history for one task.
//
// A Transcript is owned by a single task execution and is never shared
// across goroutines, so it carries no locking. Steps are immutable once
// appended; the loop renders the transcript back into the next model
// request so each reasoning step sees everything that came before it.
package transcript

import (
	"fmt"
	"strings"
	"time"

	"agentrunner/pkg/parser"
	"agentrunner/pkg/utils"
)

// ObservationKind classifies the result of acting on one model decision.
type ObservationKind string

const (
	// ObservationSuccess is a successful tool result payload.
	ObservationSuccess ObservationKind = "success"
	// ObservationToolError is a tool invocation that failed after resilience handling.
	ObservationToolError ObservationKind = "tool_error"
	// ObservationSchemaError is an action whose arguments failed schema validation.
	ObservationSchemaError ObservationKind = "schema_error"
	// ObservationUnknownTool is an action naming a tool absent from the registry.
	ObservationUnknownTool ObservationKind = "unknown_tool"
	// ObservationParseFailure is a model response with no recognizable decision.
	ObservationParseFailure ObservationKind = "parse_failure"
)

// Observation is the recorded outcome of one action, success or failure.
// Failures are data shown back to the model, not control flow.
type Observation struct {
	Kind    ObservationKind `json:"kind"`
	Content string          `json:"content"`
}

// IsFailure reports whether the observation records a failure of any kind.
func (o Observation) IsFailure() bool {
	return o.Kind != ObservationSuccess
}

// Step is one loop iteration: the raw model output, the parsed decision,
// and the observation produced by acting on it. Terminal answer steps
// carry no observation.
type Step struct {
	StartedAt   time.Time       `json:"started_at"`
	RawOutput   string          `json:"raw_output"`
	Observation *Observation    `json:"observation,omitempty"`
	Decision    parser.Decision `json:"-"`
	Duration    time.Duration   `json:"duration"`
	Sequence    int             `json:"sequence"`
}

// Transcript is the ordered, append-only record of steps for one task.
type Transcript struct {
	steps []Step
}

// New creates an empty transcript.
func New() *Transcript {
	return &Transcript{}
}

// Append adds a step and assigns its sequence number. Sequence numbers
// are 0-based and strictly increasing; prior steps are never modified.
func (t *Transcript) Append(step Step) Step {
	step.Sequence = len(t.steps)
	t.steps = append(t.steps, step)
	return step
}

// Len returns the number of recorded steps.
func (t *Transcript) Len() int {
	return len(t.steps)
}

// Steps returns a copy of the recorded steps in order.
func (t *Transcript) Steps() []Step {
	out := make([]Step, len(t.steps))
	copy(out, t.steps)
	return out
}

// Last returns the most recent step, or false if the transcript is empty.
func (t *Transcript) Last() (Step, bool) {
	if len(t.steps) == 0 {
		return Step{}, false
	}
	return t.steps[len(t.steps)-1], true
}

// OmissionMarker replaces compacted-away history in a rendered transcript
// so the model knows earlier steps happened.
const OmissionMarker = "[earlier steps omitted]"

// Render concatenates step summaries in order for the next model context.
// Each entry is the model's own output followed by the observation line
// the loop produced for it.
func (t *Transcript) Render() string {
	var sb strings.Builder
	for i := range t.steps {
		sb.WriteString(t.renderStep(i))
	}
	return sb.String()
}

// RenderCompacted renders the transcript within a token budget. The newest
// steps are kept whole, working backwards until the budget is spent; older
// steps collapse into a single omission marker. When even the newest step
// alone exceeds the budget, its rendering is truncated instead.
func (t *Transcript) RenderCompacted(maxTokens int) string {
	if maxTokens <= 0 || len(t.steps) == 0 {
		return t.Render()
	}

	rendered := make([]string, len(t.steps))
	for i := range t.steps {
		rendered[i] = t.renderStep(i)
	}

	total := 0
	start := len(rendered)
	for i := len(rendered) - 1; i >= 0; i-- {
		cost := utils.CountTokensSimple(rendered[i])
		if total+cost > maxTokens {
			break
		}
		total += cost
		start = i
	}

	if start == 0 {
		return strings.Join(rendered, "")
	}
	if start == len(rendered) {
		// The newest step alone blows the budget.
		last := utils.TruncateToTokenLimitSimple(rendered[len(rendered)-1], maxTokens)
		if len(rendered) == 1 {
			return last
		}
		return OmissionMarker + "\n" + last
	}
	return OmissionMarker + "\n" + strings.Join(rendered[start:], "")
}

func (t *Transcript) renderStep(i int) string {
	var sb strings.Builder
	step := &t.steps[i]
	raw := strings.TrimSpace(step.RawOutput)
	if raw != "" {
		sb.WriteString(raw)
		sb.WriteString("\n")
	}
	if step.Observation != nil {
		if step.Observation.IsFailure() {
			sb.WriteString(fmt.Sprintf("Observation: [%s] %s\n", step.Observation.Kind, step.Observation.Content))
		} else {
			sb.WriteString("Observation: " + step.Observation.Content + "\n")
		}
	}
	return sb.String()
}

// TokenCount estimates the token cost of replaying this transcript.
func (t *Transcript) TokenCount() int {
	return utils.CountTokensSimple(t.Render())
}
