package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agentrunner/pkg/llm"
	"agentrunner/pkg/logx"
	"agentrunner/pkg/middleware/metrics"
	"agentrunner/pkg/parser"
	"agentrunner/pkg/templates"
	"agentrunner/pkg/tools"
	"agentrunner/pkg/transcript"
)

// Result is the successful outcome of one loop execution: the model's
// final answer verbatim, plus the transcript that produced it.
type Result struct {
	Answer     string
	Transcript *transcript.Transcript
}

// Loop drives the Thought/Action/Observation cycle for tasks. One Loop
// serves many concurrent tasks; per-task state lives in the transcript
// created inside Run.
type Loop struct {
	client     llm.Client
	registry   *tools.Registry
	dispatcher *tools.Dispatcher
	renderer   *templates.Renderer
	logger     *logx.Logger
	sinks      []TelemetrySink
}

// NewLoop creates an agent loop. The client is expected to already carry
// its resilience middleware; the loop itself never retries model calls.
func NewLoop(client llm.Client, registry *tools.Registry, dispatcher *tools.Dispatcher, renderer *templates.Renderer, sinks ...TelemetrySink) *Loop {
	return &Loop{
		client:     client,
		registry:   registry,
		dispatcher: dispatcher,
		renderer:   renderer,
		logger:     logx.NewLogger("agent"),
		sinks:      sinks,
	}
}

// Run executes the task to a terminal answer or a bounded failure.
//
// Termination: a final answer from the model is the only success exit.
// Exhausting the step budget returns a StepLimitError, external
// cancellation a CancelledError, and an unrecoverable model failure a
// FatalError. All terminal errors carry the transcript.
func (l *Loop) Run(ctx context.Context, task Task) (*Result, error) {
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task: %w", err)
	}

	allowed := l.registry.Subset(task.ToolAllowlist)
	toolDocs := allowed.Documentation()
	toolNames := templates.JoinToolNames(allowed.Names())
	tr := transcript.New()
	ctx = metrics.WithTaskID(ctx, task.ID)

	l.logger.Info("task %s started: max_steps=%d step_timeout=%v", task.ID, task.MaxSteps, task.StepTimeout)

	for tr.Len() < task.MaxSteps {
		select {
		case <-ctx.Done():
			return nil, &CancelledError{Err: ctx.Err(), Transcript: tr}
		default:
		}

		stepStart := time.Now()
		result, err := l.runStep(ctx, task, allowed, tr, toolDocs, toolNames, stepStart)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
	}

	l.logger.Warn("task %s exhausted step budget without a final answer", task.ID)
	return nil, &StepLimitError{MaxSteps: task.MaxSteps, Transcript: tr}
}

// runStep performs one full loop iteration. A non-nil Result means the
// task reached its final answer; a nil Result with nil error means the
// loop should continue.
func (l *Loop) runStep(ctx context.Context, task Task, allowed *tools.Registry, tr *transcript.Transcript, toolDocs, toolNames string, stepStart time.Time) (*Result, error) {
	transcriptText := tr.Render()
	if task.MaxContextTokens > 0 {
		if tokens := tr.TokenCount(); tokens > task.MaxContextTokens {
			transcriptText = tr.RenderCompacted(task.MaxContextTokens)
			l.logger.Info("task %s step %d: transcript compacted from %d tokens to fit budget %d",
				task.ID, tr.Len(), tokens, task.MaxContextTokens)
		}
	}

	prompt, err := l.renderer.Render(templates.ReactTemplate, &templates.TemplateData{
		Query:             task.Query,
		ToolDocumentation: toolDocs,
		ToolNames:         toolNames,
		Transcript:        transcriptText,
	})
	if err != nil {
		return nil, &FatalError{Err: fmt.Errorf("prompt rendering failed: %w", err), Transcript: tr}
	}

	stepCtx, cancel := context.WithTimeout(ctx, task.StepTimeout)
	defer cancel()

	resp, err := l.client.Complete(stepCtx, llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewUserMessage(prompt),
	}))
	if err != nil {
		// Caller cancellation is honored here, the loop's suspension
		// point. Everything else surviving the resilience chain is
		// unrecoverable.
		if ctx.Err() != nil {
			return nil, &CancelledError{Err: ctx.Err(), Transcript: tr}
		}
		return nil, &FatalError{Err: fmt.Errorf("model call failed: %w", err), Transcript: tr}
	}

	decision := parser.Parse(resp.Content)
	switch decision.Kind {
	case parser.KindFinalAnswer:
		step := tr.Append(transcript.Step{
			StartedAt: stepStart,
			RawOutput: resp.Content,
			Decision:  decision,
			Duration:  time.Since(stepStart),
		})
		l.emitStep(task, step, "answer", "model")
		l.logger.Info("task %s answered after %d steps", task.ID, tr.Len())
		return &Result{Answer: decision.Answer, Transcript: tr}, nil

	case parser.KindMalformed:
		obs := &transcript.Observation{
			Kind:    transcript.ObservationParseFailure,
			Content: "could not parse a decision from the response: " + decision.Reason,
		}
		step := tr.Append(transcript.Step{
			StartedAt:   stepStart,
			RawOutput:   resp.Content,
			Decision:    decision,
			Observation: obs,
			Duration:    time.Since(stepStart),
		})
		l.emitStep(task, step, string(obs.Kind), "model")
		return nil, nil

	case parser.KindAction:
		obs, dispatchErr := l.act(stepCtx, task, allowed, decision.Action)
		if dispatchErr != nil {
			if ctx.Err() != nil {
				return nil, &CancelledError{Err: ctx.Err(), Transcript: tr}
			}
			return nil, &FatalError{Err: dispatchErr, Transcript: tr}
		}
		step := tr.Append(transcript.Step{
			StartedAt:   stepStart,
			RawOutput:   resp.Content,
			Decision:    decision,
			Observation: obs,
			Duration:    time.Since(stepStart),
		})
		outcome := "action"
		if obs.IsFailure() {
			outcome = string(obs.Kind)
		}
		l.emitStep(task, step, outcome, "tool:"+decision.Action.Name)
		return nil, nil

	default:
		return nil, &FatalError{Err: fmt.Errorf("unhandled decision kind %s", decision.Kind), Transcript: tr}
	}
}

// act executes one parsed action. Validation failures (unknown tool,
// schema violation) become failure observations so the model can
// self-correct; only cancellation and internal faults return an error.
func (l *Loop) act(ctx context.Context, task Task, allowed *tools.Registry, action *parser.Action) (*transcript.Observation, error) {
	if _, err := allowed.Get(action.Name); err != nil {
		l.logger.Debug("task %s requested unavailable tool %s", task.ID, action.Name)
		return &transcript.Observation{
			Kind:    transcript.ObservationUnknownTool,
			Content: err.Error(),
		}, nil
	}

	obs, err := l.dispatcher.Dispatch(ctx, action.Name, action.Args)
	if err != nil {
		var schemaErr *tools.SchemaError
		switch {
		case errors.As(err, &schemaErr):
			return &transcript.Observation{
				Kind:    transcript.ObservationSchemaError,
				Content: schemaErr.Error(),
			}, nil
		case errors.Is(err, tools.ErrUnknownTool):
			return &transcript.Observation{
				Kind:    transcript.ObservationUnknownTool,
				Content: err.Error(),
			}, nil
		default:
			return nil, err
		}
	}
	return &obs, nil
}

// emitStep publishes one step event to the telemetry sinks.
func (l *Loop) emitStep(task Task, step transcript.Step, outcome, target string) {
	emit(l.sinks, StepEvent{
		Timestamp: step.StartedAt,
		TaskID:    task.ID,
		Sequence:  step.Sequence,
		Duration:  step.Duration,
		Outcome:   outcome,
		Target:    target,
	})
}
