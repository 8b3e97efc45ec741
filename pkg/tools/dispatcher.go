package tools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"agentrunner/pkg/logx"
	"agentrunner/pkg/middleware/metrics"
	"agentrunner/pkg/middleware/resilience/circuit"
	"agentrunner/pkg/middleware/resilience/retry"
	"agentrunner/pkg/transcript"
)

const defaultToolTimeout = 30 * time.Second

// DispatcherConfig configures tool call resilience. Zero values select
// the package defaults.
type DispatcherConfig struct {
	Retry   retry.Config
	Breaker circuit.Config
	Timeout time.Duration
}

// Dispatcher performs validated tool invocations with the same resilience
// policy applied to model calls: per-attempt timeout, bounded retry with
// backoff, and a circuit breaker per tool.
type Dispatcher struct {
	registry *Registry
	policy   *retry.Policy
	recorder metrics.Recorder
	logger   *logx.Logger
	breakers map[string]circuit.Breaker
	breaker  circuit.Config
	timeout  time.Duration
	mu       sync.Mutex
}

// NewDispatcher creates a dispatcher over the given registry. A nil
// recorder disables telemetry.
func NewDispatcher(registry *Registry, cfg DispatcherConfig, recorder metrics.Recorder) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultToolTimeout
	}
	if cfg.Breaker.FailureThreshold <= 0 {
		cfg.Breaker = circuit.DefaultConfig
	}
	if recorder == nil {
		recorder = &metrics.NopRecorder{}
	}
	return &Dispatcher{
		registry: registry,
		policy:   retry.NewPolicy(cfg.Retry, nil),
		recorder: recorder,
		logger:   logx.NewLogger("dispatcher"),
		breakers: make(map[string]circuit.Breaker),
		breaker:  cfg.Breaker,
		timeout:  cfg.Timeout,
	}
}

// Dispatch validates and executes one action. Validation failures return
// an error without invoking any tool (ErrUnknownTool or a SchemaError);
// repeated calls with the same invalid input fail identically. Once a
// tool runs, its failures are wrapped into a failure Observation rather
// than an error so the loop can show them to the model.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) (transcript.Observation, error) {
	tool, err := d.registry.Get(name)
	if err != nil {
		return transcript.Observation{}, err
	}

	def := tool.Definition()
	if err := ValidateArgs(name, def.InputSchema, args); err != nil {
		return transcript.Observation{}, err
	}

	breaker := d.breakerFor(name)
	if !breaker.Allow() {
		cbErr := &circuit.Error{Target: "tool:" + name, State: breaker.GetState()}
		d.logger.Warn("tool %s rejected by circuit breaker: %v", name, cbErr)
		return transcript.Observation{
			Kind:    transcript.ObservationToolError,
			Content: fmt.Sprintf("tool '%s' unavailable: %v", name, cbErr),
		}, nil
	}

	var result *ExecResult
	attempts, callErr := d.policy.Do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		res, execErr := tool.Exec(callCtx, args)
		if execErr != nil {
			return execErr
		}
		result = res
		return nil
	})
	breaker.Record(callErr == nil)
	d.recorder.ObserveAttempts("tool:"+name, attempts)

	if callErr != nil {
		// Caller cancellation aborts the task; everything else is data
		// for the model to react to.
		if ctx.Err() != nil {
			return transcript.Observation{}, fmt.Errorf("tool '%s' cancelled: %w", name, ctx.Err())
		}
		d.logger.Warn("tool %s failed after %d attempts: %v", name, attempts, callErr)
		return transcript.Observation{
			Kind:    transcript.ObservationToolError,
			Content: fmt.Sprintf("tool '%s' failed after %d attempts: %v", name, attempts, callErr),
		}, nil
	}

	return transcript.Observation{
		Kind:    transcript.ObservationSuccess,
		Content: result.Content,
	}, nil
}

// breakerFor returns the circuit breaker for a tool, creating it lazily.
func (d *Dispatcher) breakerFor(name string) circuit.Breaker {
	d.mu.Lock()
	defer d.mu.Unlock()

	if breaker, ok := d.breakers[name]; ok {
		return breaker
	}
	breaker := circuit.New(d.breaker)
	d.breakers[name] = breaker
	return breaker
}
