package tools

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"agentrunner/pkg/middleware/resilience/circuit"
	"agentrunner/pkg/middleware/resilience/retry"
	"agentrunner/pkg/transcript"
)

func fastDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Retry: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  time.Millisecond,
			MaxDelay:      5 * time.Millisecond,
			BackoffFactor: 2.0,
		},
		Breaker: circuit.Config{
			FailureThreshold: 3,
			SuccessThreshold: 1,
			Cooldown:         50 * time.Millisecond,
		},
		Timeout: time.Second,
	}
}

func TestDispatchSuccess(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(&stubTool{name: "echo", exec: func(_ context.Context, args map[string]any) (*ExecResult, error) {
		return &ExecResult{Content: args["value"].(string)}, nil
	}})
	d := NewDispatcher(reg, fastDispatcherConfig(), nil)

	obs, err := d.Dispatch(context.Background(), "echo", map[string]any{"value": "hello"})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if obs.Kind != transcript.ObservationSuccess || obs.Content != "hello" {
		t.Errorf("unexpected observation: %+v", obs)
	}
}

func TestDispatchUnknownToolIdempotent(t *testing.T) {
	invoked := false
	reg := NewRegistry()
	reg.MustRegister(&stubTool{name: "echo", exec: func(_ context.Context, _ map[string]any) (*ExecResult, error) {
		invoked = true
		return &ExecResult{Content: "ok"}, nil
	}})
	d := NewDispatcher(reg, fastDispatcherConfig(), nil)

	_, err1 := d.Dispatch(context.Background(), "email_send", nil)
	_, err2 := d.Dispatch(context.Background(), "email_send", nil)
	if !errors.Is(err1, ErrUnknownTool) || !errors.Is(err2, ErrUnknownTool) {
		t.Errorf("expected ErrUnknownTool twice, got %v and %v", err1, err2)
	}
	if err1.Error() != err2.Error() {
		t.Errorf("unknown tool errors should be identical: %q vs %q", err1, err2)
	}
	if invoked {
		t.Error("no tool should be invoked on validation failure")
	}
}

func TestDispatchSchemaErrorNoInvocation(t *testing.T) {
	invoked := false
	reg := NewRegistry()
	reg.MustRegister(&stubTool{name: "echo", exec: func(_ context.Context, _ map[string]any) (*ExecResult, error) {
		invoked = true
		return &ExecResult{Content: "ok"}, nil
	}})
	d := NewDispatcher(reg, fastDispatcherConfig(), nil)

	_, err := d.Dispatch(context.Background(), "echo", map[string]any{})
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if schemaErr.Field != "value" {
		t.Errorf("expected offending field value, got %q", schemaErr.Field)
	}
	if invoked {
		t.Error("no tool should be invoked on schema violation")
	}
}

func TestDispatchRetriesTransientFailure(t *testing.T) {
	calls := 0
	reg := NewRegistry()
	reg.MustRegister(&stubTool{name: "flaky", exec: func(_ context.Context, _ map[string]any) (*ExecResult, error) {
		calls++
		if calls < 3 {
			return nil, fmt.Errorf("connection reset")
		}
		return &ExecResult{Content: "recovered"}, nil
	}})
	d := NewDispatcher(reg, fastDispatcherConfig(), nil)

	obs, err := d.Dispatch(context.Background(), "flaky", map[string]any{"value": "x"})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if obs.Kind != transcript.ObservationSuccess || obs.Content != "recovered" {
		t.Errorf("unexpected observation: %+v", obs)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestDispatchToolFailureBecomesObservation(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(&stubTool{name: "broken", exec: func(_ context.Context, _ map[string]any) (*ExecResult, error) {
		return nil, fmt.Errorf("invalid input file")
	}})
	d := NewDispatcher(reg, fastDispatcherConfig(), nil)

	obs, err := d.Dispatch(context.Background(), "broken", map[string]any{"value": "x"})
	if err != nil {
		t.Fatalf("tool failures must be observations, not errors: %v", err)
	}
	if obs.Kind != transcript.ObservationToolError {
		t.Errorf("expected tool_error observation, got %s", obs.Kind)
	}
}

func TestDispatchCircuitOpensAfterThreshold(t *testing.T) {
	calls := 0
	reg := NewRegistry()
	reg.MustRegister(&stubTool{name: "down", exec: func(_ context.Context, _ map[string]any) (*ExecResult, error) {
		calls++
		return nil, fmt.Errorf("boom")
	}})
	cfg := fastDispatcherConfig()
	cfg.Retry.MaxAttempts = 1
	d := NewDispatcher(reg, cfg, nil)

	// Threshold is 3 recorded failures; each dispatch records one.
	for i := 0; i < 3; i++ {
		obs, err := d.Dispatch(context.Background(), "down", map[string]any{"value": "x"})
		if err != nil || obs.Kind != transcript.ObservationToolError {
			t.Fatalf("dispatch %d: obs=%+v err=%v", i, obs, err)
		}
	}
	callsBefore := calls

	obs, err := d.Dispatch(context.Background(), "down", map[string]any{"value": "x"})
	if err != nil {
		t.Fatalf("circuit-open dispatch should yield an observation: %v", err)
	}
	if obs.Kind != transcript.ObservationToolError {
		t.Errorf("expected tool_error observation, got %s", obs.Kind)
	}
	if calls != callsBefore {
		t.Error("open circuit must fail fast without invoking the tool")
	}
}

func TestDispatchCancellation(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(&stubTool{name: "slow", exec: func(ctx context.Context, _ map[string]any) (*ExecResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}})
	d := NewDispatcher(reg, fastDispatcherConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := d.Dispatch(ctx, "slow", map[string]any{"value": "x"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled to propagate, got %v", err)
	}
}
