package circuit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"agentrunner/pkg/llm"
)

// flakyClient fails until told otherwise.
type flakyClient struct {
	failing bool
	calls   int
}

func (f *flakyClient) Complete(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
	f.calls++
	if f.failing {
		return llm.CompletionResponse{}, fmt.Errorf("upstream error")
	}
	return llm.CompletionResponse{Content: "ok"}, nil
}

func (f *flakyClient) ModelName() string { return "flaky" }

func TestMiddlewareOpensAndFailsFast(t *testing.T) {
	base := &flakyClient{failing: true}
	breaker := New(Config{FailureThreshold: 2, SuccessThreshold: 1, Cooldown: 50 * time.Millisecond})
	client := llm.Chain(base, Middleware(breaker, "model:flaky"))

	for i := 0; i < 2; i++ {
		if _, err := client.Complete(context.Background(), llm.NewCompletionRequest(nil)); err == nil {
			t.Fatalf("call %d should fail", i)
		}
	}
	if base.calls != 2 {
		t.Fatalf("expected 2 underlying calls, got %d", base.calls)
	}

	// Circuit is now open: the next call must not reach the client.
	_, err := client.Complete(context.Background(), llm.NewCompletionRequest(nil))
	var circuitErr *Error
	if !errors.As(err, &circuitErr) {
		t.Fatalf("expected circuit Error, got %v", err)
	}
	if circuitErr.Target != "model:flaky" || circuitErr.State != Open {
		t.Errorf("unexpected circuit error: %+v", circuitErr)
	}
	if base.calls != 2 {
		t.Errorf("open circuit must not invoke the client, calls=%d", base.calls)
	}
}

func TestMiddlewareRecoversThroughTrial(t *testing.T) {
	base := &flakyClient{failing: true}
	breaker := New(Config{FailureThreshold: 2, SuccessThreshold: 1, Cooldown: 30 * time.Millisecond})
	client := llm.Chain(base, Middleware(breaker, "model:flaky"))

	for i := 0; i < 2; i++ {
		_, _ = client.Complete(context.Background(), llm.NewCompletionRequest(nil))
	}
	if breaker.GetState() != Open {
		t.Fatalf("expected OPEN, got %s", breaker.GetState())
	}

	base.failing = false
	time.Sleep(40 * time.Millisecond)

	resp, err := client.Complete(context.Background(), llm.NewCompletionRequest(nil))
	if err != nil {
		t.Fatalf("trial call should succeed, got %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("unexpected response %+v", resp)
	}
	if breaker.GetState() != Closed {
		t.Errorf("trial success should close the circuit, got %s", breaker.GetState())
	}
}
