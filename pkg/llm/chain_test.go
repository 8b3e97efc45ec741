package llm

import (
	"context"
	"testing"
)

type baseClient struct{}

func (baseClient) Complete(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
	return CompletionResponse{Content: "base"}, nil
}

func (baseClient) ModelName() string { return "base" }

// tagging appends its tag to the response so tests can observe ordering.
func tagging(tag string) Middleware {
	return func(next Client) Client {
		return WrapClient(
			func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
				resp, err := next.Complete(ctx, req)
				resp.Content += " " + tag
				return resp, err
			},
			next.ModelName,
		)
	}
}

func TestChainOrder(t *testing.T) {
	// First middleware is outermost: its tag is appended last.
	client := Chain(baseClient{}, tagging("outer"), tagging("inner"))

	resp, err := client.Complete(context.Background(), NewCompletionRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "base inner outer" {
		t.Errorf("expected %q, got %q", "base inner outer", resp.Content)
	}
}

func TestChainEmpty(t *testing.T) {
	client := Chain(baseClient{})
	if client.ModelName() != "base" {
		t.Errorf("empty chain should return the base client, got %q", client.ModelName())
	}
}

func TestNewCompletionRequestDefaults(t *testing.T) {
	req := NewCompletionRequest([]CompletionMessage{NewUserMessage("hi")})
	if req.MaxTokens != 4096 {
		t.Errorf("expected default max tokens 4096, got %d", req.MaxTokens)
	}
	if req.Temperature != TemperatureDefault {
		t.Errorf("expected default temperature, got %v", req.Temperature)
	}
}

func TestParamsMiddlewareOverridesRequest(t *testing.T) {
	var got CompletionRequest
	capture := WrapClient(
		func(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
			got = req
			return CompletionResponse{Content: "ok"}, nil
		},
		func() string { return "capture" },
	)

	client := Chain(capture, ParamsMiddleware(1024, 0.9))
	if _, err := client.Complete(context.Background(), NewCompletionRequest(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.MaxTokens != 1024 || got.Temperature != 0.9 {
		t.Errorf("expected configured params on the wire, got max_tokens=%d temperature=%v",
			got.MaxTokens, got.Temperature)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := Config{ModelName: "m", MaxTokens: 100, Temperature: 0.5}
	if err := valid.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}

	for _, cfg := range []Config{
		{MaxTokens: 100, Temperature: 0.5},
		{ModelName: "m", Temperature: 0.5},
		{ModelName: "m", MaxTokens: 100, Temperature: 3.0},
	} {
		if err := cfg.Validate(); err == nil {
			t.Errorf("expected validation error for %+v", cfg)
		}
	}
}
