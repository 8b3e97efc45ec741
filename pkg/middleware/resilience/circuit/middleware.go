package circuit

import (
	"context"

	"agentrunner/pkg/llm"
)

// Middleware returns a middleware function that wraps a model client with
// circuit breaker logic. If the circuit is OPEN, requests are rejected
// immediately without calling the underlying client, giving the downstream
// service time to recover.
func Middleware(breaker Breaker, target string) llm.Middleware {
	return func(next llm.Client) llm.Client {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				if !breaker.Allow() {
					return llm.CompletionResponse{}, &Error{Target: target, State: breaker.GetState()}
				}

				resp, err := next.Complete(ctx, req)

				breaker.Record(err == nil)
				return resp, err //nolint:wrapcheck // Middleware passes errors through unchanged
			},
			func() string {
				return next.ModelName()
			},
		)
	}
}
