// Package timeout provides per-request timeout middleware for model clients.
package timeout

import (
	"context"
	"time"

	"agentrunner/pkg/llm"
)

// Middleware returns a middleware function that wraps a model client with a
// per-request timeout so a hung upstream can never hang the agent loop.
func Middleware(duration time.Duration) llm.Middleware {
	return func(next llm.Client) llm.Client {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				timeoutCtx, cancel := context.WithTimeout(ctx, duration)
				defer cancel()

				return next.Complete(timeoutCtx, req)
			},
			func() string {
				return next.ModelName()
			},
		)
	}
}
