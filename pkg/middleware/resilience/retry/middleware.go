package retry

import (
	"context"
	"fmt"

	"agentrunner/pkg/llm"
	"agentrunner/pkg/llmerrors"
)

// Middleware returns a middleware function that wraps a model client with
// retry logic. Failed requests are retried per the configured policy with
// exponential backoff; only transient error kinds are retried. When
// onAttempts is non-nil it receives the attempt count of every wrapped
// call, successful or not (1 = no retries).
func Middleware(policy *Policy, onAttempts func(attempts int)) llm.Middleware {
	return func(next llm.Client) llm.Client {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				var resp llm.CompletionResponse

				attempts, err := policy.Do(ctx, func(ctx context.Context) error {
					var callErr error
					resp, callErr = next.Complete(ctx, req)
					return callErr
				})
				if onAttempts != nil {
					onAttempts(attempts)
				}
				if err == nil {
					return resp, nil
				}

				if ctx.Err() != nil {
					return llm.CompletionResponse{}, fmt.Errorf("retry cancelled: %w", ctx.Err())
				}

				// Exhausted retries on a retryable error: escalate as
				// ServiceUnavailable so the loop terminates (or fails over)
				// instead of looping on a dead target.
				if policy.ShouldRetry(err) {
					return llm.CompletionResponse{}, llmerrors.NewServiceUnavailableError(err, attempts)
				}
				return llm.CompletionResponse{}, err
			},
			func() string {
				return next.ModelName()
			},
		)
	}
}
