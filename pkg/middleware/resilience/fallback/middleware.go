// Package fallback provides failover middleware that redirects model calls
// to a secondary client when the primary is unavailable.
package fallback

import (
	"context"
	"errors"
	"fmt"

	"agentrunner/pkg/llm"
	"agentrunner/pkg/llmerrors"
	"agentrunner/pkg/logx"
	"agentrunner/pkg/middleware/resilience/circuit"
)

// shouldFailOver reports whether an error from the primary justifies trying
// the fallback target: an open circuit, or retries already exhausted on a
// transient condition. Permanent caller mistakes (auth, bad prompt) fail
// identically everywhere and are not redirected.
func shouldFailOver(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var circuitErr *circuit.Error
	if errors.As(err, &circuitErr) {
		return true
	}

	return llmerrors.IsServiceUnavailable(err)
}

// Middleware returns a middleware that redirects to fallback when the
// wrapped primary client fails over. The fallback client should carry its
// own (inner) resilience chain. If the fallback also fails, the primary's
// error is returned annotated with the fallback outcome so callers see the
// original failure kind.
func Middleware(fallback llm.Client, logger *logx.Logger) llm.Middleware {
	return func(next llm.Client) llm.Client {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				resp, primaryErr := next.Complete(ctx, req)
				if primaryErr == nil || fallback == nil || !shouldFailOver(primaryErr) {
					return resp, primaryErr //nolint:wrapcheck // Middleware passes errors through unchanged
				}

				if logger != nil {
					logger.Warn("primary model %s unavailable, failing over to %s: %v",
						next.ModelName(), fallback.ModelName(), primaryErr)
				}

				resp, fallbackErr := fallback.Complete(ctx, req)
				if fallbackErr == nil {
					return resp, nil
				}

				return llm.CompletionResponse{}, fmt.Errorf("fallback to %s attempted and failed (%v): %w",
					fallback.ModelName(), fallbackErr, primaryErr)
			},
			func() string {
				return next.ModelName()
			},
		)
	}
}
