package metrics

import (
	"context"
	"errors"
	"time"

	"agentrunner/pkg/llm"
	"agentrunner/pkg/llmerrors"
	"agentrunner/pkg/logx"
	"agentrunner/pkg/middleware/resilience/circuit"
	"agentrunner/pkg/utils"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// UsageExtractor extracts token usage from a request and response.
type UsageExtractor func(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int)

// DefaultUsageExtractor counts tokens with the tiktoken codec.
func DefaultUsageExtractor(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int) {
	var promptText string
	for i := range req.Messages {
		promptText += req.Messages[i].Content + "\n"
	}
	promptTokens = utils.CountTokensSimple(promptText)
	completionTokens = utils.CountTokensSimple(resp.Content)
	return promptTokens, completionTokens
}

// Middleware returns a middleware function that records metrics for model
// calls: latency, token usage, success/failure rates, and error types.
func Middleware(recorder Recorder, usageExtractor UsageExtractor, logger *logx.Logger) llm.Middleware {
	if usageExtractor == nil {
		usageExtractor = DefaultUsageExtractor
	}

	return func(next llm.Client) llm.Client {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()

				resp, err := next.Complete(ctx, req)
				duration := time.Since(start)

				var promptTokens, completionTokens int
				if err == nil {
					promptTokens, completionTokens = usageExtractor(req, resp)
				}

				errorType := ""
				if err != nil {
					errorType = classifyErrorType(err)
				}

				taskID := TaskIDFrom(ctx)
				recorder.ObserveModelRequest(
					next.ModelName(),
					taskID,
					promptTokens,
					completionTokens,
					err == nil,
					errorType,
					duration,
				)

				if logger != nil {
					status := statusSuccess
					if err != nil {
						status = statusError
					}
					logger.Debug("model request: model=%s task=%s tokens=%d+%d status=%s duration=%dms",
						next.ModelName(), taskID, promptTokens, completionTokens, status, duration.Milliseconds())
				}

				return resp, err //nolint:wrapcheck // Middleware passes errors through unchanged
			},
			func() string {
				return next.ModelName()
			},
		)
	}
}

// classifyErrorType maps errors to metric label values.
func classifyErrorType(err error) string {
	if err == nil {
		return ""
	}

	var circuitErr *circuit.Error
	if errors.As(err, &circuitErr) {
		return "circuit_breaker"
	}

	var llmErr *llmerrors.Error
	if errors.As(err, &llmErr) {
		return llmErr.Type.String()
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "unknown"
	}
}
