// Package metrics provides services for querying and aggregating task
// metrics from Prometheus.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// TaskMetrics represents aggregated metrics for one task run.
type TaskMetrics struct {
	TaskID           string  `json:"task_id"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	Steps            int64   `json:"steps"`
	ModelRequests    int64   `json:"model_requests"`
	AvgStepSeconds   float64 `json:"avg_step_seconds"`
}

// QueryService provides methods to query task metrics from Prometheus.
type QueryService struct {
	client   api.Client
	queryAPI v1.API
}

// NewQueryService creates a metrics query service for the given
// Prometheus address.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return &QueryService{
		client:   client,
		queryAPI: v1.NewAPI(client),
	}, nil
}

// GetTaskMetrics retrieves aggregated token and step metrics for one
// task. Absent series count as zero.
func (q *QueryService) GetTaskMetrics(ctx context.Context, taskID string) (*TaskMetrics, error) {
	metrics := &TaskMetrics{
		TaskID: taskID,
	}

	promptTokens, err := q.scalarQuery(ctx, fmt.Sprintf(`sum(llm_tokens_total{task_id=%q, type="prompt"})`, taskID))
	if err != nil {
		return nil, fmt.Errorf("failed to query prompt tokens: %w", err)
	}
	metrics.PromptTokens = int64(promptTokens)

	completionTokens, err := q.scalarQuery(ctx, fmt.Sprintf(`sum(llm_tokens_total{task_id=%q, type="completion"})`, taskID))
	if err != nil {
		return nil, fmt.Errorf("failed to query completion tokens: %w", err)
	}
	metrics.CompletionTokens = int64(completionTokens)
	metrics.TotalTokens = metrics.PromptTokens + metrics.CompletionTokens

	steps, err := q.scalarQuery(ctx, fmt.Sprintf(`sum(agent_steps_total{task_id=%q})`, taskID))
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	metrics.Steps = int64(steps)

	requests, err := q.scalarQuery(ctx, fmt.Sprintf(`sum(llm_requests_total{task_id=%q})`, taskID))
	if err != nil {
		return nil, fmt.Errorf("failed to query model requests: %w", err)
	}
	metrics.ModelRequests = int64(requests)

	durationSum, err := q.scalarQuery(ctx, fmt.Sprintf(`sum(agent_step_duration_seconds_sum{task_id=%q})`, taskID))
	if err != nil {
		return nil, fmt.Errorf("failed to query step durations: %w", err)
	}
	if metrics.Steps > 0 {
		metrics.AvgStepSeconds = durationSum / float64(metrics.Steps)
	}

	return metrics, nil
}

// GetStepOutcomes returns step counts per outcome for one task.
func (q *QueryService) GetStepOutcomes(ctx context.Context, taskID string) (map[string]int64, error) {
	query := fmt.Sprintf(`sum by (outcome) (agent_steps_total{task_id=%q})`, taskID)
	result, _, err := q.queryAPI.Query(ctx, query, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query step outcomes: %w", err)
	}

	outcomes := make(map[string]int64)
	if vector, ok := result.(model.Vector); ok {
		for _, sample := range vector {
			if outcome, ok := sample.Metric["outcome"]; ok {
				outcomes[string(outcome)] = int64(sample.Value)
			}
		}
	}
	return outcomes, nil
}

// GetAttemptsByTarget returns underlying call attempts per retry target
// (model and tool names) across all tasks.
func (q *QueryService) GetAttemptsByTarget(ctx context.Context) (map[string]int64, error) {
	result, _, err := q.queryAPI.Query(ctx, `sum by (target) (resilient_call_attempts_total)`, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query call attempts: %w", err)
	}

	attempts := make(map[string]int64)
	if vector, ok := result.(model.Vector); ok {
		for _, sample := range vector {
			if target, ok := sample.Metric["target"]; ok {
				attempts[string(target)] = int64(sample.Value)
			}
		}
	}
	return attempts, nil
}

func (q *QueryService) scalarQuery(ctx context.Context, query string) (float64, error) {
	result, _, err := q.queryAPI.Query(ctx, query, time.Now())
	if err != nil {
		return 0, err
	}
	if vector, ok := result.(model.Vector); ok && len(vector) > 0 {
		return float64(vector[0].Value), nil
	}
	return 0, nil
}
