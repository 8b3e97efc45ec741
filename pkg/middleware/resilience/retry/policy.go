// Package retry provides bounded retry with exponential backoff and jitter
// for resilient model and tool calls.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"time"

	"agentrunner/pkg/llmerrors"
	"agentrunner/pkg/middleware/resilience/circuit"
)

// Config defines configuration for retry behavior.
type Config struct {
	MaxAttempts   int           `yaml:"max_attempts"`   // Maximum number of attempts (including initial)
	InitialDelay  time.Duration `yaml:"initial_delay"`  // Initial delay before first retry
	MaxDelay      time.Duration `yaml:"max_delay"`      // Maximum delay between retries
	BackoffFactor float64       `yaml:"backoff_factor"` // Multiplier for exponential backoff
	Jitter        bool          `yaml:"jitter"`         // Add random jitter to prevent thundering herd
}

// DefaultConfig provides reasonable defaults for retry behavior.
//
//nolint:gochecknoglobals // Sensible default config pattern
var DefaultConfig = Config{
	MaxAttempts:   3,
	InitialDelay:  100 * time.Millisecond,
	MaxDelay:      10 * time.Second,
	BackoffFactor: 2.0,
	Jitter:        true,
}

// Classifier determines if an error should be retried.
type Classifier func(error) bool

// ShouldRetry is the default error classifier.
// Only transient conditions are retried; validation and schema mistakes are
// permanent and retrying them just burns budget.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	// Never retry caller cancellation.
	if errors.Is(err, context.Canceled) {
		return false
	}

	// Per-request timeouts wrap DeadlineExceeded but the parent context is
	// still valid, so they are retryable.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// Never retry circuit breaker rejections - the breaker owns recovery.
	var circuitErr *circuit.Error
	if errors.As(err, &circuitErr) {
		return false
	}

	// Classified errors carry their own retry decision.
	var llmErr *llmerrors.Error
	if errors.As(err, &llmErr) {
		return llmErr.IsRetryable()
	}

	// Unclassified errors: fall back to string patterns.
	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "temporary") {
		return true
	}

	if strings.Contains(errStr, "rate") || strings.Contains(errStr, "429") {
		return true
	}

	if strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") {
		return true
	}

	if strings.Contains(errStr, "400") ||
		strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "403") ||
		strings.Contains(errStr, "404") ||
		strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "invalid api key") {
		return false
	}

	// Default to not retrying unknown errors.
	return false
}

// Policy encapsulates retry configuration and logic.
type Policy struct {
	Config     Config
	Classifier Classifier
}

// NewPolicy creates a new retry policy with the given configuration and
// classifier. A nil classifier selects ShouldRetry.
func NewPolicy(config Config, classifier Classifier) *Policy {
	if classifier == nil {
		classifier = ShouldRetry
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultConfig.MaxAttempts
	}
	if config.BackoffFactor <= 0 {
		config.BackoffFactor = DefaultConfig.BackoffFactor
	}
	return &Policy{
		Config:     config,
		Classifier: classifier,
	}
}

// CalculateDelay computes the backoff delay before the given attempt number
// (1-based; attempt 1 has no delay).
func (p *Policy) CalculateDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delay := time.Duration(float64(p.Config.InitialDelay) * math.Pow(p.Config.BackoffFactor, float64(attempt-2)))

	if p.Config.MaxDelay > 0 && delay > p.Config.MaxDelay {
		delay = p.Config.MaxDelay
	}

	if p.Config.Jitter && delay > 0 {
		// +/-10% to spread concurrent retries.
		jitter := time.Duration((rand.Float64()*0.2 - 0.1) * float64(delay)) //nolint:gosec // Jitter doesn't need crypto rand
		delay += jitter
		if delay < 0 {
			delay = p.Config.InitialDelay
		}
	}

	return delay
}

// ShouldRetry determines if an error should be retried per the configured classifier.
func (p *Policy) ShouldRetry(err error) bool {
	return p.Classifier(err)
}

// Do runs fn with the policy's bounded retry and backoff. It is the shared
// execution primitive behind the model middleware and the tool dispatcher.
// The returned attempt count includes the initial call.
func (p *Policy) Do(ctx context.Context, fn func(ctx context.Context) error) (attempts int, err error) {
	var lastErr error

	for attempt := 1; attempt <= p.Config.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := p.CalculateDelay(attempt)
			if delay > 0 {
				select {
				case <-ctx.Done():
					return attempt - 1, ctx.Err() //nolint:wrapcheck // Cancellation propagates unchanged
				case <-time.After(delay):
				}
			}
		}

		attempts = attempt
		lastErr = fn(ctx)
		if lastErr == nil {
			return attempts, nil
		}

		if !p.ShouldRetry(lastErr) {
			break
		}
	}

	return attempts, lastErr
}
