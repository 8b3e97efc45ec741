package llmerrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errorType ErrorType
		want      bool
	}{
		{ErrorTypeRateLimit, true},
		{ErrorTypeTransient, true},
		{ErrorTypeEmptyResponse, true},
		{ErrorTypeUnknown, true},
		{ErrorTypeAuth, false},
		{ErrorTypeBadPrompt, false},
		{ErrorTypeServiceUnavailable, false},
	}

	for _, tt := range tests {
		err := NewError(tt.errorType, "test")
		if got := err.IsRetryable(); got != tt.want {
			t.Errorf("%s: IsRetryable() = %v, want %v", tt.errorType, got, tt.want)
		}
	}
}

func TestIsAndTypeOf(t *testing.T) {
	raw := fmt.Errorf("plain error")
	classified := NewErrorWithCause(ErrorTypeRateLimit, raw, "slow down")
	wrapped := fmt.Errorf("request failed: %w", classified)

	if !Is(wrapped, ErrorTypeRateLimit) {
		t.Error("Is should see through wrapping")
	}
	if Is(raw, ErrorTypeRateLimit) {
		t.Error("unclassified errors match no type")
	}
	if TypeOf(wrapped) != ErrorTypeRateLimit {
		t.Errorf("TypeOf(wrapped) = %s", TypeOf(wrapped))
	}
	if TypeOf(raw) != ErrorTypeUnknown {
		t.Errorf("TypeOf(raw) = %s", TypeOf(raw))
	}
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := NewErrorWithCause(ErrorTypeTransient, cause, "transient failure")
	if !errors.Is(err, cause) {
		t.Error("classified errors should unwrap to their cause")
	}
}

func TestServiceUnavailable(t *testing.T) {
	cause := fmt.Errorf("timeout")
	err := NewServiceUnavailableError(cause, 3)

	if !IsServiceUnavailable(err) {
		t.Error("expected IsServiceUnavailable to be true")
	}
	if err.IsRetryable() {
		t.Error("service unavailable must not be retried again")
	}
	if !errors.Is(err, cause) {
		t.Error("should unwrap to the original transient error")
	}

	wrapped := fmt.Errorf("model call failed: %w", err)
	if !IsServiceUnavailable(wrapped) {
		t.Error("IsServiceUnavailable should see through wrapping")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorType
	}{
		{fmt.Errorf("429 too many requests"), ErrorTypeRateLimit},
		{fmt.Errorf("rate limit exceeded"), ErrorTypeRateLimit},
		{fmt.Errorf("context deadline exceeded"), ErrorTypeTransient},
		{fmt.Errorf("connection refused"), ErrorTypeTransient},
		{fmt.Errorf("503 service unavailable"), ErrorTypeTransient},
		{fmt.Errorf("401 unauthorized"), ErrorTypeAuth},
		{fmt.Errorf("invalid api key"), ErrorTypeAuth},
		{fmt.Errorf("400 bad request"), ErrorTypeBadPrompt},
		{fmt.Errorf("mystery"), ErrorTypeUnknown},
	}

	for _, tt := range tests {
		if got := Classify(tt.err); got.Type != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.err, got.Type, tt.want)
		}
	}

	if Classify(nil) != nil {
		t.Error("Classify(nil) should be nil")
	}

	// Already-classified errors pass through unchanged.
	original := NewError(ErrorTypeAuth, "bad key")
	if got := Classify(fmt.Errorf("wrapped: %w", original)); got != original {
		t.Error("Classify should return the existing classification")
	}
}
