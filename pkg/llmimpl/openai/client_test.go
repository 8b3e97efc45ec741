package openai

import (
	"testing"

	"github.com/openai/openai-go"

	"agentrunner/pkg/llmerrors"
)

func TestClassifyErrorStatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected llmerrors.ErrorType
	}{
		{"unauthorized", 401, llmerrors.ErrorTypeAuth},
		{"forbidden", 403, llmerrors.ErrorTypeAuth},
		{"rate limited", 429, llmerrors.ErrorTypeRateLimit},
		{"bad request", 400, llmerrors.ErrorTypeBadPrompt},
		{"server error", 500, llmerrors.ErrorTypeTransient},
		{"bad gateway", 502, llmerrors.ErrorTypeTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := &openai.Error{StatusCode: tt.status}
			classified := classifyError(apiErr)
			if !llmerrors.Is(classified, tt.expected) {
				t.Errorf("classifyError(status %d) type = %v, want %v", tt.status, llmerrors.TypeOf(classified), tt.expected)
			}
		})
	}
}

func TestModelName(t *testing.T) {
	c := NewClient("test-key", "")
	if c.ModelName() != DefaultModel {
		t.Errorf("expected default model, got %q", c.ModelName())
	}

	c = NewClient("test-key", "gpt-4o-mini")
	if c.ModelName() != "gpt-4o-mini" {
		t.Errorf("expected configured model, got %q", c.ModelName())
	}
}
