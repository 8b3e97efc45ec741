package utils

import (
	"strings"
	"testing"
)

func TestCountTokens(t *testing.T) {
	counter, err := NewTokenCounter()
	if err != nil {
		t.Fatalf("Failed to create token counter: %v", err)
	}

	if got := counter.CountTokens(""); got != 0 {
		t.Errorf("empty string should count 0 tokens, got %d", got)
	}

	count := counter.CountTokens("The quick brown fox jumps over the lazy dog.")
	if count < 5 || count > 20 {
		t.Errorf("unexpected token count %d for short sentence", count)
	}
}

func TestCountTokensFallback(t *testing.T) {
	counter := &TokenCounter{}

	if got := counter.CountTokens("12345678"); got != 2 {
		t.Errorf("fallback should estimate 4 chars per token, got %d", got)
	}
}

func TestTruncateToTokenLimit(t *testing.T) {
	counter, err := NewTokenCounter()
	if err != nil {
		t.Fatalf("Failed to create token counter: %v", err)
	}

	short := "hello world"
	if got := counter.TruncateToTokenLimit(short, 100); got != short {
		t.Errorf("text under the limit must pass through unchanged")
	}

	long := strings.Repeat("lorem ipsum dolor sit amet ", 200)
	truncated := counter.TruncateToTokenLimit(long, 50)
	if len(truncated) >= len(long) {
		t.Error("text over the limit should shrink")
	}
	if !strings.HasSuffix(truncated, "...") {
		t.Error("truncated text should end with ellipsis")
	}
	if counter.CountTokens(truncated) > 60 {
		t.Errorf("truncated text still well over limit: %d tokens", counter.CountTokens(truncated))
	}
}

func TestCountTokensSimple(t *testing.T) {
	if got := CountTokensSimple("hello world"); got < 1 {
		t.Errorf("expected at least 1 token, got %d", got)
	}
}

func TestTruncateToTokenLimitSimple(t *testing.T) {
	short := "hello world"
	if got := TruncateToTokenLimitSimple(short, 100); got != short {
		t.Error("text under the limit must pass through unchanged")
	}

	long := strings.Repeat("lorem ipsum dolor sit amet ", 200)
	truncated := TruncateToTokenLimitSimple(long, 50)
	if len(truncated) >= len(long) || !strings.HasSuffix(truncated, "...") {
		t.Errorf("expected shrunk text with ellipsis, got %d chars", len(truncated))
	}
}
