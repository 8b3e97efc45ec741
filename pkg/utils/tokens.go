// Package utils provides tiktoken-based token counting utilities.
package utils

import (
	"fmt"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter provides token counting for context-budget decisions.
// All supported chat models are approximated with the GPT-4 encoding.
type TokenCounter struct {
	codec tokenizer.Codec
}

// NewTokenCounter creates a new token counter.
func NewTokenCounter() (*TokenCounter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer codec: %w", err)
	}
	return &TokenCounter{codec: codec}, nil
}

// CountTokens returns the number of tokens in the given text.
// Falls back to character-based estimation (4 chars per token) on error.
func (tc *TokenCounter) CountTokens(text string) int {
	if tc.codec == nil {
		return len(text) / 4
	}

	count, err := tc.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return count
}

// TruncateToTokenLimit truncates text to fit within the specified token
// limit. Rough approximation: truncates by characters, not exact token
// boundaries.
func (tc *TokenCounter) TruncateToTokenLimit(text string, limit int) string {
	currentTokens := tc.CountTokens(text)
	if currentTokens <= limit {
		return text
	}

	ratio := float64(limit) / float64(currentTokens)
	charLimit := int(float64(len(text)) * ratio * 0.9) // 0.9 safety margin
	if charLimit >= len(text) {
		return text
	}
	return text[:charLimit] + "..."
}

//nolint:gochecknoglobals // Shared codec avoids re-initializing per call
var (
	sharedCounter     *TokenCounter
	sharedCounterOnce sync.Once
)

// CountTokensSimple counts tokens without requiring a TokenCounter instance.
func CountTokensSimple(text string) int {
	if c := shared(); c != nil {
		return c.CountTokens(text)
	}
	return len(text) / 4
}

// TruncateToTokenLimitSimple truncates text to the token limit without
// requiring a TokenCounter instance.
func TruncateToTokenLimitSimple(text string, limit int) string {
	if c := shared(); c != nil {
		return c.TruncateToTokenLimit(text, limit)
	}
	return (&TokenCounter{}).TruncateToTokenLimit(text, limit)
}

func shared() *TokenCounter {
	sharedCounterOnce.Do(func() {
		counter, err := NewTokenCounter()
		if err == nil {
			sharedCounter = counter
		}
	})
	return sharedCounter
}
