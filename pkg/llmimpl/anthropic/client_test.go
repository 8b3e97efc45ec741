package anthropic

import (
	"testing"

	"agentrunner/pkg/llm"
)

func TestEnsureAlternationExtractsSystem(t *testing.T) {
	messages := []llm.CompletionMessage{
		llm.NewSystemMessage("you are helpful"),
		llm.NewUserMessage("hello"),
	}

	system, alternating, err := ensureAlternation(messages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if system != "you are helpful" {
		t.Errorf("expected system prompt extracted, got %q", system)
	}
	if len(alternating) != 1 || alternating[0].Role != llm.RoleUser {
		t.Errorf("expected single user message, got %+v", alternating)
	}
}

func TestEnsureAlternationMergesConsecutiveUser(t *testing.T) {
	messages := []llm.CompletionMessage{
		llm.NewUserMessage("part one"),
		llm.NewUserMessage("part two"),
		{Role: llm.RoleAssistant, Content: "reply"},
		llm.NewUserMessage("part three"),
	}

	_, alternating, err := ensureAlternation(messages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alternating) != 3 {
		t.Fatalf("expected 3 merged messages, got %d", len(alternating))
	}
	if alternating[0].Content != "part one\n\npart two" {
		t.Errorf("consecutive user messages should merge, got %q", alternating[0].Content)
	}
}

func TestEnsureAlternationRejectsEmptyList(t *testing.T) {
	if _, _, err := ensureAlternation(nil); err == nil {
		t.Error("expected error for empty message list")
	}
	if _, _, err := ensureAlternation([]llm.CompletionMessage{llm.NewSystemMessage("only system")}); err == nil {
		t.Error("expected error when only system messages are present")
	}
}

func TestEnsureAlternationRejectsAssistantLast(t *testing.T) {
	messages := []llm.CompletionMessage{
		llm.NewUserMessage("hello"),
		{Role: llm.RoleAssistant, Content: "reply"},
	}
	if _, _, err := ensureAlternation(messages); err == nil {
		t.Error("expected error when the last message is not a user turn")
	}
}

func TestModelName(t *testing.T) {
	c := NewClient("test-key", "")
	if c.ModelName() != DefaultModel {
		t.Errorf("expected default model, got %q", c.ModelName())
	}

	c = NewClient("test-key", "claude-opus-4-1")
	if c.ModelName() != "claude-opus-4-1" {
		t.Errorf("expected configured model, got %q", c.ModelName())
	}
}
