package google

import (
	"testing"

	"agentrunner/pkg/llm"
)

func TestConvertMessages(t *testing.T) {
	messages := []llm.CompletionMessage{
		llm.NewSystemMessage("be terse"),
		llm.NewUserMessage("hello"),
		{Role: llm.RoleAssistant, Content: "hi"},
		llm.NewUserMessage("continue"),
	}

	contents, instruction, err := convertMessages(messages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if instruction != "be terse" {
		t.Errorf("expected system instruction extracted, got %q", instruction)
	}
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}
	if contents[0].Role != "user" {
		t.Errorf("expected user role, got %q", contents[0].Role)
	}
	if contents[1].Role != "model" {
		t.Errorf("assistant role should map to model, got %q", contents[1].Role)
	}
}

func TestConvertMessagesEmpty(t *testing.T) {
	if _, _, err := convertMessages(nil); err == nil {
		t.Error("expected error for empty message list")
	}
}

func TestModelName(t *testing.T) {
	c := NewClient("test-key", "")
	if c.ModelName() != DefaultModel {
		t.Errorf("expected default model, got %q", c.ModelName())
	}
}
