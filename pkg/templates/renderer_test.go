package templates

import (
	"strings"
	"testing"
)

func TestNewRenderer(t *testing.T) {
	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}
	if renderer == nil {
		t.Fatal("Expected non-nil renderer")
	}
}

func TestRenderReactTemplate(t *testing.T) {
	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}

	prompt, err := renderer.Render(ReactTemplate, &TemplateData{
		Query:             "What is 2+2?",
		ToolDocumentation: "- **calculator** - Evaluate an arithmetic expression",
		ToolNames:         JoinToolNames([]string{"calculator", "web_fetch"}),
	})
	if err != nil {
		t.Fatalf("Failed to render: %v", err)
	}

	for _, want := range []string{
		"Question: What is 2+2?",
		"calculator, web_fetch",
		"Final Answer:",
		"Action Input:",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("rendered prompt missing %q", want)
		}
	}
}

func TestRenderIncludesTranscript(t *testing.T) {
	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}

	history := "Action: calculator\nAction Input: {\"expr\":\"2+2\"}\nObservation: 4\n"
	prompt, err := renderer.Render(ReactTemplate, &TemplateData{
		Query:      "What is 2+2?",
		ToolNames:  "calculator",
		Transcript: history,
	})
	if err != nil {
		t.Fatalf("Failed to render: %v", err)
	}

	if !strings.Contains(prompt, "Observation: 4") {
		t.Error("rendered prompt should replay transcript history")
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}

	if _, err := renderer.Render("missing.tpl.md", &TemplateData{}); err == nil {
		t.Error("expected error for unknown template")
	}
}
