package parser

import "testing"

func TestParseFinalAnswer(t *testing.T) {
	d := Parse("Thought: I know the result now.\nFinal Answer: The result is 4.")
	if d.Kind != KindFinalAnswer {
		t.Fatalf("expected final-answer decision, got %s", d.Kind)
	}
	if d.Answer != "The result is 4." {
		t.Errorf("expected answer %q, got %q", "The result is 4.", d.Answer)
	}
}

func TestParseAction(t *testing.T) {
	d := Parse("Thought: I should calculate.\nAction: calculator\nAction Input: {\"expr\":\"2+2\"}")
	if d.Kind != KindAction {
		t.Fatalf("expected action decision, got %s", d.Kind)
	}
	if d.Action.Name != "calculator" {
		t.Errorf("expected tool name calculator, got %q", d.Action.Name)
	}
	if expr, ok := d.Action.Args["expr"].(string); !ok || expr != "2+2" {
		t.Errorf("expected expr argument 2+2, got %v", d.Action.Args["expr"])
	}
}

func TestParseFinalAnswerPrecedence(t *testing.T) {
	// When both markers appear, the final answer wins and the loop ends.
	text := "Action: calculator\nAction Input: {\"expr\":\"2+2\"}\nFinal Answer: done"
	d := Parse(text)
	if d.Kind != KindFinalAnswer {
		t.Fatalf("expected final-answer decision, got %s", d.Kind)
	}
	if d.Answer != "done" {
		t.Errorf("expected answer %q, got %q", "done", d.Answer)
	}
}

func TestParseMalformed(t *testing.T) {
	d := Parse("I am not sure what to do next.")
	if d.Kind != KindMalformed {
		t.Fatalf("expected malformed decision, got %s", d.Kind)
	}
	if d.Reason == "" {
		t.Error("expected a reason for the malformed decision")
	}
}

func TestParseActionMissingName(t *testing.T) {
	d := Parse("Action:\nAction Input: {}")
	if d.Kind != KindMalformed {
		t.Fatalf("expected malformed decision for empty tool name, got %s", d.Kind)
	}
}

func TestParseActionNoInput(t *testing.T) {
	d := Parse("Action: web_fetch")
	if d.Kind != KindAction {
		t.Fatalf("expected action decision, got %s", d.Kind)
	}
	if len(d.Action.Args) != 0 {
		t.Errorf("expected empty args, got %v", d.Action.Args)
	}
}

func TestParseActionInvalidJSONFallback(t *testing.T) {
	d := Parse("Action: calculator\nAction Input: 2+2")
	if d.Kind != KindAction {
		t.Fatalf("expected action decision, got %s", d.Kind)
	}
	if input, ok := d.Action.Args["input"].(string); !ok || input != "2+2" {
		t.Errorf("expected raw payload as input argument, got %v", d.Action.Args)
	}
}

func TestParseActionQuotedName(t *testing.T) {
	d := Parse("Action: `calculator`\nAction Input: {\"expr\":\"1+1\"}")
	if d.Kind != KindAction {
		t.Fatalf("expected action decision, got %s", d.Kind)
	}
	if d.Action.Name != "calculator" {
		t.Errorf("expected cleaned tool name calculator, got %q", d.Action.Name)
	}
}

func TestParseActionFencedInput(t *testing.T) {
	text := "Action: calculator\nAction Input: ```json\n{\"expr\":\"3*3\"}\n```"
	d := Parse(text)
	if d.Kind != KindAction {
		t.Fatalf("expected action decision, got %s", d.Kind)
	}
	if expr, ok := d.Action.Args["expr"].(string); !ok || expr != "3*3" {
		t.Errorf("expected expr argument 3*3, got %v", d.Action.Args)
	}
}

func TestParseActionBareStringInput(t *testing.T) {
	d := Parse("Action: web_fetch\nAction Input: \"https://example.com\"")
	if d.Kind != KindAction {
		t.Fatalf("expected action decision, got %s", d.Kind)
	}
	if input, ok := d.Action.Args["input"].(string); !ok || input != "https://example.com" {
		t.Errorf("expected bare string as input argument, got %v", d.Action.Args)
	}
}
