// Package parser extracts structured decisions from free-text model output.
//
// Models following the reasoning/acting protocol emit either a terminal
// answer marker or an action marker with a structured input payload. The
// parser tolerates common formatting drift (markdown fences, stray
// whitespace, non-JSON payloads) rather than failing the loop on minor
// deviations.
package parser

import (
	"encoding/json"
	"strings"
)

// Markers recognized in model output.
const (
	FinalAnswerMarker = "Final Answer:"
	ActionMarker      = "Action:"
	ActionInputMarker = "Action Input:"
)

// DecisionKind discriminates the parsed decision variants.
type DecisionKind int

const (
	// KindFinalAnswer means the model produced a terminal answer.
	KindFinalAnswer DecisionKind = iota
	// KindAction means the model requested a tool invocation.
	KindAction
	// KindMalformed means no recognized marker was found.
	KindMalformed
)

// String returns the decision kind as a string.
func (k DecisionKind) String() string {
	switch k {
	case KindFinalAnswer:
		return "final_answer"
	case KindAction:
		return "action"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Decision is the structured interpretation of one model response.
// Exactly one of Answer or Action is meaningful depending on Kind;
// Reason is set only for malformed decisions.
type Decision struct {
	Answer string
	Action *Action
	Reason string
	Kind   DecisionKind
}

// Action is a requested tool invocation parsed from model output.
type Action struct {
	Args map[string]any
	Name string
}

// Parse converts a model's free-text response into a Decision.
//
// The final-answer marker takes precedence over the action marker when
// both appear; everything after the first final-answer marker is the
// answer. Otherwise the tool name is the token between the action marker
// and end of line, and the argument payload is parsed as JSON between
// the action-input marker and the next marker or end of text. A payload
// that is not valid JSON becomes a single "input" argument so small
// formatting drift does not crash the loop.
func Parse(text string) Decision {
	if idx := strings.Index(text, FinalAnswerMarker); idx >= 0 {
		answer := strings.TrimSpace(text[idx+len(FinalAnswerMarker):])
		return Decision{Kind: KindFinalAnswer, Answer: answer}
	}

	actionIdx := strings.Index(text, ActionMarker)
	if actionIdx < 0 {
		return Decision{
			Kind:   KindMalformed,
			Reason: "no final-answer or action marker found in response",
		}
	}

	rest := text[actionIdx+len(ActionMarker):]
	name := rest
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		name = rest[:nl]
	}
	name = cleanToolName(name)
	if name == "" {
		return Decision{
			Kind:   KindMalformed,
			Reason: "action marker present but tool name is empty",
		}
	}

	args := parseActionInput(rest)
	return Decision{Kind: KindAction, Action: &Action{Name: name, Args: args}}
}

// cleanToolName strips quoting, fencing, and trailing punctuation that
// models commonly wrap around the tool name.
func cleanToolName(raw string) string {
	name := strings.TrimSpace(raw)
	name = strings.Trim(name, "`\"'")
	// Some models emit "calculator," or "calculator." at line end.
	name = strings.TrimRight(name, ".,")
	// Take the first whitespace-delimited token.
	if fields := strings.Fields(name); len(fields) > 0 {
		name = fields[0]
	} else {
		name = ""
	}
	return name
}

// parseActionInput extracts and decodes the payload after the
// action-input marker within rest (the text following the action marker).
func parseActionInput(rest string) map[string]any {
	inputIdx := strings.Index(rest, ActionInputMarker)
	if inputIdx < 0 {
		return map[string]any{}
	}

	payload := rest[inputIdx+len(ActionInputMarker):]
	// The payload ends at the next recognized marker, if any.
	for _, marker := range []string{FinalAnswerMarker, ActionMarker} {
		if idx := strings.Index(payload, marker); idx >= 0 {
			payload = payload[:idx]
		}
	}
	payload = strings.TrimSpace(payload)
	payload = stripCodeFence(payload)

	if payload == "" {
		return map[string]any{}
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(payload), &args); err == nil {
		return args
	}

	// Not a JSON object. Accept a bare JSON string as the input value,
	// otherwise pass the raw payload through as a single argument.
	var s string
	if err := json.Unmarshal([]byte(payload), &s); err == nil {
		return map[string]any{"input": s}
	}
	return map[string]any{"input": payload}
}

// stripCodeFence removes a surrounding markdown code fence if present.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop an optional language tag on the fence line.
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		first := strings.TrimSpace(s[:nl])
		if first == "json" || first == "" {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
