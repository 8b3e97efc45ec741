// Package tools provides the tool registry, schema validation, dispatch,
// and the built-in tool implementations.
package tools

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for registration and lookup.
var (
	// ErrDuplicateTool indicates a registration under a name already taken.
	ErrDuplicateTool = errors.New("duplicate tool")
	// ErrUnknownTool indicates a lookup or dispatch for an unregistered name.
	ErrUnknownTool = errors.New("unknown tool")
)

// Tool is an externally invokable capability with a declared input schema.
type Tool interface {
	// Name returns the unique tool name used in model output.
	Name() string
	// Definition returns the tool definition shown to the model.
	Definition() ToolDefinition
	// PromptDocumentation returns formatted tool documentation for prompts.
	PromptDocumentation() string
	// Exec executes the tool with validated arguments.
	Exec(ctx context.Context, args map[string]any) (*ExecResult, error)
}

// ExecResult is the payload a tool returns on completion.
type ExecResult struct {
	Content string
}

// ToolDefinition describes a tool to the model.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema InputSchema
}

// InputSchema declares a tool's named, typed parameters.
type InputSchema struct {
	Properties map[string]Property
	Type       string
	Required   []string
}

// Property describes one parameter in an input schema.
type Property struct {
	Items       *Property
	Type        string
	Description string
	Enum        []string
}

// SchemaError reports an argument that failed validation against a tool's
// declared schema. It names the offending field so the model can correct
// itself on the next step.
type SchemaError struct {
	Tool   string
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("tool '%s' argument '%s': %s", e.Tool, e.Field, e.Reason)
}

// ValidateArgs checks args against the schema: every required parameter
// must be present, and every provided value must match its declared type.
// Extra arguments not in the schema are tolerated.
func ValidateArgs(toolName string, schema InputSchema, args map[string]any) error {
	for _, required := range schema.Required {
		if _, ok := args[required]; !ok {
			return &SchemaError{
				Tool:   toolName,
				Field:  required,
				Reason: "required argument is missing",
			}
		}
	}

	for name, value := range args {
		prop, declared := schema.Properties[name]
		if !declared {
			continue
		}
		if value == nil {
			continue
		}
		if err := checkType(toolName, name, &prop, value); err != nil {
			return err
		}
	}

	return nil
}

// checkType validates one argument value against its declared property.
// JSON unmarshalling produces float64 for all numbers, so integer checks
// accept float64 values with no fractional part.
func checkType(toolName, field string, prop *Property, value any) error {
	switch prop.Type {
	case "string":
		s, ok := value.(string)
		if !ok {
			return typeMismatch(toolName, field, "string", value)
		}
		if len(prop.Enum) > 0 && !contains(prop.Enum, s) {
			return &SchemaError{
				Tool:   toolName,
				Field:  field,
				Reason: fmt.Sprintf("value %q is not one of %v", s, prop.Enum),
			}
		}
	case "integer":
		switch v := value.(type) {
		case int, int64:
		case float64:
			if v != float64(int64(v)) {
				return typeMismatch(toolName, field, "integer", value)
			}
		default:
			return typeMismatch(toolName, field, "integer", value)
		}
	case "number":
		switch value.(type) {
		case int, int64, float64:
		default:
			return typeMismatch(toolName, field, "number", value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return typeMismatch(toolName, field, "boolean", value)
		}
	case "array":
		items, ok := value.([]any)
		if !ok {
			return typeMismatch(toolName, field, "array", value)
		}
		if prop.Items != nil {
			for _, item := range items {
				if err := checkType(toolName, field, prop.Items, item); err != nil {
					return err
				}
			}
		}
	case "object":
		if _, ok := value.(map[string]any); !ok {
			return typeMismatch(toolName, field, "object", value)
		}
	}
	return nil
}

func typeMismatch(toolName, field, want string, got any) error {
	return &SchemaError{
		Tool:   toolName,
		Field:  field,
		Reason: fmt.Sprintf("expected %s, got %T", want, got),
	}
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
