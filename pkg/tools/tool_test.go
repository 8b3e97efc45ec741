package tools

import (
	"errors"
	"strings"
	"testing"
)

func sampleSchema() InputSchema {
	return InputSchema{
		Type: "object",
		Properties: map[string]Property{
			"expr":  {Type: "string"},
			"count": {Type: "integer"},
			"mode":  {Type: "string", Enum: []string{"fast", "slow"}},
			"tags":  {Type: "array", Items: &Property{Type: "string"}},
		},
		Required: []string{"expr"},
	}
}

func TestValidateArgsSuccess(t *testing.T) {
	args := map[string]any{
		"expr":  "2+2",
		"count": float64(3), // JSON numbers decode as float64
		"mode":  "fast",
		"tags":  []any{"a", "b"},
	}
	if err := ValidateArgs("calculator", sampleSchema(), args); err != nil {
		t.Errorf("expected valid args, got %v", err)
	}
}

func TestValidateArgsMissingRequired(t *testing.T) {
	err := ValidateArgs("calculator", sampleSchema(), map[string]any{"count": 1})
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if schemaErr.Field != "expr" {
		t.Errorf("expected offending field expr, got %q", schemaErr.Field)
	}
}

func TestValidateArgsTypeMismatch(t *testing.T) {
	err := ValidateArgs("calculator", sampleSchema(), map[string]any{"expr": 42})
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if schemaErr.Field != "expr" {
		t.Errorf("expected offending field expr, got %q", schemaErr.Field)
	}
	if !strings.Contains(schemaErr.Error(), "expr") {
		t.Errorf("error message should name the field: %s", schemaErr.Error())
	}
}

func TestValidateArgsFractionalInteger(t *testing.T) {
	err := ValidateArgs("calculator", sampleSchema(), map[string]any{"expr": "1", "count": 1.5})
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError for fractional integer, got %v", err)
	}
	if schemaErr.Field != "count" {
		t.Errorf("expected offending field count, got %q", schemaErr.Field)
	}
}

func TestValidateArgsEnumViolation(t *testing.T) {
	err := ValidateArgs("calculator", sampleSchema(), map[string]any{"expr": "1", "mode": "turbo"})
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError for enum violation, got %v", err)
	}
	if schemaErr.Field != "mode" {
		t.Errorf("expected offending field mode, got %q", schemaErr.Field)
	}
}

func TestValidateArgsExtraArgumentsTolerated(t *testing.T) {
	args := map[string]any{"expr": "1", "unexpected": true}
	if err := ValidateArgs("calculator", sampleSchema(), args); err != nil {
		t.Errorf("extra arguments should be tolerated, got %v", err)
	}
}
