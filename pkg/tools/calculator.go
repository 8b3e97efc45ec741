package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ToolCalculator is the constant name for the calculator tool.
const ToolCalculator = "calculator"

// CalculatorTool evaluates arithmetic expressions. Models are unreliable
// at arithmetic, so the loop delegates it to a deterministic evaluator.
type CalculatorTool struct{}

// NewCalculatorTool creates a new calculator tool.
func NewCalculatorTool() *CalculatorTool {
	return &CalculatorTool{}
}

// Name returns the tool name.
func (t *CalculatorTool) Name() string {
	return ToolCalculator
}

// PromptDocumentation returns formatted tool documentation for prompts.
func (t *CalculatorTool) PromptDocumentation() string {
	return `- **calculator** - Evaluate an arithmetic expression
  - Parameters: expr (string, REQUIRED)
  - Supports + - * / with parentheses and decimal numbers
  - Example: {"expr": "2+2"} returns 4`
}

// Definition returns the tool definition for the model.
func (t *CalculatorTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolCalculator,
		Description: "Evaluate an arithmetic expression. Supports addition, subtraction, multiplication, division, and parentheses.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"expr": {
					Type:        "string",
					Description: "Arithmetic expression to evaluate (e.g., '2+2' or '(3.5*2)/7')",
				},
			},
			Required: []string{"expr"},
		},
	}
}

// Exec evaluates the expression and returns the result as plain text.
func (t *CalculatorTool) Exec(_ context.Context, args map[string]any) (*ExecResult, error) {
	expr, ok := args["expr"].(string)
	if !ok || strings.TrimSpace(expr) == "" {
		// The parser's non-JSON fallback puts the payload under "input".
		if fallback, fbOK := args["input"].(string); fbOK && strings.TrimSpace(fallback) != "" {
			expr = fallback
		} else {
			return nil, fmt.Errorf("expr is required and must be a string")
		}
	}

	value, err := evalExpression(expr)
	if err != nil {
		return nil, fmt.Errorf("cannot evaluate %q: %w", expr, err)
	}
	return &ExecResult{Content: strconv.FormatFloat(value, 'f', -1, 64)}, nil
}

// exprParser is a recursive descent parser over a byte cursor.
// Grammar: expr = term (('+'|'-') term)*; term = unary (('*'|'/') unary)*;
// unary = '-' unary | primary; primary = number | '(' expr ')'.
type exprParser struct {
	input string
	pos   int
}

func evalExpression(input string) (float64, error) {
	p := &exprParser{input: input}
	value, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	return value, nil
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch p.peek() {
		case '+':
			p.pos++
			right, termErr := p.parseTerm()
			if termErr != nil {
				return 0, termErr
			}
			left += right
		case '-':
			p.pos++
			right, termErr := p.parseTerm()
			if termErr != nil {
				return 0, termErr
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch p.peek() {
		case '*':
			p.pos++
			right, unaryErr := p.parseUnary()
			if unaryErr != nil {
				return 0, unaryErr
			}
			left *= right
		case '/':
			p.pos++
			right, unaryErr := p.parseUnary()
			if unaryErr != nil {
				return 0, unaryErr
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseUnary() (float64, error) {
	p.skipSpaces()
	if p.peek() == '-' {
		p.pos++
		value, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -value, nil
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (float64, error) {
	p.skipSpaces()

	if p.peek() == '(' {
		p.pos++
		value, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis at position %d", p.pos)
		}
		p.pos++
		return value, nil
	}

	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c >= '0' && c <= '9') || c == '.' {
			p.pos++
		} else {
			break
		}
	}
	if start == p.pos {
		if p.pos >= len(p.input) {
			return 0, fmt.Errorf("unexpected end of expression")
		}
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}

	value, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", p.input[start:p.pos])
	}
	return value, nil
}

func (p *exprParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}
