// Package templates provides template rendering for agent prompts.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed *.tpl.md
var templateFS embed.FS

// PromptTemplate identifies an embedded prompt template.
type PromptTemplate string

const (
	// ReactTemplate is the reasoning/acting prompt driving the agent loop.
	ReactTemplate PromptTemplate = "react.tpl.md"
)

// TemplateData holds the data for prompt rendering.
type TemplateData struct {
	Query             string `json:"query"`
	ToolDocumentation string `json:"tool_documentation"`
	ToolNames         string `json:"tool_names"`
	Transcript        string `json:"transcript,omitempty"`
}

// Renderer handles prompt template rendering. The agent loop treats it as
// an opaque pure function from task state to prompt text.
type Renderer struct {
	templates map[PromptTemplate]*template.Template
}

// NewRenderer creates a new template renderer with all templates parsed.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		templates: make(map[PromptTemplate]*template.Template),
	}

	for _, name := range []PromptTemplate{ReactTemplate} {
		content, err := templateFS.ReadFile(string(name))
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}

		tmpl, err := template.New(string(name)).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.templates[name] = tmpl
	}

	return r, nil
}

// Render renders the named template with the given data.
func (r *Renderer) Render(name PromptTemplate, data *TemplateData) (string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown template: %s", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.String(), nil
}

// JoinToolNames formats tool names for the prompt's action constraint line.
func JoinToolNames(names []string) string {
	return strings.Join(names, ", ")
}
