package tools

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry holds the set of tools available to a task. It is populated at
// startup and read-only afterwards; concurrent tasks share one registry.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry. Registering a name twice fails
// with ErrDuplicateTool.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool '%s' already registered: %w", name, ErrDuplicateTool)
	}
	r.tools[name] = tool
	return nil
}

// MustRegister is like Register but panics on error. Use during startup
// wiring where a duplicate name is a programming mistake.
func (r *Registry) MustRegister(tool Tool) {
	if err := r.Register(tool); err != nil {
		panic(err)
	}
}

// Get retrieves a tool by name, failing with ErrUnknownTool if absent.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool '%s' is not registered: %w", name, ErrUnknownTool)
	}
	return tool, nil
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns the definitions of all registered tools, sorted by name.
func (r *Registry) List() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, tool.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Subset returns a new registry containing only the named tools. Names
// absent from the receiver are skipped. An empty allowlist means no
// restriction and the receiver itself is returned.
func (r *Registry) Subset(allowed []string) *Registry {
	if len(allowed) == 0 {
		return r
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	sub := NewRegistry()
	for _, name := range allowed {
		if tool, ok := r.tools[name]; ok {
			sub.tools[name] = tool
		}
	}
	return sub
}

// Documentation generates the tool documentation block rendered into the
// model's prompt.
func (r *Registry) Documentation() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.tools) == 0 {
		return "No tools available"
	}

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	var doc strings.Builder
	for i, name := range names {
		if i > 0 {
			doc.WriteString("\n")
		}
		doc.WriteString(r.tools[name].PromptDocumentation())
		doc.WriteString("\n")
	}
	return doc.String()
}
