package tools

import (
	"github.com/atelier-sh/atelier/internal/llm"
)

// Registry maps tool names to callable capabilities.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// NewDefaultRegistry creates a registry with the named tools enabled, or all
// tools when names is empty.
func NewDefaultRegistry(names []string, limits OutputLimits) (*Registry, error) {
	if len(names) == 0 {
		names = AllToolNames()
	}
	r := NewRegistry()
	for _, name := range names {
		if !ValidToolName(name) {
			return nil, NewToolErrorf(ErrInvalidParams, "unknown tool: %s", name)
		}
		switch name {
		case ReadToolName:
			r.Register(NewReadTool(limits))
		case WriteToolName:
			r.Register(NewWriteTool())
		case EditToolName:
			r.Register(NewEditTool())
		case MultiEditToolName:
			r.Register(NewMultiEditTool())
		case GlobToolName:
			r.Register(NewGlobTool())
		case GrepToolName:
			r.Register(NewGrepTool(limits))
		case LsToolName:
			r.Register(NewLsTool())
		case ShellToolName:
			r.Register(NewShellTool(limits))
		case ThemeToolName:
			r.Register(NewThemeTool())
		}
	}
	return r, nil
}

// Register adds a tool, keeping registration order for spec listing.
func (r *Registry) Register(tool Tool) {
	name := tool.Spec().Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// Specs returns the specs for all registered tools in registration order.
func (r *Registry) Specs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].Spec())
	}
	return specs
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
