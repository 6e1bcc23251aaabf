// Package toolkit provides external capabilities that can be injected
// into sandboxed code. Each tool is a named function taking keyword
// style arguments and returning a plain Go value, so results serialize
// cleanly into the vault and into model feedback.
package toolkit

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Tool is an external capability exposed to sandboxed code.
type Tool interface {
	// Name is the identifier the sandbox binds the tool under.
	Name() string

	// Description explains usage to the model.
	Description() string

	// Call invokes the tool. Arguments are plain Go values; the result
	// must be a plain Go value as well.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// Registry holds the tools available to a session. Safe for concurrent
// use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a Registry containing the given tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, tool := range tools {
		r.tools[tool.Name()] = tool
	}
	return r
}

// Register adds a tool, replacing any existing tool with the same name.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns the registered tool names, sorted.
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

// Describe returns one line per tool, for inclusion in a system prompt.
func (r *Registry) Describe() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	lines := make([]string, 0, len(names))
	for _, name := range names {
		tool := r.tools[name]
		lines = append(lines, fmt.Sprintf("%s: %s", tool.Name(), tool.Description()))
	}
	return lines
}
