package tools

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrDuplicateTool is returned when a name is registered twice.
	// Registration errors are startup misuse and should be fatal.
	ErrDuplicateTool = errors.New("tool already registered")
	// ErrUnknownTool is returned by Lookup for an absent name.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrEmptyToolName is returned when a definition has no name.
	ErrEmptyToolName = errors.New("tool name is empty")
	// ErrNilHandler is returned when a definition has no handler.
	ErrNilHandler = errors.New("tool handler is nil")
)

// Registry stores tool definitions by name. It is populated once at
// startup and read-only afterwards; classification (safe vs sensitive)
// is fixed at registration.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]*Definition
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds a tool definition. Fails on duplicate names, empty
// names, and nil handlers.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return ErrEmptyToolName
	}
	if def.Handler == nil {
		return fmt.Errorf("%w: %q", ErrNilHandler, def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTool, def.Name)
	}
	d := def
	r.defs[def.Name] = &d
	r.order = append(r.order, def.Name)
	return nil
}

// Lookup returns the definition for a name, or ErrUnknownTool.
func (r *Registry) Lookup(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return def, nil
}

// IsSensitive reports whether a tool requires approval before
// execution. Unknown names are not sensitive; the executor reports
// them to the model as errors instead.
func (r *Registry) IsSensitive(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return ok && def.Sensitive
}

// Definitions returns all registered tools in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.defs[name])
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}
