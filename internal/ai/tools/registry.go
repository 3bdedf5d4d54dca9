package tools

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/opshawk/opshawk/internal/config"
)

// ToolHandler executes one tool call. Handlers never see raw model output;
// the executor validates the name and scrubs the result before it leaves.
type ToolHandler func(ctx context.Context, e *Executor, caps config.Capability, args map[string]interface{}) (CallToolResult, error)

// RegisteredTool binds a tool definition to its handler
type RegisteredTool struct {
	Definition Tool
	Handler    ToolHandler
}

// registrySnapshot is an immutable view of the registered tool set. Readers
// load it without locking; Rebuild swaps in a fully built replacement.
type registrySnapshot struct {
	order []string
	tools map[string]RegisteredTool
}

// ToolRegistry holds the current tool set behind an atomic pointer so that
// concurrent lookups during a plugin reload always see either the old set or
// the new set, never a partial one.
type ToolRegistry struct {
	snap atomic.Pointer[registrySnapshot]
}

// NewToolRegistry creates an empty registry
func NewToolRegistry() *ToolRegistry {
	r := &ToolRegistry{}
	r.snap.Store(&registrySnapshot{tools: map[string]RegisteredTool{}})
	return r
}

// Rebuild replaces the whole tool set in one swap. Built-in tools use bare
// names; plugin tools must be namespaced and may not shadow a built-in
// segment. Any validation failure leaves the previous set untouched.
func (r *ToolRegistry) Rebuild(builtin, plugin []RegisteredTool) error {
	next := &registrySnapshot{
		order: make([]string, 0, len(builtin)+len(plugin)),
		tools: make(map[string]RegisteredTool, len(builtin)+len(plugin)),
	}

	for _, t := range builtin {
		name := t.Definition.Name
		if err := ValidateToolName(name); err != nil {
			return err
		}
		if IsNamespaced(name) {
			return fmt.Errorf("built-in tool %q must not carry a namespace", name)
		}
		if err := next.add(t); err != nil {
			return err
		}
	}

	for _, t := range plugin {
		name := t.Definition.Name
		if err := ValidateToolName(name); err != nil {
			return err
		}
		if !IsNamespaced(name) {
			return fmt.Errorf("plugin tool %q must be namespaced as plugin:tool", name)
		}
		if err := next.add(t); err != nil {
			return err
		}
	}

	r.snap.Store(next)
	log.Debug().Int("builtin", len(builtin)).Int("plugin", len(plugin)).Msg("Tool registry rebuilt")
	return nil
}

func (s *registrySnapshot) add(t RegisteredTool) error {
	name := t.Definition.Name
	if t.Handler == nil {
		return fmt.Errorf("tool %q has no handler", name)
	}
	if _, exists := s.tools[name]; exists {
		return fmt.Errorf("duplicate tool name %q", name)
	}
	s.tools[name] = t
	s.order = append(s.order, name)
	return nil
}

// Lookup returns the tool registered under name
func (r *ToolRegistry) Lookup(name string) (RegisteredTool, bool) {
	t, ok := r.snap.Load().tools[name]
	return t, ok
}

// Specs returns the tool definitions in registration order, skipping any
// names in disabled. This is what gets advertised to the model.
func (r *ToolRegistry) Specs(disabled []string) []Tool {
	snap := r.snap.Load()
	skip := make(map[string]struct{}, len(disabled))
	for _, name := range disabled {
		skip[name] = struct{}{}
	}
	specs := make([]Tool, 0, len(snap.order))
	for _, name := range snap.order {
		if _, off := skip[name]; off {
			continue
		}
		specs = append(specs, snap.tools[name].Definition)
	}
	return specs
}

// Len returns the number of registered tools
func (r *ToolRegistry) Len() int {
	return len(r.snap.Load().order)
}
