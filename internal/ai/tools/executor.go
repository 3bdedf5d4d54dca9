package tools

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog/log"

	"github.com/opshawk/opshawk/internal/agentexec"
	"github.com/opshawk/opshawk/internal/ai/safety"
	"github.com/opshawk/opshawk/internal/config"
)

// ContainerProvider gives tool handlers read access to the container runtime.
type ContainerProvider interface {
	ListContainers(ctx context.Context) ([]ContainerInfo, error)
	ContainerLogs(ctx context.Context, nameOrID string, lines int) (string, error)
}

// ResourceProvider gives tool handlers read access to host resource state.
type ResourceProvider interface {
	SystemResources(ctx context.Context) (SystemResources, error)
	DiskUsage(ctx context.Context) ([]DiskUsage, error)
	NetworkInterfaces(ctx context.Context) ([]NetworkInterface, error)
}

// SecurityProvider gives tool handlers access to intrusion-prevention state.
type SecurityProvider interface {
	Fail2banStatus(ctx context.Context) (Fail2banStatus, error)
}

// CommandRunner executes an allowlisted command on the host. The executor
// evaluates policy before calling it; runners never re-check.
type CommandRunner interface {
	Run(ctx context.Context, command string, args []string) (agentexec.Result, error)
}

// ExecutorConfig holds all dependencies for the tool executor
type ExecutorConfig struct {
	Containers ContainerProvider
	Resources  ResourceProvider
	Security   SecurityProvider
	Runner     CommandRunner
}

// Executor dispatches tool calls from the agent loop to registered handlers.
// It is the single error boundary: a handler error, a panic, or an unknown
// name all come back as an error result the model can read, never as a
// failure of the loop itself. Every result passes through the secret
// scrubber exactly once, here.
type Executor struct {
	containers ContainerProvider
	resources  ResourceProvider
	security   SecurityProvider
	runner     CommandRunner

	registry *ToolRegistry
}

// NewExecutor creates an executor with the built-in tools registered.
// Providers left nil disable the tools that need them at call time.
func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	e := &Executor{
		containers: cfg.Containers,
		resources:  cfg.Resources,
		security:   cfg.Security,
		runner:     cfg.Runner,
		registry:   NewToolRegistry(),
	}
	if err := e.registry.Rebuild(builtinTools(), nil); err != nil {
		return nil, err
	}
	return e, nil
}

// Registry exposes the underlying registry so the plugin loader can rebuild
// the tool set atomically.
func (e *Executor) Registry() *ToolRegistry {
	return e.registry
}

// SetPluginTools swaps the plugin-contributed tools in one registry rebuild.
// Built-in tools are always present; an invalid plugin set changes nothing.
func (e *Executor) SetPluginTools(plugin []RegisteredTool) error {
	return e.registry.Rebuild(builtinTools(), plugin)
}

// ListTools returns the tool definitions advertised to the model,
// minus any disabled names.
func (e *Executor) ListTools(disabled []string) []Tool {
	return e.registry.Specs(disabled)
}

// ExecuteTool runs one tool call and returns its result. The returned result
// is already scrubbed of secrets and safe to hand back to the model.
func (e *Executor) ExecuteTool(ctx context.Context, name string, args map[string]interface{}, caps config.Capability) (result CallToolResult) {
	log.Debug().
		Str("tool", name).
		Interface("args", args).
		Msg("Executing tool")

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("tool", name).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Tool handler panicked")
			result = NewErrorResultf("tool %s failed: internal error", name)
		}
		result = scrubResult(result)
	}()

	tool, ok := e.registry.Lookup(name)
	if !ok {
		return NewErrorResultf("unknown tool: %s", name)
	}

	res, err := tool.Handler(ctx, e, caps, args)
	if err != nil {
		log.Debug().Err(err).Str("tool", name).Msg("Tool returned error")
		return NewErrorResult(fmt.Errorf("tool %s failed: %w", name, err))
	}
	return res
}

// scrubResult redacts secrets from every text block in a result. Handlers
// must not scrub themselves; doing it in one place keeps the guarantee that
// redaction happens exactly once per result.
func scrubResult(res CallToolResult) CallToolResult {
	for i := range res.Content {
		if res.Content[i].Type == "text" && res.Content[i].Text != "" {
			res.Content[i].Text = safety.Scrub(res.Content[i].Text)
		}
	}
	return res
}
