// Package chat implements the agentic loop that turns a user question into
// model requests, tool executions and a final answer.
package chat

import (
	"time"

	"github.com/opshawk/opshawk/internal/ai/providers"
	"github.com/opshawk/opshawk/internal/ai/tools"
	"github.com/opshawk/opshawk/internal/config"
)

// LoopConfig holds the dependencies for an AgenticLoop.
type LoopConfig struct {
	Provider providers.Provider
	Executor *tools.Executor

	// Capability bounds every tool execution and carries the per-turn
	// budgets. Zero-valued limits get conservative defaults.
	Capability config.Capability

	Model        string
	SystemPrompt string

	// MaxTokens and Temperature are passed straight through to the backend;
	// zero values leave the backend defaults in place.
	MaxTokens   int
	Temperature float64

	// DisabledTools are registered tools withheld from the model this session.
	DisabledTools []string
}

// ToolCallRecord is one executed (or budget-refused) tool call in the order
// the model issued it.
type ToolCallRecord struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Input    map[string]interface{} `json:"input,omitempty"`
	IsError  bool                   `json:"is_error,omitempty"`
	Duration time.Duration          `json:"duration"`
}

// AskResult is the outcome of one Ask: the final answer plus an audit trail
// of what the model did to get there.
type AskResult struct {
	Response     string           `json:"response"`
	ToolCalls    []ToolCallRecord `json:"tool_calls,omitempty"`
	Iterations   int              `json:"iterations"`
	InputTokens  int              `json:"input_tokens"`
	OutputTokens int              `json:"output_tokens"`
}
