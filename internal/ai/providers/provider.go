// Package providers holds the model backend clients. Both backends sit
// behind the Provider interface; the agentic loop never sees which wire
// format produced a response.
package providers

import (
	"context"
)

// Message is one transcript entry. A message carries either plain content,
// an assistant turn with tool calls attached, or a tool result bound to an
// earlier call by its ID.
type Message struct {
	Role       string      `json:"role"` // "user", "assistant", "system"
	Content    string      `json:"content"`
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// ToolCall is one tool invocation the model requested. The ID pairs the
// eventual result with the request, for both backends.
type ToolCall struct {
	ID    string                 `json:"id"`
	Name  string                 `json:"name"`
	Input map[string]interface{} `json:"input"`
}

// ToolResult carries a tool's (already scrubbed) output back to the model.
type ToolResult struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

// Tool is the backend-neutral tool advertisement: name, description and a
// JSON-Schema-shaped input description.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// ChatRequest is one round trip to the backend. MaxTokens and Temperature
// are optional; zero values keep the backend defaults.
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	System      string    `json:"system,omitempty"`
	Tools       []Tool    `json:"tools,omitempty"`
}

// ChatResponse is the backend's reply, normalized: prose in Content, any
// requested tool calls extracted into ToolCalls, token counts zero when the
// backend does not report them.
type ChatResponse struct {
	Content      string     `json:"content"`
	Model        string     `json:"model"`
	StopReason   string     `json:"stop_reason,omitempty"` // "end_turn", "tool_use"
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	InputTokens  int        `json:"input_tokens,omitempty"`
	OutputTokens int        `json:"output_tokens,omitempty"`
}

// Provider is a model backend.
type Provider interface {
	// Chat performs one request/response round trip.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// TestConnection checks credentials and reachability without running a
	// completion.
	TestConnection(ctx context.Context) error

	// Name identifies the backend in logs and metrics.
	Name() string
}
