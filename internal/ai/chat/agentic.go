package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/opshawk/opshawk/internal/ai/providers"
	"github.com/opshawk/opshawk/internal/ai/safety"
	"github.com/opshawk/opshawk/internal/ai/tools"
	"github.com/opshawk/opshawk/internal/config"
)

const defaultSystemPrompt = `You are a server diagnostics assistant. You can inspect containers,
system resources, disks, networks, logs and configuration files through the
tools provided. You cannot change anything on the host. Base your answers on
tool output, not on assumptions, and say so when the data is inconclusive.`

// budgetNote is appended to the answer when the tool-call budget ends the
// turn early. The turn stops at the budget; no further backend requests are
// issued.
const budgetNote = "Note: the tool call budget for this question was reached. This answer " +
	"is based only on the information gathered before the limit."

// iterationFallback is the fixed answer when the model is still asking for
// tools on its last allowed iteration.
const iterationFallback = "I could not finish the investigation within the allowed number of " +
	"steps. Consider asking a narrower question so fewer lookups are needed."

// AgenticLoop drives the request/execute cycle for one conversation.
// It is safe for concurrent use; all per-question state lives in Ask.
type AgenticLoop struct {
	provider    providers.Provider
	executor    *tools.Executor
	caps        config.Capability
	model       string
	system      string
	maxTokens   int
	temperature float64
	disabled    []string
}

// NewAgenticLoop creates a loop from its dependencies.
func NewAgenticLoop(cfg LoopConfig) *AgenticLoop {
	system := cfg.SystemPrompt
	if system == "" {
		system = defaultSystemPrompt
	}
	return &AgenticLoop{
		provider:    cfg.Provider,
		executor:    cfg.Executor,
		caps:        cfg.Capability.Normalize(),
		model:       cfg.Model,
		system:      system,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		disabled:    cfg.DisabledTools,
	}
}

// Tools reports the tool set the model is advertised, after disabled-name
// filtering.
func (l *AgenticLoop) Tools() []tools.Tool {
	return l.executor.ListTools(l.disabled)
}

// Ask runs one question to completion. Both budgets (iterations and tool
// calls) are fresh counters for every Ask, regardless of history length.
// Tool calls execute in the order the model issued them, strictly
// sequentially.
func (l *AgenticLoop) Ask(ctx context.Context, question string, history []providers.Message) (*AskResult, error) {
	metrics := GetAIMetrics()

	messages := make([]providers.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, providers.Message{Role: "user", Content: question})

	toolSpecs := toProviderTools(l.executor.ListTools(l.disabled))

	result := &AskResult{}
	toolCallCount := 0
	var partial []string

	for iteration := 1; iteration <= l.caps.MaxIterations; iteration++ {
		result.Iterations = iteration
		metrics.RecordAgenticIteration(l.provider.Name(), l.model)

		resp, err := l.provider.Chat(ctx, providers.ChatRequest{
			Messages:    messages,
			Model:       l.model,
			MaxTokens:   l.maxTokens,
			Temperature: l.temperature,
			System:      l.system,
			Tools:       toolSpecs,
		})
		if err != nil {
			return nil, fmt.Errorf("model request failed on iteration %d: %w", iteration, err)
		}
		result.InputTokens += resp.InputTokens
		result.OutputTokens += resp.OutputTokens
		metrics.RecordTokens(l.provider.Name(), resp.InputTokens, resp.OutputTokens)

		if len(resp.ToolCalls) == 0 {
			result.Response = resp.Content
			log.Debug().
				Int("iterations", iteration).
				Int("tool_calls", toolCallCount).
				Msg("Agentic loop finished")
			return result, nil
		}

		if text := strings.TrimSpace(resp.Content); text != "" {
			partial = append(partial, text)
		}

		messages = append(messages, providers.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		budgetHit := false
		for _, call := range resp.ToolCalls {
			toolCallCount++
			record := ToolCallRecord{ID: call.ID, Name: call.Name, Input: call.Input}

			if toolCallCount > l.caps.MaxToolCalls {
				// Refused, not executed. The turn ends once the whole batch
				// has been accounted for.
				budgetHit = true
				record.IsError = true
				result.ToolCalls = append(result.ToolCalls, record)
				continue
			}

			start := time.Now()
			res := l.executor.ExecuteTool(ctx, call.Name, call.Input, l.caps)
			record.Duration = time.Since(start)

			record.IsError = res.IsError
			metrics.RecordToolCall(call.Name, res.IsError)
			result.ToolCalls = append(result.ToolCalls, record)

			messages = append(messages, providers.Message{
				Role: "user",
				ToolResult: &providers.ToolResult{
					ToolUseID: call.ID,
					Content:   flattenResult(res),
					IsError:   res.IsError,
				},
			})
		}

		if budgetHit {
			metrics.RecordBudgetExhausted("tool_calls")
			log.Warn().
				Int("max_tool_calls", l.caps.MaxToolCalls).
				Int("requested", toolCallCount).
				Msg("Tool call budget exhausted, ending turn")
			result.Response = budgetResponse(partial)
			return result, nil
		}
	}

	metrics.RecordBudgetExhausted("iterations")
	log.Warn().
		Int("max_iterations", l.caps.MaxIterations).
		Int("tool_calls", toolCallCount).
		Msg("Iteration budget exhausted, returning fallback answer")
	result.Response = iterationFallback
	return result, nil
}

// budgetResponse assembles the early answer: whatever text the model had
// produced so far, scrubbed, followed by the budget note.
func budgetResponse(partial []string) string {
	text := safety.Scrub(strings.TrimSpace(strings.Join(partial, "\n\n")))
	if text == "" {
		return budgetNote
	}
	return text + "\n\n" + budgetNote
}

// flattenResult joins a result's text blocks into the string form tool
// results take on the wire.
func flattenResult(res tools.CallToolResult) string {
	parts := make([]string, 0, len(res.Content))
	for _, c := range res.Content {
		if c.Type == "text" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// toProviderTools converts registry definitions into the provider-neutral
// tool shape.
func toProviderTools(defs []tools.Tool) []providers.Tool {
	out := make([]providers.Tool, 0, len(defs))
	for _, d := range defs {
		props := map[string]interface{}{}
		for name, p := range d.InputSchema.Properties {
			prop := map[string]interface{}{"type": p.Type}
			if p.Description != "" {
				prop["description"] = p.Description
			}
			if len(p.Enum) > 0 {
				prop["enum"] = p.Enum
			}
			if p.Default != nil {
				prop["default"] = p.Default
			}
			props[name] = prop
		}
		schema := map[string]interface{}{
			"type":       d.InputSchema.Type,
			"properties": props,
		}
		if len(d.InputSchema.Required) > 0 {
			schema["required"] = d.InputSchema.Required
		}
		out = append(out, providers.Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: schema,
		})
	}
	return out
}
