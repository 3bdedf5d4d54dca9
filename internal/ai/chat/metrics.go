package chat

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// maxLabelLen is the maximum length for a metric label value
const maxLabelLen = 64

// sanitizeLabel ensures a label value is safe for Prometheus:
// - Truncates to maxLabelLen
// - Replaces spaces with underscores
// - Returns "unknown" for empty values
func sanitizeLabel(s string) string {
	if s == "" {
		return "unknown"
	}
	s = strings.ReplaceAll(s, " ", "_")
	if len(s) > maxLabelLen {
		s = s[:maxLabelLen]
	}
	return s
}

// AIMetrics manages Prometheus instrumentation for the agent loop. The
// budget counters in particular are how we notice a model that keeps
// hitting its limits instead of answering.
type AIMetrics struct {
	// One LLM round trip in the loop
	agenticIterations *prometheus.CounterVec

	// Tool executions by name and outcome (ok / error)
	toolCalls *prometheus.CounterVec

	// Budget exhaustion by kind (tool_calls / iterations)
	budgetExhausted *prometheus.CounterVec

	// Token usage by direction (input / output)
	tokens *prometheus.CounterVec
}

var (
	aiMetricsInstance *AIMetrics
	aiMetricsOnce     sync.Once
)

// GetAIMetrics returns the singleton AI metrics instance.
func GetAIMetrics() *AIMetrics {
	aiMetricsOnce.Do(func() {
		aiMetricsInstance = newAIMetrics()
	})
	return aiMetricsInstance
}

func newAIMetrics() *AIMetrics {
	m := &AIMetrics{
		agenticIterations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "opshawk",
				Subsystem: "ai",
				Name:      "agentic_iterations_total",
				Help:      "Total agentic loop iterations by provider and model",
			},
			[]string{"provider", "model"},
		),
		toolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "opshawk",
				Subsystem: "ai",
				Name:      "tool_calls_total",
				Help:      "Total tool executions by tool name and outcome",
			},
			[]string{"tool", "outcome"},
		),
		budgetExhausted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "opshawk",
				Subsystem: "ai",
				Name:      "budget_exhausted_total",
				Help:      "Total budget exhaustions by budget kind",
			},
			[]string{"budget"},
		),
		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "opshawk",
				Subsystem: "ai",
				Name:      "tokens_total",
				Help:      "Total tokens by direction and provider",
			},
			[]string{"direction", "provider"},
		),
	}

	prometheus.MustRegister(
		m.agenticIterations,
		m.toolCalls,
		m.budgetExhausted,
		m.tokens,
	)

	return m
}

// RecordAgenticIteration records one LLM call in the loop.
// This counts each turn in the agentic loop, not each tool call.
func (m *AIMetrics) RecordAgenticIteration(provider, model string) {
	m.agenticIterations.WithLabelValues(sanitizeLabel(provider), sanitizeLabel(model)).Inc()
}

// RecordToolCall records one tool execution and its outcome.
// Note: tool is a registered tool name, never free-form model output.
func (m *AIMetrics) RecordToolCall(tool string, isError bool) {
	outcome := "ok"
	if isError {
		outcome = "error"
	}
	m.toolCalls.WithLabelValues(sanitizeLabel(tool), outcome).Inc()
}

// RecordBudgetExhausted records a budget hit: "tool_calls" or "iterations".
func (m *AIMetrics) RecordBudgetExhausted(budget string) {
	m.budgetExhausted.WithLabelValues(sanitizeLabel(budget)).Inc()
}

// RecordTokens records token usage for a completed request.
func (m *AIMetrics) RecordTokens(provider string, input, output int) {
	if input > 0 {
		m.tokens.WithLabelValues("input", sanitizeLabel(provider)).Add(float64(input))
	}
	if output > 0 {
		m.tokens.WithLabelValues("output", sanitizeLabel(provider)).Add(float64(output))
	}
}
