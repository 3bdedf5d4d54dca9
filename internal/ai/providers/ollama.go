package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog/log"
)

// OllamaClient implements the Provider interface for local models that have
// no structured tool-use support. Tool definitions go into the prompt as
// text, and tool calls come back as fenced blocks the text protocol parser
// extracts. See textproto.go for the wire format.
type OllamaClient struct {
	client *api.Client
	model  string
}

// NewOllamaClient creates a new Ollama API client
func NewOllamaClient(model, baseURL string, timeout time.Duration) (*OllamaClient, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL %q: %w", baseURL, err)
	}
	if timeout <= 0 {
		timeout = defaultClientTimeout // Local models can be slow
	}
	return &OllamaClient{
		client: api.NewClient(base, &http.Client{Timeout: timeout}),
		model:  model,
	}, nil
}

// Name returns the provider name
func (c *OllamaClient) Name() string {
	return "ollama"
}

// Chat sends a chat request through raw generation and parses any tool calls
// out of the response text.
func (c *OllamaClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	prompt := composePrompt(req)

	genReq := &api.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: new(bool), // non-streaming
	}
	if req.MaxTokens > 0 || req.Temperature > 0 {
		genReq.Options = map[string]interface{}{}
		if req.MaxTokens > 0 {
			genReq.Options["num_predict"] = req.MaxTokens
		}
		if req.Temperature > 0 {
			genReq.Options["temperature"] = req.Temperature
		}
	}

	var final api.GenerateResponse
	err := c.client.Generate(ctx, genReq, func(resp api.GenerateResponse) error {
		final = resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}

	content, toolCalls := parseToolCalls(final.Response)

	stopReason := final.DoneReason
	if len(toolCalls) > 0 {
		stopReason = "tool_use"
	} else if stopReason == "" || stopReason == "stop" {
		stopReason = "end_turn"
	}

	log.Debug().
		Int("text_length", len(content)).
		Int("tool_calls", len(toolCalls)).
		Str("stop_reason", stopReason).
		Msg("ollama response parsed")

	return &ChatResponse{
		Content:      content,
		Model:        model,
		StopReason:   stopReason,
		ToolCalls:    toolCalls,
		InputTokens:  final.PromptEvalCount,
		OutputTokens: final.EvalCount,
	}, nil
}

// TestConnection validates connectivity by checking the Ollama version endpoint
func (c *OllamaClient) TestConnection(ctx context.Context) error {
	if _, err := c.client.Version(ctx); err != nil {
		return fmt.Errorf("failed to connect to ollama: %w", err)
	}
	return nil
}
