package providers

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Text tool-call protocol for models without structured tool use.
//
// The model is instructed to emit each call as a fenced block:
//
//	```tool_call
//	{"tool": "get_containers", "input": {}}
//	```
//
// Everything outside the fences is normal prose and is preserved. A block
// that fails to parse is dropped and parsing continues with the next one, so
// one malformed call never costs the model its whole turn.

const (
	toolCallFence = "```tool_call"
	closingFence  = "```"
)

// textToolCall is the JSON payload inside a tool_call fence.
type textToolCall struct {
	Tool  string                 `json:"tool"`
	Input map[string]interface{} `json:"input"`
}

// parseToolCalls splits a raw model response into prose and tool calls.
// Fenced IDs do not exist in the text protocol, so each call gets a fresh
// one; the loop needs them to pair results with calls.
func parseToolCalls(response string) (string, []ToolCall) {
	var prose []string
	var calls []ToolCall

	lines := strings.Split(response, "\n")
	for i := 0; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != toolCallFence {
			prose = append(prose, lines[i])
			continue
		}

		// Collect the block body up to the closing fence. An unterminated
		// fence swallows the rest of the response, same as markdown would.
		var body []string
		closed := false
		j := i + 1
		for ; j < len(lines); j++ {
			if strings.TrimSpace(lines[j]) == closingFence {
				closed = true
				break
			}
			body = append(body, lines[j])
		}
		i = j

		if !closed {
			log.Warn().Msg("Unterminated tool_call fence in model response")
			break
		}

		var call textToolCall
		if err := json.Unmarshal([]byte(strings.Join(body, "\n")), &call); err != nil {
			log.Warn().Err(err).Msg("Skipping malformed tool_call block")
			continue
		}
		if call.Tool == "" {
			log.Warn().Msg("Skipping tool_call block without a tool name")
			continue
		}
		if call.Input == nil {
			call.Input = map[string]interface{}{}
		}
		calls = append(calls, ToolCall{
			ID:    "call_" + uuid.NewString(),
			Name:  call.Tool,
			Input: call.Input,
		})
	}

	return strings.TrimSpace(strings.Join(prose, "\n")), calls
}

// roleMarkerRe matches transcript role markers at the start of a line.
// Untrusted content (user input, tool output) gets these neutralized before
// prompt composition so it cannot forge turns in the transcript.
var roleMarkerRe = regexp.MustCompile(`(?m)^(User|Assistant|System|Tool result)(\s*[:(])`)

func neutralizeRoleMarkers(s string) string {
	return roleMarkerRe.ReplaceAllString(s, "| $1$2")
}

// composePrompt flattens a structured chat request into one raw prompt:
// system text, the tool catalog, the protocol instructions, then the
// transcript.
func composePrompt(req ChatRequest) string {
	var b strings.Builder

	if req.System != "" {
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}

	if len(req.Tools) > 0 {
		b.WriteString("You can use the following tools:\n\n")
		for _, t := range req.Tools {
			schema, _ := json.Marshal(t.InputSchema)
			fmt.Fprintf(&b, "- %s: %s\n  input schema: %s\n", t.Name, t.Description, schema)
		}
		b.WriteString("\nTo call a tool, emit a fenced block exactly like this:\n\n")
		b.WriteString(toolCallFence + "\n")
		b.WriteString(`{"tool": "<name>", "input": {<arguments>}}` + "\n")
		b.WriteString(closingFence + "\n\n")
		b.WriteString("You may write prose before or after tool calls. ")
		b.WriteString("When you have the answer, reply without any tool_call block.\n\n")
	}

	for _, m := range req.Messages {
		if m.Role == "system" {
			continue
		}
		if m.ToolResult != nil {
			fmt.Fprintf(&b, "Tool result (%s):\n%s\n\n",
				m.ToolResult.ToolUseID, neutralizeRoleMarkers(m.ToolResult.Content))
			continue
		}
		switch m.Role {
		case "assistant":
			// History is caller-supplied, so assistant content is just as
			// untrusted as user content here.
			b.WriteString("Assistant: ")
			b.WriteString(neutralizeRoleMarkers(m.Content))
			for _, tc := range m.ToolCalls {
				payload, _ := json.Marshal(textToolCall{Tool: tc.Name, Input: tc.Input})
				b.WriteString("\n" + toolCallFence + "\n")
				b.Write(payload)
				b.WriteString("\n" + closingFence)
			}
			b.WriteString("\n\n")
		default:
			fmt.Fprintf(&b, "User: %s\n\n", neutralizeRoleMarkers(m.Content))
		}
	}

	b.WriteString("Assistant: ")
	return b.String()
}
