package tools

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Tool describes an available tool
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	InputSchema InputSchema `json:"inputSchema"`
}

// InputSchema describes the expected input for a tool
type InputSchema struct {
	Type       string                    `json:"type"` // Always "object"
	Properties map[string]PropertySchema `json:"properties"`
	Required   []string                  `json:"required,omitempty"`
}

// PropertySchema describes a property in the input schema
type PropertySchema struct {
	Type        string      `json:"type"`
	Description string      `json:"description,omitempty"`
	Enum        []string    `json:"enum,omitempty"`
	Default     interface{} `json:"default,omitempty"`
}

// CallToolResult is the outcome of a single tool execution
type CallToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Content represents content in a tool result
type Content struct {
	Type     string `json:"type"` // "text", "image", "resource"
	Text     string `json:"text,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"` // base64 for images
}

// toolNameRE constrains every tool name segment: lowercase start, then
// lowercase/digits/underscore, 3-50 chars total.
var toolNameRE = regexp.MustCompile(`^[a-z][a-z0-9_]{2,49}$`)

// ValidateToolName checks a tool name. Built-in tools use a bare segment;
// plugin tools are namespaced as "plugin:tool" and both segments must pass
// the same pattern.
func ValidateToolName(name string) error {
	segments := strings.Split(name, ":")
	if len(segments) > 2 {
		return fmt.Errorf("tool name %q has more than one namespace separator", name)
	}
	for _, seg := range segments {
		if !toolNameRE.MatchString(seg) {
			return fmt.Errorf("tool name %q does not match ^[a-z][a-z0-9_]{2,49}$", name)
		}
	}
	return nil
}

// IsNamespaced reports whether name carries a plugin namespace.
func IsNamespaced(name string) bool {
	return strings.Contains(name, ":")
}

// Helper functions

// NewTextContent creates a text content object
func NewTextContent(text string) Content {
	return Content{
		Type: "text",
		Text: text,
	}
}

// NewErrorResult creates an error tool result
func NewErrorResult(err error) CallToolResult {
	return CallToolResult{
		Content: []Content{NewTextContent(err.Error())},
		IsError: true,
	}
}

// NewErrorResultf creates an error tool result from a format string
func NewErrorResultf(format string, args ...interface{}) CallToolResult {
	return CallToolResult{
		Content: []Content{NewTextContent(fmt.Sprintf(format, args...))},
		IsError: true,
	}
}

// NewTextResult creates a successful text tool result
func NewTextResult(text string) CallToolResult {
	return CallToolResult{
		Content: []Content{NewTextContent(text)},
		IsError: false,
	}
}

// NewJSONResult creates a successful JSON tool result
// The data is marshaled to JSON and returned as text content
func NewJSONResult(data interface{}) CallToolResult {
	b, err := json.Marshal(data)
	if err != nil {
		return NewErrorResult(err)
	}
	return CallToolResult{
		Content: []Content{NewTextContent(string(b))},
		IsError: false,
	}
}
