// Package config holds the runtime configuration for the agent core.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider identifiers accepted in AIConfig.Provider.
const (
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// AIConfig selects and parameterizes the model backend.
type AIConfig struct {
	Provider string `json:"provider"` // "anthropic" or "ollama"
	Model    string `json:"model"`

	AnthropicAPIKey string `json:"anthropic_api_key,omitempty"`
	OllamaBaseURL   string `json:"ollama_base_url,omitempty"` // default http://localhost:11434

	// How long to wait for a single model response (default: 300s). Local
	// models on slow hardware need more than cloud endpoints.
	RequestTimeoutSeconds int `json:"request_timeout_seconds,omitempty"`

	// MaxTokens caps one model response; 0 uses the backend default.
	MaxTokens int `json:"max_tokens,omitempty"`
	// Temperature of 0 leaves the backend default in place.
	Temperature float64 `json:"temperature,omitempty"`

	SystemPrompt string `json:"system_prompt,omitempty"`
}

// RequestTimeout returns the model-call deadline.
func (c *AIConfig) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Capability is the caller-supplied boundary every tool executor must
// respect. It is immutable for the duration of one request; tools receive a
// copy and never write through it.
type Capability struct {
	// AllowedDirectories is the ordered set of absolute roots file tools may
	// read under. Empty means no filesystem access at all.
	AllowedDirectories []string `json:"allowed_directories"`
	// MaxFileSizeKB caps a single file read.
	MaxFileSizeKB int `json:"max_file_size_kb"`
	// MaxLogLines caps any log retrieval, whatever the model asked for.
	MaxLogLines int `json:"max_log_lines"`

	// Per-turn budgets. Both are independent counters reset at the start of
	// each ask; see chat.AgenticLoop.
	MaxToolCalls  int `json:"max_tool_calls"`
	MaxIterations int `json:"max_iterations"`
}

// DefaultCapability returns the conservative defaults used when the caller
// supplies nothing.
func DefaultCapability() Capability {
	return Capability{
		AllowedDirectories: []string{"/var/log"},
		MaxFileSizeKB:      256,
		MaxLogLines:        200,
		MaxToolCalls:       40,
		MaxIterations:      10,
	}
}

// Normalize fills zero-valued limits from the defaults so a partially
// populated Capability still fails safe rather than unbounded.
func (c Capability) Normalize() Capability {
	def := DefaultCapability()
	if c.MaxFileSizeKB <= 0 {
		c.MaxFileSizeKB = def.MaxFileSizeKB
	}
	if c.MaxLogLines <= 0 {
		c.MaxLogLines = def.MaxLogLines
	}
	if c.MaxToolCalls <= 0 {
		c.MaxToolCalls = def.MaxToolCalls
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = def.MaxIterations
	}
	return c
}

// PluginConfig controls extension discovery.
type PluginConfig struct {
	Directory      string        `json:"directory"`       // default "plugins"
	LifecycleGrace time.Duration `json:"lifecycle_grace"` // init/destroy timeout, default 5s
	Watch          bool          `json:"watch"`           // reload on manifest changes
}

// Config is the process-wide configuration root.
type Config struct {
	AI         AIConfig     `json:"ai"`
	Capability Capability   `json:"capability"`
	Plugins    PluginConfig `json:"plugins"`
}

// FromEnv builds a Config from environment variables, applying defaults for
// everything unset. The entrypoint loads .env beforehand via godotenv.
func FromEnv() Config {
	cfg := Config{
		AI: AIConfig{
			Provider:              envString("OPSHAWK_PROVIDER", ProviderAnthropic),
			Model:                 envString("OPSHAWK_MODEL", ""),
			AnthropicAPIKey:       os.Getenv("ANTHROPIC_API_KEY"),
			OllamaBaseURL:         envString("OLLAMA_HOST", "http://localhost:11434"),
			RequestTimeoutSeconds: envInt("OPSHAWK_REQUEST_TIMEOUT_SECONDS", 0),
			MaxTokens:             envInt("OPSHAWK_MAX_TOKENS", 0),
			Temperature:           envFloat("OPSHAWK_TEMPERATURE", 0),
			SystemPrompt:          os.Getenv("OPSHAWK_SYSTEM_PROMPT"),
		},
		Capability: Capability{
			AllowedDirectories: envPathList("OPSHAWK_ALLOWED_DIRS", DefaultCapability().AllowedDirectories),
			MaxFileSizeKB:      envInt("OPSHAWK_MAX_FILE_SIZE_KB", 0),
			MaxLogLines:        envInt("OPSHAWK_MAX_LOG_LINES", 0),
			MaxToolCalls:       envInt("OPSHAWK_MAX_TOOL_CALLS", 0),
			MaxIterations:      envInt("OPSHAWK_MAX_ITERATIONS", 0),
		},
		Plugins: PluginConfig{
			Directory:      envString("OPSHAWK_PLUGIN_DIR", "plugins"),
			LifecycleGrace: time.Duration(envInt("OPSHAWK_PLUGIN_GRACE_SECONDS", 5)) * time.Second,
			Watch:          envBool("OPSHAWK_PLUGIN_WATCH", false),
		},
	}
	cfg.Capability = cfg.Capability.Normalize()
	return cfg
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envPathList(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	parts := strings.Split(v, ":")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
