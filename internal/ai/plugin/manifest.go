// Package plugin loads tool and chat-command extensions from YAML manifests.
package plugin

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest is one plugin's declaration file. A plugin contributes tools
// (bound to allowlisted host commands) and chat commands, with optional
// lifecycle hooks around load and unload.
type Manifest struct {
	Name        string        `yaml:"name"`
	Version     string        `yaml:"version"`
	Description string        `yaml:"description"`
	Tools       []ToolSpec    `yaml:"tools"`
	Commands    []CommandSpec `yaml:"commands"`
	Hooks       Hooks         `yaml:"hooks"`
}

// ToolSpec binds a tool name to a fixed command invocation. The command
// still has to pass the runtime allowlist; a manifest cannot widen it.
type ToolSpec struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Command     string   `yaml:"command"`
	Args        []string `yaml:"args"`
}

// CommandSpec declares a chat command. The stored name has no leading
// slash; the chat surface adds it when rendering.
type CommandSpec struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Prompt      string `yaml:"prompt"`
}

// Hooks are optional commands run on plugin load and unload.
type Hooks struct {
	Init    *HookSpec `yaml:"init,omitempty"`
	Destroy *HookSpec `yaml:"destroy,omitempty"`
}

// HookSpec is one lifecycle command.
type HookSpec struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// pluginNameRE matches the tool-name segment rules, since the plugin name
// becomes the namespace prefix of every contributed tool.
var pluginNameRE = regexp.MustCompile(`^[a-z][a-z0-9_]{2,49}$`)

// chatCommandRE: lowercase start, then lowercase/digits/underscore/hyphen,
// 32 chars max.
var chatCommandRE = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)

// ParseManifest decodes and validates one manifest document.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest YAML: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks everything that must hold before any part of the plugin
// is registered.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("plugin has no name")
	}
	if !pluginNameRE.MatchString(m.Name) {
		return fmt.Errorf("plugin name %q must match %s", m.Name, pluginNameRE)
	}
	if m.Version == "" {
		return fmt.Errorf("plugin %s has no version", m.Name)
	}
	if len(m.Tools) == 0 && len(m.Commands) == 0 {
		return fmt.Errorf("plugin %s declares neither tools nor commands", m.Name)
	}

	seenTools := map[string]struct{}{}
	for _, t := range m.Tools {
		if !pluginNameRE.MatchString(t.Name) {
			return fmt.Errorf("plugin %s: tool name %q must match %s", m.Name, t.Name, pluginNameRE)
		}
		if _, dup := seenTools[t.Name]; dup {
			return fmt.Errorf("plugin %s: duplicate tool %q", m.Name, t.Name)
		}
		seenTools[t.Name] = struct{}{}
		if t.Command == "" {
			return fmt.Errorf("plugin %s: tool %q has no command", m.Name, t.Name)
		}
	}

	seenCommands := map[string]struct{}{}
	for _, c := range m.Commands {
		if err := ValidateCommandName(c.Name); err != nil {
			return fmt.Errorf("plugin %s: %w", m.Name, err)
		}
		if _, dup := seenCommands[c.Name]; dup {
			return fmt.Errorf("plugin %s: duplicate command %q", m.Name, c.Name)
		}
		seenCommands[c.Name] = struct{}{}
		if c.Prompt == "" {
			return fmt.Errorf("plugin %s: command %q has no prompt", m.Name, c.Name)
		}
	}

	return nil
}

// ValidateCommandName enforces the chat command naming rules.
func ValidateCommandName(name string) error {
	if name == "" {
		return fmt.Errorf("command has no name")
	}
	if strings.HasPrefix(name, "/") {
		return fmt.Errorf("command name %q must not include the leading slash", name)
	}
	if name != strings.ToLower(name) {
		return fmt.Errorf("command name %q must be lowercase", name)
	}
	if len(name) > 32 {
		return fmt.Errorf("command name %q exceeds 32 characters", name)
	}
	if !chatCommandRE.MatchString(name) {
		return fmt.Errorf("command name %q must match %s", name, chatCommandRE)
	}
	return nil
}
