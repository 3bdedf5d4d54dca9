package plugin

import (
	"strings"
	"testing"
)

func TestParseManifestValid(t *testing.T) {
	data := []byte(`
name: nginx_tools
version: "1.0.0"
description: nginx diagnostics
tools:
  - name: status
    description: show nginx service status
    command: systemctl
    args: ["status", "nginx"]
commands:
  - name: nginx-check
    description: run a full nginx health check
    prompt: Check whether nginx is healthy and summarize any errors in its logs.
hooks:
  init:
    command: systemctl
    args: ["is-enabled", "nginx"]
`)
	m, err := ParseManifest(data)
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if m.Name != "nginx_tools" {
		t.Errorf("name = %q", m.Name)
	}
	if len(m.Tools) != 1 || m.Tools[0].Command != "systemctl" {
		t.Errorf("tools = %+v", m.Tools)
	}
	if m.Hooks.Init == nil || m.Hooks.Destroy != nil {
		t.Errorf("hooks = %+v", m.Hooks)
	}
}

func TestParseManifestRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no name", "version: \"1.0\"\ntools:\n  - name: abc\n    command: ps\n"},
		{"bad plugin name", "name: Nginx\nversion: \"1.0\"\ntools:\n  - name: abc\n    command: ps\n"},
		{"short plugin name", "name: ab\nversion: \"1.0\"\ntools:\n  - name: abc\n    command: ps\n"},
		{"no version", "name: nginx_tools\ntools:\n  - name: abc\n    command: ps\n"},
		{"empty plugin", "name: nginx_tools\nversion: \"1.0\"\n"},
		{"tool without command", "name: nginx_tools\nversion: \"1.0\"\ntools:\n  - name: status\n"},
		{"bad tool name", "name: nginx_tools\nversion: \"1.0\"\ntools:\n  - name: Status\n    command: ps\n"},
		{"duplicate tool", "name: nginx_tools\nversion: \"1.0\"\ntools:\n  - name: status\n    command: ps\n  - name: status\n    command: ps\n"},
		{"command without prompt", "name: nginx_tools\nversion: \"1.0\"\ncommands:\n  - name: check\n"},
		{"duplicate command", "name: nginx_tools\nversion: \"1.0\"\ncommands:\n  - name: check\n    prompt: a\n  - name: check\n    prompt: b\n"},
		{"not yaml", "{{{{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseManifest([]byte(tt.yaml)); err == nil {
				t.Fatalf("manifest accepted:\n%s", tt.yaml)
			}
		})
	}
}

func TestValidateCommandName(t *testing.T) {
	valid := []string{"check", "nginx-check", "disk_report", "a", "x1"}
	for _, name := range valid {
		if err := ValidateCommandName(name); err != nil {
			t.Errorf("ValidateCommandName(%q) = %v", name, err)
		}
	}

	tests := []struct {
		name   string
		reason string
	}{
		{"/check", "leading slash"},
		{"Check", "uppercase"},
		{"CHECK", "uppercase"},
		{"", "empty"},
		{"1check", "digit start"},
		{"-check", "hyphen start"},
		{"check me", "space"},
		{"check!", "charset"},
		{strings.Repeat("a", 33), "length"},
	}
	for _, tt := range tests {
		if err := ValidateCommandName(tt.name); err == nil {
			t.Errorf("ValidateCommandName(%q) accepted, want rejection (%s)", tt.name, tt.reason)
		}
	}
}
