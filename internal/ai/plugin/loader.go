package plugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/opshawk/opshawk/internal/agentexec"
	"github.com/opshawk/opshawk/internal/ai/safety"
	"github.com/opshawk/opshawk/internal/ai/tools"
	"github.com/opshawk/opshawk/internal/config"
)

// reservedCommands are chat commands owned by the core; plugins cannot
// shadow them.
var reservedCommands = map[string]struct{}{
	"help":  {},
	"tools": {},
	"reset": {},
	"quit":  {},
}

// ChatCommand is a loaded plugin chat command ready for the chat surface.
type ChatCommand struct {
	Name        string
	Description string
	Prompt      string
	Plugin      string
}

// loadedPlugin is one successfully initialized plugin.
type loadedPlugin struct {
	manifest *Manifest
	path     string
}

// Runner executes hook and tool commands for plugins.
type Runner interface {
	Run(ctx context.Context, command string, args []string) (agentexec.Result, error)
}

// Loader discovers manifests in a directory and installs their tools into
// the executor's registry. A load is all-or-nothing per plugin: a plugin
// whose manifest, names, or init hook fails contributes nothing.
type Loader struct {
	dir      string
	grace    time.Duration
	executor *tools.Executor
	runner   Runner

	mu      sync.Mutex
	plugins map[string]*loadedPlugin
}

// NewLoader creates a loader. The runner is shared with run_command; hooks
// and plugin tools go through the same command policy.
func NewLoader(cfg config.PluginConfig, executor *tools.Executor, runner Runner) *Loader {
	grace := cfg.LifecycleGrace
	if grace <= 0 {
		grace = 5 * time.Second
	}
	return &Loader{
		dir:      cfg.Directory,
		grace:    grace,
		executor: executor,
		runner:   runner,
		plugins:  map[string]*loadedPlugin{},
	}
}

// LoadAll reads every *.yaml manifest in the plugin directory and swaps the
// resulting tool set into the registry. Plugins that fail are logged and
// skipped; plugins that loaded before and still parse stay loaded. A missing
// directory is not an error, it just means no plugins.
func (l *Loader) LoadAll(ctx context.Context) error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("dir", l.dir).Msg("No plugin directory")
			return l.install(nil)
		}
		return fmt.Errorf("cannot read plugin directory %s: %w", l.dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	next := map[string]*loadedPlugin{}
	for _, name := range names {
		path := filepath.Join(l.dir, name)
		p, err := l.loadOne(ctx, path)
		if err != nil {
			log.Error().Err(err).Str("manifest", path).Msg("Plugin rejected")
			continue
		}
		if _, dup := next[p.manifest.Name]; dup {
			log.Error().Str("plugin", p.manifest.Name).Str("manifest", path).Msg("Duplicate plugin name, manifest skipped")
			continue
		}
		next[p.manifest.Name] = p
		log.Info().
			Str("plugin", p.manifest.Name).
			Str("version", p.manifest.Version).
			Int("tools", len(p.manifest.Tools)).
			Int("commands", len(p.manifest.Commands)).
			Msg("Plugin loaded")
	}

	l.dropCommandCollisions(next)
	return l.install(next)
}

// loadOne parses, validates and initializes a single plugin.
func (l *Loader) loadOne(ctx context.Context, path string) (*loadedPlugin, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	manifest, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}
	if manifest.Description == "" {
		// Advisory only
		log.Warn().Str("plugin", manifest.Name).Msg("Plugin has no description")
	}

	if manifest.Hooks.Init != nil {
		if err := l.runHook(ctx, manifest.Name, "init", manifest.Hooks.Init); err != nil {
			return nil, fmt.Errorf("init hook failed: %w", err)
		}
	}

	return &loadedPlugin{manifest: manifest, path: path}, nil
}

// dropCommandCollisions removes plugins whose chat commands collide with a
// reserved name or an already-claimed one. Claims resolve in plugin name
// order so the outcome is deterministic. Tool names cannot collide across
// plugins since they carry the plugin namespace.
func (l *Loader) dropCommandCollisions(plugins map[string]*loadedPlugin) {
	names := make([]string, 0, len(plugins))
	for name := range plugins {
		names = append(names, name)
	}
	sort.Strings(names)

	owner := map[string]string{}
	for _, name := range names {
		p := plugins[name]
		ok := true
		for _, c := range p.manifest.Commands {
			if _, reserved := reservedCommands[c.Name]; reserved {
				log.Error().Str("plugin", name).Str("command", c.Name).Msg("Plugin claims a reserved command, plugin skipped")
				ok = false
				break
			}
			if prev, taken := owner[c.Name]; taken {
				log.Error().Str("plugin", name).Str("command", c.Name).Str("claimed_by", prev).Msg("Chat command already claimed, plugin skipped")
				ok = false
				break
			}
		}
		if !ok {
			delete(plugins, name)
			continue
		}
		for _, c := range p.manifest.Commands {
			owner[c.Name] = name
		}
	}
}

// install swaps the plugin set and rebuilds the registry in one step.
func (l *Loader) install(next map[string]*loadedPlugin) error {
	var pluginTools []tools.RegisteredTool
	names := make([]string, 0, len(next))
	for name := range next {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, spec := range next[name].manifest.Tools {
			pluginTools = append(pluginTools, l.bindTool(name, spec))
		}
	}

	if err := l.executor.SetPluginTools(pluginTools); err != nil {
		return fmt.Errorf("registry rebuild failed: %w", err)
	}

	l.mu.Lock()
	l.plugins = next
	l.mu.Unlock()
	return nil
}

// bindTool turns a manifest tool into a registered handler that runs the
// bound command. The command allowlist is evaluated at call time, so a
// manifest naming a forbidden command yields a tool that always errors
// rather than a load failure.
func (l *Loader) bindTool(pluginName string, spec ToolSpec) tools.RegisteredTool {
	command := spec.Command
	args := append([]string(nil), spec.Args...)
	return tools.RegisteredTool{
		Definition: tools.Tool{
			Name:        pluginName + ":" + spec.Name,
			Description: spec.Description,
			InputSchema: tools.InputSchema{Type: "object", Properties: map[string]tools.PropertySchema{}},
		},
		Handler: func(ctx context.Context, e *tools.Executor, caps config.Capability, callArgs map[string]interface{}) (tools.CallToolResult, error) {
			decision := safety.EvaluateCommand(command, args)
			if !decision.Allowed {
				return tools.NewErrorResultf("command rejected: %s", decision.Reason), nil
			}
			res, err := l.runner.Run(ctx, command, args)
			if err != nil {
				return tools.CallToolResult{}, err
			}
			out := res.Stdout
			if out == "" {
				out = res.Stderr
			}
			if res.ExitCode != 0 {
				return tools.NewErrorResultf("%s exited with %d: %s", command, res.ExitCode, strings.TrimSpace(out)), nil
			}
			return tools.NewTextResult(out), nil
		},
	}
}

// runHook executes a lifecycle command under the grace timeout.
func (l *Loader) runHook(ctx context.Context, pluginName, kind string, hook *HookSpec) error {
	ctx, cancel := context.WithTimeout(ctx, l.grace)
	defer cancel()

	log.Debug().Str("plugin", pluginName).Str("hook", kind).Str("command", hook.Command).Msg("Running plugin hook")
	res, err := l.runner.Run(ctx, hook.Command, hook.Args)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%s hook exited with %d: %s", kind, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// ChatCommands returns the loaded chat commands, sorted by name.
func (l *Loader) ChatCommands() []ChatCommand {
	l.mu.Lock()
	defer l.mu.Unlock()

	var cmds []ChatCommand
	for _, p := range l.plugins {
		for _, c := range p.manifest.Commands {
			cmds = append(cmds, ChatCommand{
				Name:        c.Name,
				Description: c.Description,
				Prompt:      c.Prompt,
				Plugin:      p.manifest.Name,
			})
		}
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// Plugins returns the names of loaded plugins, sorted.
func (l *Loader) Plugins() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := make([]string, 0, len(l.plugins))
	for name := range l.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close runs every destroy hook concurrently, each under its own grace
// timeout, and clears the plugin tool set. Hook failures are collected,
// not fatal to the others.
func (l *Loader) Close(ctx context.Context) error {
	l.mu.Lock()
	plugins := l.plugins
	l.plugins = map[string]*loadedPlugin{}
	l.mu.Unlock()

	var g errgroup.Group
	for _, p := range plugins {
		if p.manifest.Hooks.Destroy == nil {
			continue
		}
		g.Go(func() error {
			if err := l.runHook(ctx, p.manifest.Name, "destroy", p.manifest.Hooks.Destroy); err != nil {
				log.Error().Err(err).Str("plugin", p.manifest.Name).Msg("Destroy hook failed")
				return err
			}
			return nil
		})
	}
	hookErr := g.Wait()

	if err := l.executor.SetPluginTools(nil); err != nil {
		return err
	}
	return hookErr
}
