package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/opshawk/opshawk/internal/agentexec"
	"github.com/opshawk/opshawk/internal/ai/chat"
	"github.com/opshawk/opshawk/internal/ai/plugin"
	"github.com/opshawk/opshawk/internal/ai/providers"
	"github.com/opshawk/opshawk/internal/ai/tools"
	"github.com/opshawk/opshawk/internal/collect"
	"github.com/opshawk/opshawk/internal/config"
)

var flagShowToolCalls bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a diagnostic question about this server",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd.Context(), strings.Join(args, " "))
	},
}

func init() {
	askCmd.Flags().BoolVar(&flagShowToolCalls, "show-tool-calls", false, "print the tools the model used")
}

// buildStack assembles the executor, plugin loader and loop from config.
func buildStack(ctx context.Context, cfg config.Config) (*chat.AgenticLoop, *plugin.Loader, func(), error) {
	runner := agentexec.NewRunner()

	executorCfg := tools.ExecutorConfig{
		Resources: collect.NewSystemCollector(),
		Security:  collect.NewFail2banCollector(runner),
		Runner:    runner,
	}
	var closers []func()
	if docker, err := collect.NewDockerCollector(); err != nil {
		log.Warn().Err(err).Msg("Docker unavailable, container tools disabled")
	} else {
		executorCfg.Containers = docker
		closers = append(closers, func() { docker.Close() })
	}

	executor, err := tools.NewExecutor(executorCfg)
	if err != nil {
		return nil, nil, nil, err
	}

	loader := plugin.NewLoader(cfg.Plugins, executor, runner)
	if err := loader.LoadAll(ctx); err != nil {
		return nil, nil, nil, fmt.Errorf("plugin load: %w", err)
	}
	closers = append(closers, func() {
		if err := loader.Close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Plugin teardown reported errors")
		}
	})

	provider, err := providers.NewProvider(cfg.AI)
	if err != nil {
		return nil, nil, nil, err
	}

	loop := chat.NewAgenticLoop(chat.LoopConfig{
		Provider:     provider,
		Executor:     executor,
		Capability:   cfg.Capability,
		Model:        cfg.AI.Model,
		SystemPrompt: cfg.AI.SystemPrompt,
		MaxTokens:    cfg.AI.MaxTokens,
		Temperature:  cfg.AI.Temperature,
	})

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return loop, loader, cleanup, nil
}

func runAsk(ctx context.Context, question string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	loop, loader, cleanup, err := buildStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// A /command from a plugin expands to its prompt.
	if strings.HasPrefix(question, "/") {
		expanded, err := expandChatCommand(loader, question)
		if err != nil {
			return err
		}
		question = expanded
	}

	result, err := loop.Ask(ctx, question, nil)
	if err != nil {
		return err
	}

	if flagShowToolCalls {
		for _, call := range result.ToolCalls {
			marker := "ok"
			if call.IsError {
				marker = "error"
			}
			fmt.Fprintf(os.Stderr, "[%s] %s (%s)\n", marker, call.Name, call.Duration.Round(1e6))
		}
	}

	fmt.Println(result.Response)
	log.Debug().
		Int("iterations", result.Iterations).
		Int("input_tokens", result.InputTokens).
		Int("output_tokens", result.OutputTokens).
		Msg("Ask complete")
	return nil
}

func expandChatCommand(loader *plugin.Loader, input string) (string, error) {
	name := strings.TrimPrefix(strings.Fields(input)[0], "/")
	for _, cmd := range loader.ChatCommands() {
		if cmd.Name == name {
			return cmd.Prompt, nil
		}
	}
	return "", fmt.Errorf("unknown command /%s", name)
}
