package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opshawk/opshawk/internal/agentexec"
	"github.com/opshawk/opshawk/internal/ai/plugin"
	"github.com/opshawk/opshawk/internal/ai/tools"
	"github.com/opshawk/opshawk/internal/config"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools available to the model",
	RunE: func(cmd *cobra.Command, args []string) error {
		executor, loader, err := buildRegistry(cmd.Context())
		if err != nil {
			return err
		}
		defer loader.Close(context.Background())

		for _, tool := range executor.ListTools(nil) {
			fmt.Printf("%-32s %s\n", tool.Name, tool.Description)
		}
		return nil
	},
}

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List loaded plugins and their chat commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, loader, err := buildRegistry(cmd.Context())
		if err != nil {
			return err
		}
		defer loader.Close(context.Background())

		plugins := loader.Plugins()
		if len(plugins) == 0 {
			fmt.Println("no plugins loaded")
			return nil
		}
		for _, name := range plugins {
			fmt.Println(name)
		}
		for _, c := range loader.ChatCommands() {
			fmt.Printf("  /%-24s %s (%s)\n", c.Name, c.Description, c.Plugin)
		}
		return nil
	},
}

// buildRegistry loads just enough to inspect the tool set, without a
// provider connection.
func buildRegistry(ctx context.Context) (*tools.Executor, *plugin.Loader, error) {
	cfg := config.FromEnv()
	runner := agentexec.NewRunner()

	executor, err := tools.NewExecutor(tools.ExecutorConfig{Runner: runner})
	if err != nil {
		return nil, nil, err
	}
	loader := plugin.NewLoader(cfg.Plugins, executor, runner)
	if err := loader.LoadAll(ctx); err != nil {
		return nil, nil, err
	}
	return executor, loader, nil
}
