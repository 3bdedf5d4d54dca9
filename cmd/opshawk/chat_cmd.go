package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/opshawk/opshawk/internal/ai/plugin"
	"github.com/opshawk/opshawk/internal/ai/providers"
	"github.com/opshawk/opshawk/internal/config"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive diagnostic session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd)
	},
}

func runChat(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	loop, loader, cleanup, err := buildStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Plugins.Watch {
		watcher, err := plugin.NewWatcher(loader)
		if err != nil {
			log.Warn().Err(err).Msg("Plugin watcher unavailable")
		} else if err := watcher.Start(ctx); err != nil {
			log.Warn().Err(err).Msg("Plugin watcher failed to start")
		} else {
			defer watcher.Stop()
		}
	}

	fmt.Println("OpsHawk interactive session. Type /help for commands, /quit to exit.")

	var history []providers.Message
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		question := input
		if strings.HasPrefix(input, "/") {
			name := strings.TrimPrefix(strings.Fields(input)[0], "/")
			switch name {
			case "quit":
				return nil
			case "reset":
				history = nil
				fmt.Println("conversation reset")
				continue
			case "help":
				printChatHelp(loader)
				continue
			case "tools":
				for _, tool := range loop.Tools() {
					fmt.Printf("  %-32s %s\n", tool.Name, tool.Description)
				}
				continue
			default:
				expanded, err := expandChatCommand(loader, input)
				if err != nil {
					fmt.Println(err)
					continue
				}
				question = expanded
			}
		}

		result, err := loop.Ask(ctx, question, history)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		history = append(history,
			providers.Message{Role: "user", Content: question},
			providers.Message{Role: "assistant", Content: result.Response},
		)

		fmt.Println(result.Response)
	}
}

func printChatHelp(loader *plugin.Loader) {
	fmt.Println("  /help   show this help")
	fmt.Println("  /tools  list available tools")
	fmt.Println("  /reset  clear the conversation")
	fmt.Println("  /quit   exit")
	for _, c := range loader.ChatCommands() {
		fmt.Printf("  /%-6s %s (%s)\n", c.Name, c.Description, c.Plugin)
	}
}
