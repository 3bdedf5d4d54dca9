package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opshawk/opshawk/internal/ai/providers"
	"github.com/opshawk/opshawk/internal/config"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the configured model backend is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromEnv()
		provider, err := providers.NewProvider(cfg.AI)
		if err != nil {
			return err
		}
		if err := provider.TestConnection(cmd.Context()); err != nil {
			return fmt.Errorf("%s backend check failed: %w", provider.Name(), err)
		}
		fmt.Printf("%s backend reachable\n", provider.Name())
		return nil
	},
}
