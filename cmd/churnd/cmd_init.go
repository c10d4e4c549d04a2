package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/walletops/churnd/pkg/config"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configPath); err == nil {
				fmt.Printf("Config already exists at %s\n", configPath)
				fmt.Println("Edit it directly, or delete it and run 'churnd init' again.")
				return nil
			}

			if err := config.SaveConfig(configPath, config.DefaultConfig()); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}

			fmt.Printf("Created config at %s\n", configPath)
			fmt.Println("\nNext steps:")
			fmt.Println("  1. Point wallet.url at your wallet RPC service")
			fmt.Println("  2. Point daemon.url at your chain daemon")
			fmt.Println("  3. Adjust churn round/delay bounds and sessions")
			fmt.Println("  4. Start churning: churnd run")
			return nil
		},
	}
}
