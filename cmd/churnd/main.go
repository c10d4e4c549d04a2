package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var version = "0.3.0"

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "churnd",
		Short:         "Wallet chain churner: self-send a wallet's balance, then sweep it onward",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "config file path")

	root.AddCommand(runCmd())
	root.AddCommand(initCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the churnd version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("churnd %s\n", version)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(home, ".churnd", "config.json")
}
