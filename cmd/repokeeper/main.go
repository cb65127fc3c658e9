// Package main is the entry point for the repokeeper CLI.
package main

import (
	"fmt"
	"os"

	"github.com/repokeeper/repokeeper/internal/config"
	"github.com/spf13/cobra"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "repokeeper",
		Short: "Git repository manager",
		Long: `Repokeeper clones, updates, compresses and removes git repositories,
keeping one config file per repository and a persisted log of every operation.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")

	cmd.AddCommand(serveCmd(&envFile))
	cmd.AddCommand(stdioCmd(&envFile))
	cmd.AddCommand(cloneCmd(&envFile))
	cmd.AddCommand(updateCmd(&envFile))
	cmd.AddCommand(compressCmd(&envFile))
	cmd.AddCommand(lsCmd(&envFile))
	cmd.AddCommand(deleteCmd(&envFile))
	cmd.AddCommand(listCmd(&envFile))
	cmd.AddCommand(operationsCmd(&envFile))
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads configuration from .env file and environment variables.
func loadConfig(envFile string) (config.AppConfig, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
