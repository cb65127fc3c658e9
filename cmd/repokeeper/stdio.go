package main

import (
	"log/slog"

	"github.com/repokeeper/repokeeper/internal/mcp"
	"github.com/spf13/cobra"
)

func stdioCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Start MCP server on stdio",
		Long: `Start the MCP (Model Context Protocol) server on stdio.

This lets AI assistants list, clone, update and compress repositories.
Logs are written to stderr. Configuration is loaded from environment
variables and .env file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStdio(*envFile)
		},
	}
}

func runStdio(envFile string) error {
	a, err := loadApp(envFile)
	if err != nil {
		return err
	}
	defer a.Close()

	a.logger.Info("starting MCP server",
		slog.String("version", version),
		slog.String("data_dir", a.cfg.DataDir()),
	)

	return mcp.NewServer(a.repos, a.journal, a.memory, version, a.logger).ServeStdio()
}
