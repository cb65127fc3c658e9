package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/repokeeper/repokeeper/infrastructure/api"
	"github.com/repokeeper/repokeeper/internal/config"
	"github.com/repokeeper/repokeeper/internal/mcp"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds how long in-flight requests get to finish.
const shutdownTimeout = 10 * time.Second

func serveCmd(envFile *string) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server. MCP is served on /mcp.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. Command line flags

Environment variables:
  HOST                 Server host to bind to (default: 0.0.0.0)
  PORT                 Server port to listen on (default: 8080)
  DATA_DIR             Base directory for the storage roots
  REPO_DIR             Working copies (default: {DATA_DIR}/repos)
  CONFIG_DIR           Repository config files (default: {DATA_DIR}/configs)
  ARCHIVE_DIR          Zip archives (default: {DATA_DIR}/archives)
  LOG_DIR              Operation logs (default: {DATA_DIR}/logs)
  LOG_LEVEL            Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT           Log format: pretty, json (default: pretty)
  WORKER_COUNT         Repositories updated at once (default: 2)
  COMMAND_TIMEOUT      Seconds per git/zip command, 0 for none (default: 0)
  CREDENTIAL_STORE     Where passwords are kept: file, keyring (default: file)
  OPERATION_HISTORY    Operations kept in memory (default: 200)
  NOTIFY_INTERVAL      Seconds between streamed step updates (default: 0.5)
  CORS_ORIGINS         Comma-separated allowed origins (default: *)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*envFile, host, port)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")

	return cmd
}

func runServe(envFile, host string, port int) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	cfg = applyServeOverrides(cfg, host, port)

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	a.logger.LogAttrs(context.Background(), slog.LevelInfo, "starting repokeeper", attrs...)

	mcpServer := mcp.NewServer(a.repos, a.journal, a.memory, version, a.logger)
	apiServer := api.NewAPIServer(a.repos, a.journal, a.memory, mcpServer, a.logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		<-sigChan
		a.logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := apiServer.Shutdown(ctx); err != nil {
			a.logger.Error("shutdown error", slog.Any("error", err))
		}
	}()

	if err := apiServer.ListenAndServe(cfg.Addr(), cfg.CORSOrigins()); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// applyServeOverrides applies command line flag overrides to the config.
func applyServeOverrides(cfg config.AppConfig, host string, port int) config.AppConfig {
	var opts []config.AppConfigOption

	if host != "" {
		opts = append(opts, config.WithHost(host))
	}
	if port != 0 {
		opts = append(opts, config.WithPort(port))
	}

	return cfg.Apply(opts...)
}
