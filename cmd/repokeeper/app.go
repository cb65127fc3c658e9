package main

import (
	"fmt"
	"log/slog"

	"github.com/repokeeper/repokeeper/application/service"
	"github.com/repokeeper/repokeeper/domain/operation"
	"github.com/repokeeper/repokeeper/infrastructure/persistence"
	"github.com/repokeeper/repokeeper/infrastructure/process"
	"github.com/repokeeper/repokeeper/infrastructure/tracking"
	"github.com/repokeeper/repokeeper/internal/config"
	"github.com/repokeeper/repokeeper/internal/log"
)

// app holds the components every command shares.
type app struct {
	cfg      config.AppConfig
	logger   *slog.Logger
	repos    *service.Repositories
	journal  *operation.Journal
	memory   *tracking.Memory
	throttle *tracking.Throttle
}

// newApp loads configuration, creates the storage roots and wires the
// repository manager to the operation journal. Operation snapshots go to
// the in-memory history through a throttle and to the logger.
func newApp(cfg config.AppConfig) (*app, error) {
	if err := cfg.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("create data directories: %w", err)
	}

	appLogger := log.Configure(cfg)
	logger := appLogger.Slog()
	roots := cfg.Roots()

	exec := process.NewExecutor(
		process.WithTimeout(cfg.CommandTimeout()),
		process.WithLogger(appLogger),
	)

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithWorkers(cfg.WorkerCount()),
	}
	if cfg.CredentialStore() == config.CredentialStoreKeyring {
		opts = append(opts, service.WithCredentialStore(persistence.NewKeyringStore(persistence.DefaultKeyringService)))
	}
	repos := service.NewRepositories(roots, exec, persistence.NewConfigStore(roots.ConfigDir(), logger), opts...)

	memory := tracking.NewMemory(cfg.OperationHistory())
	throttle := tracking.NewThrottle(memory, cfg.NotifyInterval())
	journal := operation.NewJournal(
		persistence.NewLogStore(roots.LogDir(), logger),
		operation.WithSink(tracking.NewFanout(throttle, tracking.NewLoggingSink(logger))),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		repos:    repos,
		journal:  journal,
		memory:   memory,
		throttle: throttle,
	}, nil
}

// loadApp is loadConfig followed by newApp.
func loadApp(envFile string) (*app, error) {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return nil, err
	}
	return newApp(cfg)
}

// Close flushes pending operation updates.
func (a *app) Close() {
	if err := a.throttle.Close(); err != nil {
		a.logger.Error("failed to flush operation updates", slog.Any("error", err))
	}
}
