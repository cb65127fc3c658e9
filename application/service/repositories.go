// Package service implements the repository lifecycle: cloning, updating,
// compressing, listing and deleting tracked git repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/repokeeper/repokeeper/domain/operation"
	"github.com/repokeeper/repokeeper/domain/repository"
	domainservice "github.com/repokeeper/repokeeper/domain/service"
	"github.com/repokeeper/repokeeper/internal/config"
	"golang.org/x/sync/errgroup"
)

// Repositories opens records and owns what they share: the directory
// roots, the executor, the stores and one lock per project name.
type Repositories struct {
	roots   config.Roots
	exec    domainservice.Executor
	configs repository.ConfigStore
	creds   repository.CredentialStore
	workers int
	logger  *slog.Logger
	locks   *projectLocks
}

// Option configures Repositories.
type Option func(*Repositories)

// WithCredentialStore keeps passwords in s instead of the config files.
func WithCredentialStore(s repository.CredentialStore) Option {
	return func(r *Repositories) { r.creds = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repositories) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithWorkers bounds how many repositories UpdateAll pulls at once.
func WithWorkers(n int) Option {
	return func(r *Repositories) {
		if n > 0 {
			r.workers = n
		}
	}
}

// NewRepositories creates a Repositories manager.
func NewRepositories(
	roots config.Roots,
	exec domainservice.Executor,
	configs repository.ConfigStore,
	opts ...Option,
) *Repositories {
	r := &Repositories{
		roots:   roots,
		exec:    exec,
		configs: configs,
		workers: config.DefaultWorkerCount,
		logger:  slog.Default(),
		locks:   newProjectLocks(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open classifies raw and returns its record. Whether the working copy
// exists is checked on disk now.
func (r *Repositories) Open(raw, username, password string) *Record {
	loc := repository.Parse(raw, username, password)
	rec := &Record{
		owner:    r,
		loc:      loc,
		location: loc.Location(r.roots.RepoDir()),
		username: username,
		password: password,
	}
	if rec.location != "" {
		info, err := os.Stat(rec.location)
		rec.cloned = err == nil && info.IsDir()
	}
	return rec
}

// LoadAll rebuilds a record from every persisted config.
func (r *Repositories) LoadAll(ctx context.Context) ([]*Record, error) {
	configs, err := r.configs.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load repositories: %w", err)
	}
	records := make([]*Record, 0, len(configs))
	for _, cfg := range configs {
		rec := r.fromConfig(cfg)
		if rec.Invalid() {
			r.logger.Warn("persisted repository has an invalid url",
				slog.String("project", cfg.ProjectName),
			)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Get rebuilds the record of one tracked project.
func (r *Repositories) Get(ctx context.Context, projectName string) (*Record, error) {
	if !repository.ValidProjectName(projectName) {
		return nil, fmt.Errorf("get repository %q: %w", projectName, repository.ErrInvalidName)
	}
	cfg, err := r.configs.Load(ctx, projectName)
	if err != nil {
		return nil, fmt.Errorf("get repository: %w", err)
	}
	return r.fromConfig(cfg), nil
}

func (r *Repositories) fromConfig(cfg repository.Config) *Record {
	password := cfg.Password
	if password == "" && cfg.Username != "" && r.creds != nil {
		secret, err := r.creds.Get(cfg.ProjectName)
		switch {
		case err == nil:
			password = secret
		case !errors.Is(err, repository.ErrNotFound):
			r.logger.Warn("failed to read stored credential",
				slog.String("project", cfg.ProjectName),
				slog.Any("error", err),
			)
		}
	}
	return r.Open(cfg.SourceURL(), cfg.Username, password)
}

// UpdateResult is the outcome of pulling one repository in UpdateAll.
type UpdateResult struct {
	ProjectName string
	Outcome     Outcome
	Err         error
}

// UpdateAll pulls every tracked repository, at most the configured
// number at once. Each pull gets its own log when journal is not nil.
// Individual failures are reported in the results; the error is only
// set when the repositories could not be loaded.
func (r *Repositories) UpdateAll(ctx context.Context, journal *operation.Journal) ([]UpdateResult, error) {
	records, err := r.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]UpdateResult, len(records))
	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, rec := range records {
		g.Go(func() error {
			log := StartLog(journal, OperationUpdate, rec.ProjectName())
			outcome, err := r.Complete(ctx, log, rec.Update(ctx, log))
			results[i] = UpdateResult{ProjectName: rec.ProjectName(), Outcome: outcome, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// Complete waits for f and then stops log. A log that cannot be
// persisted is reported on the logger; the outcome is returned as is.
func (r *Repositories) Complete(
	ctx context.Context,
	log *operation.Log,
	f *domainservice.Future[Outcome],
) (Outcome, error) {
	outcome, err := f.Wait(ctx)
	if stopErr := log.Stop(context.WithoutCancel(ctx)); stopErr != nil && !errors.Is(stopErr, operation.ErrStopped) {
		r.logger.Warn("failed to persist operation log",
			slog.String("operation_id", log.ID()),
			slog.Any("error", stopErr),
		)
	}
	return outcome, err
}

// Operation names recorded in logs.
const (
	OperationClone     = "Clone Repository"
	OperationUpdate    = "Update Repository"
	OperationCompress  = "Compress Repository"
	OperationDeleteAll = "Delete All Repository"
)

// StartLog starts a log on journal, or returns nil when journal is nil.
func StartLog(journal *operation.Journal, name, message string) *operation.Log {
	if journal == nil {
		return nil
	}
	return journal.Start(name, message)
}
