package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/repokeeper/repokeeper/domain/operation"
	"github.com/repokeeper/repokeeper/domain/repository"
	domainservice "github.com/repokeeper/repokeeper/domain/service"
	applog "github.com/repokeeper/repokeeper/internal/log"
)

// Outcome is how a lifecycle operation ended.
type Outcome string

// Outcome values.
const (
	// OutcomeSkipped means nothing ran: the URL is invalid or the
	// repository is not tracked.
	OutcomeSkipped   Outcome = "skipped"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Record is one repository known by URL. Every lifecycle method is a
// no-op when the URL is invalid, and takes an optional log that only
// adds step reporting. Methods on records of the same project never
// run concurrently.
type Record struct {
	owner    *Repositories
	loc      repository.Locator
	location string
	// username and password as given to Open.
	username string
	password string

	mu     sync.RWMutex
	cloned bool
}

// URL returns the canonical URL, with credentials when both are known.
func (r *Record) URL() string { return r.loc.URL() }

// RedactedURL returns the canonical URL with the password masked.
func (r *Record) RedactedURL() string { return r.loc.Redacted() }

// OriginalURL returns the URL as supplied.
func (r *Record) OriginalURL() string { return r.loc.OriginalURL() }

// Username returns the username in use, if any.
func (r *Record) Username() string { return r.loc.Username() }

// Password returns the password in use, if any.
func (r *Record) Password() string { return r.loc.Password() }

// URLType returns the classified transport.
func (r *Record) URLType() repository.URLType { return r.loc.Type() }

// ProjectName returns the project name.
func (r *Record) ProjectName() string { return r.loc.ProjectName() }

// Location returns the working copy path, or "" when the URL is invalid.
func (r *Record) Location() string { return r.location }

// Invalid reports whether the URL could not be classified.
func (r *Record) Invalid() bool { return r.loc.Invalid() }

// Cloned reports whether a working copy is believed present.
func (r *Record) Cloned() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cloned
}

func (r *Record) setCloned(v bool) {
	r.mu.Lock()
	r.cloned = v
	r.mu.Unlock()
}

// ConfigPath returns where the record's config file lives.
func (r *Record) ConfigPath() string {
	return r.owner.configs.Path(r.ProjectName())
}

// ArchivePath returns where the record's archive lives.
func (r *Record) ArchivePath() string {
	return filepath.Join(r.owner.roots.ArchiveDir(), r.ProjectName()+".zip")
}

// Tracked reports whether the record's config file exists.
func (r *Record) Tracked() bool {
	return !r.Invalid() && r.owner.configs.Exists(r.ProjectName())
}

func (r *Record) lock() func() {
	return r.owner.locks.lock(r.ProjectName())
}

func (r *Record) logger() *slog.Logger {
	return r.owner.logger.With(slog.String("project", r.ProjectName()))
}

// tagged adds the project and, when log is set, the operation ID to ctx
// so external commands are logged with them.
func (r *Record) tagged(ctx context.Context, log *operation.Log) context.Context {
	ctx = applog.WithProject(ctx, r.ProjectName())
	if id := log.ID(); id != "" {
		ctx = applog.WithOperationID(ctx, id)
	}
	return ctx
}

// background runs fn under the project lock in a new goroutine.
func (r *Record) background(fn func() (Outcome, error)) *domainservice.Future[Outcome] {
	f, resolve := domainservice.NewFuture[Outcome]()
	go func() {
		unlock := r.lock()
		defer unlock()
		resolve(fn())
	}()
	return f
}

// Clone clones the repository into its location. On success the record
// is marked cloned and its config file is written.
func (r *Record) Clone(ctx context.Context, log *operation.Log) *domainservice.Future[Outcome] {
	if r.Invalid() {
		return domainservice.Resolved(OutcomeSkipped, nil)
	}
	ctx = r.tagged(ctx, log)
	return r.background(func() (Outcome, error) {
		return r.clone(ctx, log)
	})
}

func (r *Record) clone(ctx context.Context, log *operation.Log) (Outcome, error) {
	cmd := domainservice.Command{
		Program: "git",
		Args:    []string{"clone", r.loc.CloneURL(), r.location},
		Env:     r.gitEnv(),
	}
	step := log.AddStep("Cloning repository", "git clone "+r.RedactedURL(), operation.StatusNormal)
	err := r.run(ctx, cmd)
	log.FinishStep(step)
	if err != nil {
		log.AddInstantStep("Clone failed", err.Error(), operation.StatusError)
		r.logger().Warn("clone failed", slog.Any("error", err))
		return OutcomeFailed, fmt.Errorf("clone %s: %w", r.ProjectName(), err)
	}

	r.setCloned(true)
	if err := r.saveConfig(ctx); err != nil {
		log.AddInstantStep("Config file not written", err.Error(), operation.StatusWarning)
	}
	log.AddInstantStep("Repository cloned", r.location, operation.StatusNormal)
	r.logger().Info("repository cloned", slog.String("location", r.location))
	return OutcomeSucceeded, nil
}

// Compress zips location, or subdir below it, and moves the archive to
// the archive root. Untracked repositories are skipped.
func (r *Record) Compress(ctx context.Context, subdir string, log *operation.Log) *domainservice.Future[Outcome] {
	if r.Invalid() {
		return domainservice.Resolved(OutcomeSkipped, nil)
	}
	ctx = r.tagged(ctx, log)
	return r.background(func() (Outcome, error) {
		return r.compress(ctx, subdir, log)
	})
}

// CompressSync is Compress without step logging, blocking until both
// phases are done.
func (r *Record) CompressSync(ctx context.Context, subdir string) (Outcome, error) {
	if r.Invalid() {
		return OutcomeSkipped, nil
	}
	unlock := r.lock()
	defer unlock()
	return r.compress(r.tagged(ctx, nil), subdir, nil)
}

func (r *Record) compress(ctx context.Context, subdir string, log *operation.Log) (Outcome, error) {
	if !r.Tracked() {
		log.AddInstantStep("Repository not tracked", r.ConfigPath(), operation.StatusWarning)
		return OutcomeSkipped, nil
	}
	dir, err := r.within(subdir)
	if err != nil {
		log.AddInstantStep("Archive creation failed", err.Error(), operation.StatusError)
		return OutcomeFailed, err
	}

	name := r.ProjectName() + ".zip"
	zip := domainservice.Command{Program: "zip", Args: []string{"-r", name, "."}, Dir: dir}
	step := log.AddStep("Creating archive", zip.String(), operation.StatusNormal)
	err = r.run(ctx, zip)
	log.FinishStep(step)
	if err != nil {
		log.AddInstantStep("Archive creation failed", err.Error(), operation.StatusError)
		r.logger().Warn("archive creation failed", slog.Any("error", err))
		return OutcomeFailed, fmt.Errorf("compress %s: %w", r.ProjectName(), err)
	}

	target := r.ArchivePath()
	move := domainservice.Command{Program: "mv", Args: []string{filepath.Join(dir, name), target}}
	step = log.AddStep("Moving archive", target, operation.StatusNormal)
	err = os.MkdirAll(filepath.Dir(target), 0o755)
	if err == nil {
		err = r.run(ctx, move)
	}
	log.FinishStep(step)
	if err != nil {
		log.AddInstantStep("Archive move failed", err.Error(), operation.StatusError)
		r.logger().Warn("archive move failed", slog.Any("error", err))
		return OutcomeFailed, fmt.Errorf("move archive %s: %w", r.ProjectName(), err)
	}

	log.AddInstantStep("Repository compressed", target, operation.StatusNormal)
	return OutcomeSucceeded, nil
}

// Update pulls the latest changes into the working copy. Untracked
// repositories are skipped.
func (r *Record) Update(ctx context.Context, log *operation.Log) *domainservice.Future[Outcome] {
	if r.Invalid() {
		return domainservice.Resolved(OutcomeSkipped, nil)
	}
	ctx = r.tagged(ctx, log)
	return r.background(func() (Outcome, error) {
		return r.update(ctx, log)
	})
}

// UpdateSync is Update without step logging, blocking until the pull exits.
func (r *Record) UpdateSync(ctx context.Context) (Outcome, error) {
	if r.Invalid() {
		return OutcomeSkipped, nil
	}
	unlock := r.lock()
	defer unlock()
	return r.update(r.tagged(ctx, nil), nil)
}

func (r *Record) update(ctx context.Context, log *operation.Log) (Outcome, error) {
	if !r.Tracked() {
		log.AddInstantStep("Repository not tracked", r.ConfigPath(), operation.StatusWarning)
		return OutcomeSkipped, nil
	}
	cmd := domainservice.Command{Program: "git", Args: []string{"pull"}, Dir: r.location, Env: r.gitEnv()}
	step := log.AddStep("Pulling changes", r.RedactedURL(), operation.StatusNormal)
	err := r.run(ctx, cmd)
	log.FinishStep(step)
	if err != nil {
		log.AddInstantStep("Update failed", err.Error(), operation.StatusError)
		r.logger().Warn("update failed", slog.Any("error", err))
		return OutcomeFailed, fmt.Errorf("update %s: %w", r.ProjectName(), err)
	}
	log.AddInstantStep("Repository updated", r.location, operation.StatusNormal)
	return OutcomeSucceeded, nil
}

// ListDirectory returns the names of the directories directly under path,
// relative to the working copy. It fails with repository.ErrInvalidURL or
// repository.ErrNotTracked when there is nothing to list.
func (r *Record) ListDirectory(ctx context.Context, path string) ([]string, error) {
	if r.Invalid() {
		return nil, repository.ErrInvalidURL
	}
	unlock := r.lock()
	defer unlock()

	if !r.Tracked() {
		return nil, fmt.Errorf("list %s: %w", r.ProjectName(), repository.ErrNotTracked)
	}
	dir, err := r.within(path)
	if err != nil {
		return nil, err
	}

	cmd := domainservice.Command{Program: "ls", Args: []string{"-1", "-p"}, Dir: dir}
	res, err := r.owner.exec.Run(r.tagged(ctx, nil), cmd)
	if err == nil {
		err = res.Err(cmd)
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.ProjectName(), err)
	}

	dirs := make([]string, 0)
	for _, line := range strings.Split(string(res.Output), "\n") {
		if name, ok := strings.CutSuffix(strings.TrimSpace(line), "/"); ok && name != "" {
			dirs = append(dirs, name)
		}
	}
	return dirs, nil
}

// DeleteConfigFile removes the config file and any stored credential.
// A missing file is reported as a step, not an error.
func (r *Record) DeleteConfigFile(ctx context.Context, log *operation.Log) error {
	if r.Invalid() {
		return nil
	}
	unlock := r.lock()
	defer unlock()
	return r.deleteConfigFile(ctx, log)
}

func (r *Record) deleteConfigFile(ctx context.Context, log *operation.Log) error {
	path := r.ConfigPath()
	err := r.owner.configs.Delete(ctx, r.ProjectName())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		log.AddInstantStep("Config file not found", path, operation.StatusWarning)
		return nil
	case err != nil:
		log.AddInstantStep("Config file not removed", err.Error(), operation.StatusError)
		return err
	}
	if creds := r.owner.creds; creds != nil {
		if err := creds.Delete(r.ProjectName()); err != nil {
			r.logger().Warn("failed to delete stored credential", slog.Any("error", err))
		}
	}
	log.AddInstantStep("Config file removed", path, operation.StatusNormal)
	return nil
}

// DeleteRepository removes the working copy. A missing directory is
// reported as a step, not an error.
func (r *Record) DeleteRepository(ctx context.Context, log *operation.Log) error {
	if r.Invalid() {
		return nil
	}
	unlock := r.lock()
	defer unlock()
	return r.deleteRepository(ctx, log)
}

func (r *Record) deleteRepository(_ context.Context, log *operation.Log) error {
	if _, err := os.Stat(r.location); errors.Is(err, fs.ErrNotExist) {
		r.setCloned(false)
		log.AddInstantStep("Repository not found", r.location, operation.StatusWarning)
		return nil
	}
	if err := os.RemoveAll(r.location); err != nil {
		log.AddInstantStep("Repository not removed", err.Error(), operation.StatusError)
		return fmt.Errorf("delete repository %s: %w", r.ProjectName(), err)
	}
	r.setCloned(false)
	log.AddInstantStep("Repository removed", r.location, operation.StatusNormal)
	return nil
}

// DeleteArchive removes the archive. A missing archive is reported as a
// step, not an error.
func (r *Record) DeleteArchive(ctx context.Context, log *operation.Log) error {
	if r.Invalid() {
		return nil
	}
	unlock := r.lock()
	defer unlock()
	return r.deleteArchive(ctx, log)
}

func (r *Record) deleteArchive(_ context.Context, log *operation.Log) error {
	path := r.ArchivePath()
	err := os.Remove(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.AddInstantStep("Archive not found", path, operation.StatusWarning)
		return nil
	case err != nil:
		log.AddInstantStep("Archive not removed", err.Error(), operation.StatusError)
		return fmt.Errorf("delete archive %s: %w", r.ProjectName(), err)
	}
	log.AddInstantStep("Archive removed", path, operation.StatusNormal)
	return nil
}

// DeleteAll removes the config file, the working copy and the archive,
// then stops log. Each removal runs even when an earlier one failed.
func (r *Record) DeleteAll(ctx context.Context, log *operation.Log) error {
	if r.Invalid() {
		return nil
	}
	unlock := r.lock()
	log.AddInstantStep("Preparing", "removing "+r.ProjectName(), operation.StatusNormal)
	err := errors.Join(
		r.deleteConfigFile(ctx, log),
		r.deleteRepository(ctx, log),
		r.deleteArchive(ctx, log),
	)
	if err != nil {
		log.AddInstantStep("Finished with errors", err.Error(), operation.StatusDanger)
	} else {
		log.AddInstantStep("Finished", r.ProjectName()+" removed", operation.StatusNormal)
	}
	unlock()

	if stopErr := log.Stop(ctx); stopErr != nil {
		err = errors.Join(err, stopErr)
	}
	return err
}

// CreateConfigFile writes the record's config file, replacing any
// previous one. Failures are logged and returned.
func (r *Record) CreateConfigFile(ctx context.Context) error {
	if r.Invalid() {
		return nil
	}
	unlock := r.lock()
	defer unlock()
	return r.saveConfig(ctx)
}

func (r *Record) saveConfig(ctx context.Context) error {
	cfg := repository.Config{
		URL:         r.loc.CloneURL(),
		OriginalURL: r.loc.OriginalURL(),
		Cloned:      r.Cloned(),
		ProjectName: r.ProjectName(),
		URLType:     r.URLType(),
	}
	cfg.Username, cfg.Password = r.persistedCredentials()
	if creds := r.owner.creds; creds != nil {
		if cfg.Password != "" {
			if err := creds.Set(cfg.ProjectName, cfg.Password); err != nil {
				r.logger().Error("failed to store credential", slog.Any("error", err))
				return fmt.Errorf("store credential %s: %w", cfg.ProjectName, err)
			}
		}
		cfg.Password = ""
		cfg.OriginalURL = withoutPassword(cfg.OriginalURL)
	}
	if err := r.owner.configs.Save(ctx, cfg); err != nil {
		r.logger().Error("failed to write repository config", slog.Any("error", err))
		return err
	}
	return nil
}

// persistedCredentials returns the pair that reopening the config must be
// given to rebuild the same credentials: the pair in effect when there is
// one, otherwise the values given to Open.
func (r *Record) persistedCredentials() (username, password string) {
	if user, pass, ok := r.loc.Credentials(); ok {
		return user, pass
	}
	return r.username, r.password
}

// run executes cmd and folds a non-zero exit into the error.
func (r *Record) run(ctx context.Context, cmd domainservice.Command) error {
	res, err := r.owner.exec.Run(ctx, cmd)
	if err != nil {
		return err
	}
	return res.Err(cmd)
}

// gitEnv keeps git non-interactive and hands it the credentials as an
// authorization header so they never appear in process arguments.
func (r *Record) gitEnv() []string {
	env := []string{"GIT_TERMINAL_PROMPT=0"}
	user, pass, ok := r.loc.Credentials()
	if !ok {
		return env
	}
	token := base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
	return append(env,
		"GIT_CONFIG_COUNT=1",
		"GIT_CONFIG_KEY_0=http.extraHeader",
		"GIT_CONFIG_VALUE_0=Authorization: Basic "+token,
	)
}

// within resolves rel below the working copy.
func (r *Record) within(rel string) (string, error) {
	dir := filepath.Join(r.location, rel)
	inside, err := filepath.Rel(r.location, dir)
	if err != nil || inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q: %w", rel, ErrInvalidPath)
	}
	return dir, nil
}

func withoutPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); !ok {
		return raw
	}
	u.User = url.User(u.User.Username())
	return u.String()
}
