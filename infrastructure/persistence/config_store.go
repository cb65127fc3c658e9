package persistence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/repokeeper/repokeeper/domain/repository"
)

const configExt = ".toml"

// ConfigStore keeps one TOML file per project under a root directory.
// Implements repository.ConfigStore.
type ConfigStore struct {
	root   string
	mapper ConfigMapper
	logger *slog.Logger
}

var _ repository.ConfigStore = (*ConfigStore)(nil)

// NewConfigStore creates a ConfigStore rooted at root.
func NewConfigStore(root string, logger *slog.Logger) *ConfigStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigStore{root: root, logger: logger}
}

// Path returns the config file path for a project.
func (s *ConfigStore) Path(projectName string) string {
	return filepath.Join(s.root, projectName+configExt)
}

// Exists reports whether the project has a config file.
func (s *ConfigStore) Exists(projectName string) bool {
	info, err := os.Stat(s.Path(projectName))
	return err == nil && info.Mode().IsRegular()
}

// Save writes cfg, replacing any previous file.
func (s *ConfigStore) Save(_ context.Context, cfg repository.Config) error {
	if cfg.ProjectName == "" {
		return fmt.Errorf("save config: %w", repository.ErrInvalidURL)
	}
	if !repository.ValidProjectName(cfg.ProjectName) {
		return fmt.Errorf("save config %q: %w", cfg.ProjectName, repository.ErrInvalidName)
	}
	if err := writeTOML(s.Path(cfg.ProjectName), s.mapper.ToModel(cfg)); err != nil {
		return fmt.Errorf("save config %s: %w", cfg.ProjectName, err)
	}
	return nil
}

// Load reads a project's config.
func (s *ConfigStore) Load(_ context.Context, projectName string) (repository.Config, error) {
	if !repository.ValidProjectName(projectName) {
		return repository.Config{}, fmt.Errorf("load config %q: %w", projectName, repository.ErrInvalidName)
	}
	path := s.Path(projectName)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return repository.Config{}, fmt.Errorf("load config %s: %w", projectName, repository.ErrNotFound)
	}
	var model ConfigModel
	if err := readTOML(path, &model); err != nil {
		return repository.Config{}, fmt.Errorf("load config %s: %w", projectName, err)
	}
	return s.mapper.ToDomain(model), nil
}

// Delete removes a project's config file.
func (s *ConfigStore) Delete(_ context.Context, projectName string) error {
	if !repository.ValidProjectName(projectName) {
		return fmt.Errorf("delete config %q: %w", projectName, repository.ErrInvalidName)
	}
	err := os.Remove(s.Path(projectName))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete config %s: %w", projectName, repository.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete config %s: %w", projectName, err)
	}
	return nil
}

// LoadAll reads every config under the root, ordered by file name.
// Unreadable files are logged and skipped.
func (s *ConfigStore) LoadAll(_ context.Context) ([]repository.Config, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return []repository.Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), configExt) && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	configs := make([]repository.Config, 0, len(names))
	for _, name := range names {
		var model ConfigModel
		if err := readTOML(filepath.Join(s.root, name), &model); err != nil {
			s.logger.Warn("skipping unreadable repository config",
				slog.String("file", name),
				slog.Any("error", err),
			)
			continue
		}
		configs = append(configs, s.mapper.ToDomain(model))
	}
	return configs, nil
}
