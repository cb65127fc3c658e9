package persistence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/repokeeper/repokeeper/domain/operation"
)

// LogStore keeps finished operation logs as TOML files.
// Implements operation.Store.
type LogStore struct {
	root   string
	mapper LogMapper
	logger *slog.Logger
}

var _ operation.Store = (*LogStore)(nil)

// NewLogStore creates a LogStore rooted at root.
func NewLogStore(root string, logger *slog.Logger) *LogStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogStore{root: root, logger: logger}
}

// Save writes a log under name.
func (s *LogStore) Save(_ context.Context, name string, snap operation.Snapshot) error {
	if name == "" || name != filepath.Base(name) {
		return fmt.Errorf("save operation log: invalid file name %q", name)
	}
	return writeTOML(filepath.Join(s.root, name), s.mapper.ToModel(snap))
}

// LoadAll reads every log below the root, including subdirectories,
// ordered by path. Files that are not TOML are ignored and unreadable
// ones are logged and skipped.
func (s *LogStore) LoadAll(ctx context.Context) ([]operation.Snapshot, error) {
	var paths []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.Type().IsRegular() && strings.HasSuffix(d.Name(), ".toml") && !strings.HasPrefix(d.Name(), ".") {
			paths = append(paths, path)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return []operation.Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("walk operation logs: %w", err)
	}
	sort.Strings(paths)

	logs := make([]operation.Snapshot, 0, len(paths))
	for _, path := range paths {
		var model LogModel
		if err := readTOML(path, &model); err != nil {
			s.logger.Warn("skipping unreadable operation log",
				slog.String("file", path),
				slog.Any("error", err),
			)
			continue
		}
		logs = append(logs, s.mapper.ToDomain(model))
	}
	return logs, nil
}
