// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	DefaultHost             = "0.0.0.0"
	DefaultPort             = 8080
	DefaultLogLevel         = "INFO"
	DefaultWorkerCount      = 2
	DefaultOperationHistory = 200
	DefaultNotifyInterval   = 500 * time.Millisecond
	DefaultCORSOrigins      = "*"
	DefaultAppName          = "repokeeper"
	DefaultRepoSubdir       = "repos"
	DefaultConfigSubdir     = "configs"
	DefaultArchiveSubdir    = "archives"
	DefaultLogSubdir        = "logs"
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// CredentialStore selects where repository passwords are kept.
type CredentialStore string

// CredentialStore values.
const (
	CredentialStoreFile    CredentialStore = "file"
	CredentialStoreKeyring CredentialStore = "keyring"
)

// Roots holds the four storage directories.
type Roots struct {
	repoDir    string
	configDir  string
	archiveDir string
	logDir     string
}

// NewRoots derives the four roots from a data directory.
func NewRoots(dataDir string) Roots {
	return Roots{
		repoDir:    filepath.Join(dataDir, DefaultRepoSubdir),
		configDir:  filepath.Join(dataDir, DefaultConfigSubdir),
		archiveDir: filepath.Join(dataDir, DefaultArchiveSubdir),
		logDir:     filepath.Join(dataDir, DefaultLogSubdir),
	}
}

// RepoDir returns the working copy root.
func (r Roots) RepoDir() string { return r.repoDir }

// ConfigDir returns the repository config root.
func (r Roots) ConfigDir() string { return r.configDir }

// ArchiveDir returns the archive root.
func (r Roots) ArchiveDir() string { return r.archiveDir }

// LogDir returns the operation log root.
func (r Roots) LogDir() string { return r.logDir }

// All returns every root in a stable order.
func (r Roots) All() []string {
	return []string{r.repoDir, r.configDir, r.archiveDir, r.logDir}
}

// AppConfig holds the resolved application configuration.
type AppConfig struct {
	host             string
	port             int
	dataDir          string
	roots            Roots
	logLevel         string
	logFormat        LogFormat
	workerCount      int
	commandTimeout   time.Duration
	credentialStore  CredentialStore
	operationHistory int
	notifyInterval   time.Duration
	corsOrigins      []string
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	if xdg.DataHome == "" {
		return "." + DefaultAppName
	}
	return filepath.Join(xdg.DataHome, DefaultAppName)
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	dataDir := DefaultDataDir()
	return AppConfig{
		host:             DefaultHost,
		port:             DefaultPort,
		dataDir:          dataDir,
		roots:            NewRoots(dataDir),
		logLevel:         DefaultLogLevel,
		logFormat:        LogFormatPretty,
		workerCount:      DefaultWorkerCount,
		credentialStore:  CredentialStoreFile,
		operationHistory: DefaultOperationHistory,
		notifyInterval:   DefaultNotifyInterval,
		corsOrigins:      ParseList(DefaultCORSOrigins),
	}
}

// Host returns the server host.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port.
func (c AppConfig) Port() int { return c.port }

// Addr returns the server address (host:port).
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory.
func (c AppConfig) DataDir() string { return c.dataDir }

// Roots returns the storage roots.
func (c AppConfig) Roots() Roots { return c.roots }

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// WorkerCount returns how many repositories are updated concurrently.
func (c AppConfig) WorkerCount() int { return c.workerCount }

// CommandTimeout returns the per-command timeout. Zero means none.
func (c AppConfig) CommandTimeout() time.Duration { return c.commandTimeout }

// CredentialStore returns the configured credential backend.
func (c AppConfig) CredentialStore() CredentialStore { return c.credentialStore }

// OperationHistory returns how many operations the live sink retains.
func (c AppConfig) OperationHistory() int { return c.operationHistory }

// NotifyInterval returns the minimum gap between step updates per operation.
func (c AppConfig) NotifyInterval() time.Duration { return c.notifyInterval }

// CORSOrigins returns the allowed CORS origins.
func (c AppConfig) CORSOrigins() []string {
	origins := make([]string, len(c.corsOrigins))
	copy(origins, c.corsOrigins)
	return origins
}

// EnsureDirs creates every storage root if it doesn't exist.
func (c AppConfig) EnsureDirs() error {
	for _, dir := range c.roots.All() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory and re-derives every root that
// still points inside the previous data directory.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) {
		old := NewRoots(c.dataDir)
		fresh := NewRoots(dir)
		if c.roots.repoDir == old.repoDir {
			c.roots.repoDir = fresh.repoDir
		}
		if c.roots.configDir == old.configDir {
			c.roots.configDir = fresh.configDir
		}
		if c.roots.archiveDir == old.archiveDir {
			c.roots.archiveDir = fresh.archiveDir
		}
		if c.roots.logDir == old.logDir {
			c.roots.logDir = fresh.logDir
		}
		c.dataDir = dir
	}
}

// WithRepoDir overrides the working copy root.
func WithRepoDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.roots.repoDir = dir }
}

// WithConfigDir overrides the repository config root.
func WithConfigDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.roots.configDir = dir }
}

// WithArchiveDir overrides the archive root.
func WithArchiveDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.roots.archiveDir = dir }
}

// WithLogDir overrides the operation log root.
func WithLogDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.roots.logDir = dir }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithWorkerCount sets the update concurrency.
func WithWorkerCount(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.workerCount = n
		}
	}
}

// WithCommandTimeout sets the per-command timeout.
func WithCommandTimeout(d time.Duration) AppConfigOption {
	return func(c *AppConfig) {
		if d >= 0 {
			c.commandTimeout = d
		}
	}
}

// WithCredentialStore sets the credential backend.
func WithCredentialStore(s CredentialStore) AppConfigOption {
	return func(c *AppConfig) { c.credentialStore = s }
}

// WithOperationHistory sets the number of operations retained in memory.
func WithOperationHistory(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.operationHistory = n
		}
	}
}

// WithNotifyInterval sets the step update throttle.
func WithNotifyInterval(d time.Duration) AppConfigOption {
	return func(c *AppConfig) {
		if d >= 0 {
			c.notifyInterval = d
		}
	}
}

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins []string) AppConfigOption {
	return func(c *AppConfig) { c.corsOrigins = origins }
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	c := NewAppConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Apply returns a new AppConfig with the given options applied.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LogAttrs returns slog attributes for logging the configuration.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("data_dir", c.dataDir),
		slog.String("repo_dir", c.roots.repoDir),
		slog.String("config_dir", c.roots.configDir),
		slog.String("archive_dir", c.roots.archiveDir),
		slog.String("log_dir", c.roots.logDir),
		slog.String("log_level", c.logLevel),
		slog.Int("worker_count", c.workerCount),
		slog.Duration("command_timeout", c.commandTimeout),
		slog.String("credential_store", string(c.credentialStore)),
		slog.Int("operation_history", c.operationHistory),
	}
}

// ParseList parses a comma-separated list, dropping blank entries.
func ParseList(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
