package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration.
type EnvConfig struct {
	// Host is the API server host to bind to.
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the API server port.
	// Env: PORT (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// DataDir is the base directory for all storage roots.
	// Env: DATA_DIR
	// Default: $XDG_DATA_HOME/repokeeper
	DataDir string `envconfig:"DATA_DIR"`

	// RepoDir holds working copies.
	// Env: REPO_DIR (default: {data_dir}/repos)
	RepoDir string `envconfig:"REPO_DIR"`

	// ConfigDir holds one TOML file per tracked repository.
	// Env: CONFIG_DIR (default: {data_dir}/configs)
	ConfigDir string `envconfig:"CONFIG_DIR"`

	// ArchiveDir holds compressed archives.
	// Env: ARCHIVE_DIR (default: {data_dir}/archives)
	ArchiveDir string `envconfig:"ARCHIVE_DIR"`

	// LogDir holds finished operation logs.
	// Env: LOG_DIR (default: {data_dir}/logs)
	LogDir string `envconfig:"LOG_DIR"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// WorkerCount bounds concurrent repository updates.
	// Env: WORKER_COUNT (default: 2)
	WorkerCount int `envconfig:"WORKER_COUNT" default:"2"`

	// CommandTimeout is the per external command timeout in seconds.
	// Env: COMMAND_TIMEOUT (default: 0, no timeout)
	CommandTimeout float64 `envconfig:"COMMAND_TIMEOUT" default:"0"`

	// CredentialStore is file or keyring.
	// Env: CREDENTIAL_STORE (default: file)
	CredentialStore string `envconfig:"CREDENTIAL_STORE" default:"file"`

	// OperationHistory is the number of operations kept for live display.
	// Env: OPERATION_HISTORY (default: 200)
	OperationHistory int `envconfig:"OPERATION_HISTORY" default:"200"`

	// NotifyInterval is the minimum seconds between step notifications
	// for one operation.
	// Env: NOTIFY_INTERVAL (default: 0.5)
	NotifyInterval float64 `envconfig:"NOTIFY_INTERVAL" default:"0.5"`

	// CORSOrigins is a comma-separated list of allowed origins.
	// Env: CORS_ORIGINS (default: *)
	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"*"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	return LoadFromEnvWithPrefix("")
}

// LoadFromEnvWithPrefix loads configuration with a custom prefix.
// For example, prefix "REPOKEEPER" would require REPOKEEPER_DATA_DIR instead of DATA_DIR.
func LoadFromEnvWithPrefix(prefix string) (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// Normalize trims whitespace from path and enum values.
func (e EnvConfig) Normalize() EnvConfig {
	e.DataDir = strings.TrimSpace(e.DataDir)
	e.RepoDir = strings.TrimSpace(e.RepoDir)
	e.ConfigDir = strings.TrimSpace(e.ConfigDir)
	e.ArchiveDir = strings.TrimSpace(e.ArchiveDir)
	e.LogDir = strings.TrimSpace(e.LogDir)
	e.CredentialStore = strings.ToLower(strings.TrimSpace(e.CredentialStore))
	e.LogFormat = strings.ToLower(strings.TrimSpace(e.LogFormat))
	return e
}

// ToAppConfig converts EnvConfig to AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	cfg := NewAppConfig()

	if e.Host != "" {
		cfg = applyOption(cfg, WithHost(e.Host))
	}
	if e.Port != 0 {
		cfg = applyOption(cfg, WithPort(e.Port))
	}
	if e.DataDir != "" {
		cfg = applyOption(cfg, WithDataDir(e.DataDir))
	}
	if e.RepoDir != "" {
		cfg = applyOption(cfg, WithRepoDir(e.RepoDir))
	}
	if e.ConfigDir != "" {
		cfg = applyOption(cfg, WithConfigDir(e.ConfigDir))
	}
	if e.ArchiveDir != "" {
		cfg = applyOption(cfg, WithArchiveDir(e.ArchiveDir))
	}
	if e.LogDir != "" {
		cfg = applyOption(cfg, WithLogDir(e.LogDir))
	}
	if e.LogLevel != "" {
		cfg = applyOption(cfg, WithLogLevel(e.LogLevel))
	}
	if e.LogFormat != "" {
		cfg = applyOption(cfg, WithLogFormat(parseLogFormat(e.LogFormat)))
	}
	cfg = applyOption(cfg, WithWorkerCount(e.WorkerCount))
	cfg = applyOption(cfg, WithCommandTimeout(seconds(e.CommandTimeout)))
	cfg = applyOption(cfg, WithCredentialStore(parseCredentialStore(e.CredentialStore)))
	cfg = applyOption(cfg, WithOperationHistory(e.OperationHistory))
	cfg = applyOption(cfg, WithNotifyInterval(seconds(e.NotifyInterval)))
	if e.CORSOrigins != "" {
		cfg = applyOption(cfg, WithCORSOrigins(ParseList(e.CORSOrigins)))
	}

	return cfg
}

// applyOption applies an option to the config.
func applyOption(cfg AppConfig, opt AppConfigOption) AppConfig {
	opt(&cfg)
	return cfg
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// parseLogFormat parses a log format string.
func parseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON
	default:
		return LogFormatPretty
	}
}

func parseCredentialStore(s string) CredentialStore {
	if strings.EqualFold(s, string(CredentialStoreKeyring)) {
		return CredentialStoreKeyring
	}
	return CredentialStoreFile
}
