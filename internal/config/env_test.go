package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "", cfg.DataDir)
	assert.Equal(t, "", cfg.RepoDir)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "pretty", cfg.LogFormat)
	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, 0.0, cfg.CommandTimeout)
	assert.Equal(t, "file", cfg.CredentialStore)
	assert.Equal(t, 200, cfg.OperationHistory)
	assert.Equal(t, 0.5, cfg.NotifyInterval)
	assert.Equal(t, "*", cfg.CORSOrigins)
}

func TestEnvDefaults_MatchConfigDefaults(t *testing.T) {
	clearEnvVars(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultWorkerCount, cfg.WorkerCount)
	assert.Equal(t, DefaultOperationHistory, cfg.OperationHistory)
	assert.Equal(t, DefaultNotifyInterval.Seconds(), cfg.NotifyInterval)
	assert.Equal(t, DefaultCORSOrigins, cfg.CORSOrigins)
}

func TestLoadFromEnv_OverrideValues(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DATA_DIR", "/srv/keeper")
	t.Setenv("ARCHIVE_DIR", "/mnt/backup")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("COMMAND_TIMEOUT", "90")
	t.Setenv("CREDENTIAL_STORE", " Keyring ")

	env, err := LoadFromEnv()
	require.NoError(t, err)
	cfg := env.Normalize().ToAppConfig()

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/srv/keeper", cfg.DataDir())
	assert.Equal(t, filepath.Join("/srv/keeper", "repos"), cfg.Roots().RepoDir())
	assert.Equal(t, filepath.Join("/srv/keeper", "configs"), cfg.Roots().ConfigDir())
	assert.Equal(t, "/mnt/backup", cfg.Roots().ArchiveDir())
	assert.Equal(t, filepath.Join("/srv/keeper", "logs"), cfg.Roots().LogDir())
	assert.Equal(t, 8, cfg.WorkerCount())
	assert.Equal(t, 90*time.Second, cfg.CommandTimeout())
	assert.Equal(t, CredentialStoreKeyring, cfg.CredentialStore())
}

func TestLoadFromEnvWithPrefix(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("REPOKEEPER_LOG_LEVEL", "DEBUG")

	cfg, err := LoadFromEnvWithPrefix("REPOKEEPER")
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
}

func TestLoadFromEnv_InvalidPort(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("PORT", "not-a-number")

	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestToAppConfig_UnknownValuesFallBack(t *testing.T) {
	env := EnvConfig{LogFormat: "xml", CredentialStore: "vault", WorkerCount: -1}
	cfg := env.ToAppConfig()

	assert.Equal(t, LogFormatPretty, cfg.LogFormat())
	assert.Equal(t, CredentialStoreFile, cfg.CredentialStore())
	assert.Equal(t, DefaultWorkerCount, cfg.WorkerCount())
}

func TestLoadDotEnv(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")
	content := `DATA_DIR=/from/dotenv
LOG_LEVEL=DEBUG
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	clearEnvVars(t)

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "/from/dotenv", os.Getenv("DATA_DIR"))
	assert.Equal(t, "DEBUG", os.Getenv("LOG_LEVEL"))
}

func TestLoadDotEnv_NonExistent(t *testing.T) {
	clearEnvVars(t)
	assert.NoError(t, LoadDotEnv("/nonexistent/.env"))
}

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")
	content := `DATA_DIR=/config/data
LOG_LEVEL=WARN
LOG_FORMAT=json
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	clearEnvVars(t)
	t.Setenv("LOG_LEVEL", "ERROR")

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)

	assert.Equal(t, "/config/data", cfg.DataDir())
	assert.Equal(t, "ERROR", cfg.LogLevel(), "environment wins over .env")
	assert.Equal(t, LogFormatJSON, cfg.LogFormat())
}

// clearEnvVars unsets every variable the config reads and restores
// the previous values when the test ends.
func clearEnvVars(t *testing.T) {
	t.Helper()

	vars := []string{
		"HOST",
		"PORT",
		"DATA_DIR",
		"REPO_DIR",
		"CONFIG_DIR",
		"ARCHIVE_DIR",
		"LOG_DIR",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"WORKER_COUNT",
		"COMMAND_TIMEOUT",
		"CREDENTIAL_STORE",
		"OPERATION_HISTORY",
		"NOTIFY_INTERVAL",
		"CORS_ORIGINS",
		"REPOKEEPER_LOG_LEVEL",
	}

	for _, v := range vars {
		t.Setenv(v, "")
		_ = os.Unsetenv(v)
	}
}
