package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every REVIEWRELAY_ env var that Load() reads.
var allConfigKeys = []string{
	"REVIEWRELAY_CONFIG",
	"REVIEWRELAY_LISTEN_ADDR",
	"REVIEWRELAY_DB_PATH",
	"REVIEWRELAY_SIGNAL_DIR",
	"REVIEWRELAY_SIGNAL_MAX_AGE",
	"REVIEWRELAY_SWEEP_SCHEDULE",
	"REVIEWRELAY_LOG_LEVEL",
	"REVIEWRELAY_GITHUB_TOKEN",
	"REVIEWRELAY_CLIENT_NAME",
}

// isolateConfigEnv unsets all REVIEWRELAY_ env vars, points HOME at a temp
// dir, and runs the test from an empty directory so no .env or config file
// from the host leaks in. It returns the fake home.
func isolateConfigEnv(t *testing.T) string {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad_Defaults(t *testing.T) {
	home := isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7420", cfg.ListenAddr)
	assert.Equal(t, filepath.Join(home, ".reviewrelay", "reviewrelay.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join(home, ".reviewrelay", "signals"), cfg.SignalDir)
	assert.Equal(t, 168*time.Hour, cfg.SignalMaxAge)
	assert.Equal(t, "@every 1h", cfg.SweepSchedule)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.False(t, cfg.HasGitHubToken())
}

func TestLoad_Env(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("REVIEWRELAY_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("REVIEWRELAY_DB_PATH", "/tmp/test.db")
	t.Setenv("REVIEWRELAY_SIGNAL_DIR", "/tmp/signals")
	t.Setenv("REVIEWRELAY_SIGNAL_MAX_AGE", "2h")
	t.Setenv("REVIEWRELAY_SWEEP_SCHEDULE", "*/5 * * * *")
	t.Setenv("REVIEWRELAY_LOG_LEVEL", "debug")
	t.Setenv("REVIEWRELAY_GITHUB_TOKEN", "ghp_test123")
	t.Setenv("REVIEWRELAY_CLIENT_NAME", "agent-1")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, "/tmp/signals", cfg.SignalDir)
	assert.Equal(t, 2*time.Hour, cfg.SignalMaxAge)
	assert.Equal(t, "*/5 * * * *", cfg.SweepSchedule)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.True(t, cfg.HasGitHubToken())
	assert.Equal(t, "agent-1", cfg.ClientName)
}

func TestLoad_YAMLFileThenEnvOverride(t *testing.T) {
	home := isolateConfigEnv(t)
	path := filepath.Join(t.TempDir(), "reviewrelay.yaml")
	writeFile(t, path, "listen_addr: 127.0.0.1:8000\ndb_path: ~/data/rr.db\nsignal_max_age: 24h\nlog_level: warn\n")
	t.Setenv("REVIEWRELAY_CONFIG", path)
	t.Setenv("REVIEWRELAY_LISTEN_ADDR", "127.0.0.1:9000")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.Equal(t, filepath.Join(home, "data", "rr.db"), cfg.DBPath)
	assert.Equal(t, 24*time.Hour, cfg.SignalMaxAge)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
}

func TestLoad_DefaultConfigFileInHome(t *testing.T) {
	home := isolateConfigEnv(t)
	writeFile(t, filepath.Join(home, ".reviewrelay", "config.yaml"), "client_name: from-file\n")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.ClientName)
}

func TestLoad_ExplicitConfigMissing(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("REVIEWRELAY_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent.yaml")
}

func TestLoad_DotEnv(t *testing.T) {
	isolateConfigEnv(t)
	writeFile(t, ".env", "REVIEWRELAY_CLIENT_NAME=dotenv-agent\n")
	t.Cleanup(func() { os.Unsetenv("REVIEWRELAY_CLIENT_NAME") })

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "dotenv-agent", cfg.ClientName)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"max age", "REVIEWRELAY_SIGNAL_MAX_AGE", "not-a-duration", "REVIEWRELAY_SIGNAL_MAX_AGE"},
		{"negative max age", "REVIEWRELAY_SIGNAL_MAX_AGE", "-1h", "signal max age"},
		{"schedule", "REVIEWRELAY_SWEEP_SCHEDULE", "whenever", "sweep schedule"},
		{"log level", "REVIEWRELAY_LOG_LEVEL", "loud", "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv(tt.key, tt.val)

			cfg, err := Load()

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	isolateConfigEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, "signal_max_age: [oops\n")
	t.Setenv("REVIEWRELAY_CONFIG", path)

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}
