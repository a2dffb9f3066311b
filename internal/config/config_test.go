package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geonotes98/geonotes/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvDataDir, config.EnvAdapter, config.EnvListenAddr, config.EnvTimezone,
		config.EnvLogLevel, config.EnvReadOnly, config.EnvMaxUpload,
	} {
		// Setenv registers the restore; Unsetenv leaves the key absent for the test.
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Desk.DataDir)
	assert.Equal(t, "fs", cfg.Desk.Adapter)
	assert.False(t, cfg.Desk.ReadOnly)
	assert.Equal(t, time.UTC, cfg.Desk.Timezone)
	assert.Equal(t, "127.0.0.1:9898", cfg.Server.ListenAddr)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, slog.LevelInfo, cfg.Logging.Level)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), "desk.env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"GEONOTES_DATA_DIR=/srv/desk\n"+
			"GEONOTES_ADAPTER=memory\n"+
			"GEONOTES_READ_ONLY=true\n"+
			"GEONOTES_LOG_LEVEL=debug\n"+
			"GEONOTES_MAX_UPLOAD_BYTES=1024\n",
	), 0644))

	cfg, err := config.Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "/srv/desk", cfg.Desk.DataDir)
	assert.Equal(t, "memory", cfg.Desk.Adapter)
	assert.True(t, cfg.Desk.ReadOnly)
	assert.Equal(t, slog.LevelDebug, cfg.Logging.Level)
	assert.Equal(t, int64(1024), cfg.Server.MaxUploadBytes)
}

func TestLoad_ProcessEnvWinsOverFile(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), "desk.env")
	require.NoError(t, os.WriteFile(envFile, []byte("GEONOTES_LISTEN_ADDR=0.0.0.0:1\n"), 0644))
	t.Setenv(config.EnvListenAddr, "127.0.0.1:2")

	cfg, err := config.Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:2", cfg.Server.ListenAddr)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"Unknown adapter", config.EnvAdapter, "couch"},
		{"Unknown level", config.EnvLogLevel, "loud"},
		{"Unknown zone", config.EnvTimezone, "Mars/Olympus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := config.Load()
			assert.ErrorContains(t, err, tt.key)
		})
	}
}

func TestLoad_MissingEnvFile(t *testing.T) {
	clearEnv(t)
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.Error(t, err)
}
