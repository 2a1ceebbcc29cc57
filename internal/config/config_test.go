package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":8090", cfg.HTTPAddress)
	require.Equal(t, "http://localhost:8080", cfg.RemoteBaseURL)
	require.Equal(t, "liftsync.db", cfg.StorePath)
	require.Equal(t, 10*time.Second, cfg.RemoteTimeout)
	require.Equal(t, 5*time.Minute, cfg.SnapshotTTL)
	require.Equal(t, 3, cfg.MaxReplayAttempts)
	require.Equal(t, 500*time.Millisecond, cfg.RefreshDebounce)
	require.Equal(t, 30*time.Second, cfg.ProbeInterval)
	require.False(t, cfg.QueueOnFailedWrite)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDRESS", ":9999")
	t.Setenv("REMOTE_BASE_URL", "https://api.example.com")
	t.Setenv("SNAPSHOT_TTL", "90s")
	t.Setenv("MAX_REPLAY_ATTEMPTS", "5")
	t.Setenv("QUEUE_ON_FAILED_WRITE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":9999", cfg.HTTPAddress)
	require.Equal(t, "https://api.example.com", cfg.RemoteBaseURL)
	require.Equal(t, 90*time.Second, cfg.SnapshotTTL)
	require.Equal(t, 5, cfg.MaxReplayAttempts)
	require.True(t, cfg.QueueOnFailedWrite)
}

func TestLoadInvalidEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("SNAPSHOT_TTL", "not-a-duration")
	t.Setenv("MAX_REPLAY_ATTEMPTS", "many")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 5*time.Minute, cfg.SnapshotTTL)
	require.Equal(t, 3, cfg.MaxReplayAttempts)
}

func TestLoadConfigFileThenEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "liftsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"store_path: /var/lib/liftsync.db\nsnapshot_ttl: 2m\nprobe_interval: 10s\n",
	), 0o600))

	t.Setenv("LIFTSYNC_CONFIG_FILE", path)
	t.Setenv("SNAPSHOT_TTL", "7m")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "/var/lib/liftsync.db", cfg.StorePath)
	require.Equal(t, 10*time.Second, cfg.ProbeInterval)
	require.Equal(t, 7*time.Minute, cfg.SnapshotTTL, "env overrides the file layer")
}

func TestLoadMissingConfigFileFails(t *testing.T) {
	t.Setenv("LIFTSYNC_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	require.Error(t, err)
}
