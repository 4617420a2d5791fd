package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.toml")
	body := `
host = "127.0.0.1"
port = 4000
difficulty = 3
broadcast_interval = "2s"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", cfg.Host)
	require.Equal(t, 4000, cfg.Port)
	require.Equal(t, 3, cfg.Difficulty)
	require.Equal(t, 2*time.Second, cfg.BroadcastInterval.Duration)
	// Unspecified fields keep their defaults.
	require.Equal(t, 32, cfg.MaxConnections)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
