package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddress)
	assert.Equal(t, "gorm", cfg.Database.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Game.IdleTimeout)
	assert.Equal(t, time.Minute, cfg.Game.CleanupInterval)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("server:\n  http_address: \":9000\"\ndatabase:\n  driver: sqlite\n  sqlite:\n    path: /tmp/x.db\ngame:\n  idle_timeout: 2m\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("DATABASE_POSTGRES_USER", "fruit")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.HTTPAddress)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/x.db", cfg.Database.SQLite.Path)
	assert.Equal(t, 2*time.Minute, cfg.Game.IdleTimeout)
	assert.Equal(t, "fruit", cfg.Database.Postgres.User)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GAME_CLEANUP_INTERVAL=30s\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("GAME_CLEANUP_INTERVAL") })

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Game.CleanupInterval)
}
