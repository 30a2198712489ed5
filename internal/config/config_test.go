package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "database:\n  url: \"postgres://localhost/expenses\"\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/expenses", cfg.Database.URL)
	assert.False(t, cfg.Database.Migrate)
	assert.Equal(t, "models", cfg.Model.Dir)
	assert.Equal(t, 0.5, cfg.Trainer.LR)
	assert.Equal(t, 100, cfg.Trainer.Epoch)
	assert.Equal(t, 5, cfg.Trainer.IncrementalEpoch)
	assert.Equal(t, 2, cfg.Trainer.WordNGrams)
	assert.Equal(t, 100, cfg.Trainer.Dim)
	assert.Equal(t, int64(30), cfg.Watcher.IntervalSeconds)
	assert.Equal(t, 5, cfg.Watcher.NewExamplesThreshold)
	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.False(t, cfg.Telegram.Enabled)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  url: "postgres://localhost/expenses"
model:
  dir: "/var/lib/categorizer"
trainer:
  incremental_epoch: 10
watcher:
  interval_seconds: 60
  new_examples_threshold: 20
server:
  port: ":9090"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/categorizer", cfg.Model.Dir)
	assert.Equal(t, 10, cfg.Trainer.IncrementalEpoch)
	assert.Equal(t, int64(60), cfg.Watcher.IntervalSeconds)
	assert.Equal(t, 20, cfg.Watcher.NewExamplesThreshold)
	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, 100, cfg.Trainer.Epoch, "unset values still default")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
