package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/polycrystal/internal/errors"
)

func TestLoadMissingOptionalFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"), false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingRequiredFileIsConfigError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "config.yaml"), true)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	t.Setenv("PC_TEST_ROOT", "/srv/pc")
	require.NoError(t, os.WriteFile(path, []byte(`
entries_dir: ${PC_TEST_ROOT}/entries
installation: user
history:
  path: ""
daemon:
  interval: 15m
notify:
  nats_url: nats://127.0.0.1:4222
`), 0o644))

	cfg, err := Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, "/srv/pc/entries", cfg.EntriesDir)
	assert.Equal(t, DefaultStatePath, cfg.StatePath)
	assert.Equal(t, "user", cfg.Installation)
	assert.Empty(t, cfg.History.Path)
	assert.Equal(t, 15*time.Minute, cfg.Daemon.Interval)
	assert.Equal(t, 2*time.Second, cfg.Daemon.Debounce)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.Notify.NATSURL)
	assert.Equal(t, "polycrystal.runs", cfg.Notify.Subject)
}

func TestLoadEmptyFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadReadsDotEnvBesideConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PC_TEST_STATE=/tmp/pc-state\n"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("state_path: ${PC_TEST_STATE}\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("PC_TEST_STATE") })

	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/pc-state", cfg.StatePath)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"unknown field":      "entries_directory: /x\n",
		"bad installation":   "installation: global\n",
		"empty state":        "state_path: \"\"\n",
		"negative interval":  "daemon:\n  interval: -1s\n",
		"bad duration":       "daemon:\n  debounce: soon\n",
		"notify w/o subject": "notify:\n  nats_url: nats://x\n  subject: \"\"\n",
		"not yaml":           "entries_dir: [unterminated\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			_, err := Load(path, true)
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
		})
	}
}
