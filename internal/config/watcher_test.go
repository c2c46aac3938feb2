package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/slowwatch/internal/logging"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, AtomicWrite(path, []byte(content)))
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "watchdog:\n  enabled: true\n")

	changes := make(chan *Config, 4)
	w, err := NewWatcher(path, func(c *Config) { changes <- c }, logging.NewNop().Logger)
	require.NoError(t, err)

	w.Start(t.Context())

	// Give the watch loop a moment before mutating the file.
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, path, "watchdog:\n  enabled: false\n")

	select {
	case cfg := <-changes:
		assert.False(t, cfg.Watchdog.Enabled)
		// Unrelated keys come back with defaults applied.
		assert.Equal(t, "3s", cfg.Watchdog.Period)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not observed")
	}
}

func TestWatcher_KeepsPreviousConfigOnInvalidReload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "watchdog:\n  enabled: true\n")

	changes := make(chan *Config, 4)
	w, err := NewWatcher(path, func(c *Config) { changes <- c }, logging.NewNop().Logger)
	require.NoError(t, err)

	w.Start(t.Context())
	time.Sleep(100 * time.Millisecond)

	// Invalid duration: the callback must not fire.
	writeConfig(t, path, "watchdog:\n  period: often\n")

	select {
	case <-changes:
		t.Fatal("invalid config must not be applied")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcher_IgnoresSiblingFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path, "watchdog:\n  enabled: true\n")

	changes := make(chan *Config, 4)
	w, err := NewWatcher(path, func(c *Config) { changes <- c }, logging.NewNop().Logger)
	require.NoError(t, err)

	w.Start(t.Context())
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o600))

	select {
	case <-changes:
		t.Fatal("sibling file changes must be ignored")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestNewWatcher_MissingDir(t *testing.T) {
	t.Parallel()

	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing", "config.yaml"), func(*Config) {}, logging.NewNop().Logger)
	assert.Error(t, err)
}
