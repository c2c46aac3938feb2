package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFileInDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rec.txt"), []byte("TimeElapsed: 12000ms\n"), 0o600))

	data, err := ReadFileInDir(dir, "rec.txt")
	require.NoError(t, err)
	assert.Equal(t, "TimeElapsed: 12000ms\n", string(data))
}

func TestReadFileInDir_Missing(t *testing.T) {
	t.Parallel()

	_, err := ReadFileInDir(t.TempDir(), "nope.txt")
	assert.True(t, os.IsNotExist(err))
}

func TestReadFileInDir_TraversalStripped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	outside := filepath.Join(filepath.Dir(dir), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o600))
	t.Cleanup(func() { _ = os.Remove(outside) })

	// The traversal components are stripped; only the base name inside
	// dir is consulted.
	_, err := ReadFileInDir(dir, "../secret.txt")
	assert.Error(t, err)
}

func TestReadFileInDir_InvalidName(t *testing.T) {
	t.Parallel()

	_, err := ReadFileInDir(t.TempDir(), ".")
	assert.Error(t, err)
}
