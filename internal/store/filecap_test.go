package store

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o600))
}

func TestNew_CreatesDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "slow-requests")
	c, err := New(dir, 10)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, 0, c.Len())
}

func TestAdd_EvictsOldest(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir(), 50)
	require.NoError(t, err)

	// 51 records in sequence: exactly one eviction, the oldest.
	var paths []string
	for i := 0; i < 51; i++ {
		p := c.Path(fmt.Sprintf("rec-%03d.txt", i))
		writeFile(t, p)
		require.NoError(t, c.Add(p))
		paths = append(paths, p)
	}

	assert.Equal(t, 50, c.Len())
	_, err = os.Stat(paths[0])
	assert.True(t, os.IsNotExist(err), "oldest record should be deleted from disk")
	for _, p := range paths[1:] {
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}
}

func TestTouch_ProtectsFromEviction(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir(), 2)
	require.NoError(t, err)

	a := c.Path("a.txt")
	b := c.Path("b.txt")
	d := c.Path("d.txt")
	for _, p := range []string{a, b} {
		writeFile(t, p)
		require.NoError(t, c.Add(p))
	}

	// a is oldest; touching it makes b the eviction victim instead.
	require.NoError(t, c.Touch(a))

	writeFile(t, d)
	require.NoError(t, c.Add(d))

	assert.True(t, c.Contains(a))
	assert.False(t, c.Contains(b))
	_, err = os.Stat(b)
	assert.True(t, os.IsNotExist(err))
}

func TestAdd_DuplicateIsTouch(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir(), 10)
	require.NoError(t, err)

	p := c.Path("a.txt")
	writeFile(t, p)
	require.NoError(t, c.Add(p))
	require.NoError(t, c.Add(p))

	assert.Equal(t, 1, c.Len())
}

func TestNew_ScansExistingOldestFirst(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	old := filepath.Join(dir, "old.txt")
	recent := filepath.Join(dir, "recent.txt")
	writeFile(t, old)
	writeFile(t, recent)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	c, err := New(dir, 50)
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())
	assert.Equal(t, []string{old, recent}, c.List())

	// Overflow evicts the pre-existing oldest file first.
	for i := 0; i < 49; i++ {
		p := c.Path(fmt.Sprintf("new-%02d.txt", i))
		writeFile(t, p)
		require.NoError(t, c.Add(p))
	}
	assert.False(t, c.Contains(old))
	assert.True(t, c.Contains(recent))
}

func TestPath_StripsDirectoryComponents(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir(), 5)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(c.Dir(), "x.txt"), c.Path("../../etc/x.txt"))
}

func TestEvict_MissingFileIsNotAnError(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir(), 1)
	require.NoError(t, err)

	a := c.Path("a.txt")
	b := c.Path("b.txt")
	writeFile(t, a)
	require.NoError(t, c.Add(a))
	require.NoError(t, os.Remove(a))

	writeFile(t, b)
	assert.NoError(t, c.Add(b))
	assert.Equal(t, 1, c.Len())
}
