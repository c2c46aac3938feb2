// Package store provides the bounded directory that diagnostic records
// are written into. Capacity is enforced by evicting the file whose
// last touch is oldest, so records still being appended to stay alive.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileCap is a named-file repository holding at most Max files.
// Add registers a new file, Touch refreshes a file's age, and both may
// trigger eviction of the least-recently-touched entries.
type FileCap struct {
	dir string
	max int

	mu    sync.Mutex
	order []string // absolute paths, least recently touched first
}

// DefaultCap is the record count used when no capacity is configured.
const DefaultCap = 50

// New creates a FileCap over dir, creating the directory if needed.
// Files already present (e.g. from a previous run) are registered
// oldest-first by modification time so capacity holds across restarts.
func New(dir string, max int) (*FileCap, error) {
	if max <= 0 {
		max = DefaultCap
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}

	c := &FileCap{dir: dir, max: max}
	if err := c.scan(); err != nil {
		return nil, err
	}
	return c, nil
}

// Dir returns the directory backing this store.
func (c *FileCap) Dir() string {
	return c.dir
}

// Path returns the absolute path for a record name inside the store.
func (c *FileCap) Path(name string) string {
	return filepath.Join(c.dir, filepath.Base(name))
}

// Add registers a newly created file as the most recently touched entry
// and evicts the oldest entries if capacity is exceeded. The returned
// error reports eviction failures; the file itself is registered
// regardless.
func (c *FileCap) Add(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.moveToBack(path)
	return c.evictLocked()
}

// Touch marks an existing file as most recently touched, protecting it
// from eviction ahead of older records.
func (c *FileCap) Touch(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.moveToBack(path)
	return nil
}

// Len returns the number of registered files.
func (c *FileCap) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// List returns the registered paths, least recently touched first.
func (c *FileCap) List() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Contains reports whether path is currently registered.
func (c *FileCap) Contains(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.order {
		if p == path {
			return true
		}
	}
	return false
}

func (c *FileCap) moveToBack(path string) {
	for i, p := range c.order {
		if p == path {
			c.order = append(append(c.order[:i:i], c.order[i+1:]...), path)
			return
		}
	}
	c.order = append(c.order, path)
}

// evictLocked removes oldest entries until the store fits its capacity.
// Entries are dropped from the index even when the file removal fails,
// so a bad file cannot wedge the store; the failure is reported.
func (c *FileCap) evictLocked() error {
	var firstErr error
	for len(c.order) > c.max {
		victim := c.order[0]
		c.order = c.order[1:]
		if err := os.Remove(victim); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("evicting %s: %w", filepath.Base(victim), err)
			}
		}
	}
	return firstErr
}

func (c *FileCap) scan() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("scanning store dir: %w", err)
	}

	type aged struct {
		path  string
		mtime int64
	}
	var found []aged
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		info, err := ent.Info()
		if err != nil {
			continue
		}
		found = append(found, aged{
			path:  filepath.Join(c.dir, ent.Name()),
			mtime: info.ModTime().UnixNano(),
		})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].mtime < found[j].mtime })

	for _, f := range found {
		c.order = append(c.order, f.path)
	}
	return c.evictLocked()
}
