package config

import (
	"os"
	"path/filepath"
)

// AtomicWrite writes data to a file atomically, creating parent
// directories as needed. Existing file permissions are preserved.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	perm := os.FileMode(0o600)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	return atomicWriteFile(path, data, perm)
}
