// Package fsutil provides scoped filesystem helpers.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ReadFileInDir reads a single file from dir by opening a root at the
// directory. This scopes access to the intended directory and avoids
// path traversal through crafted names.
func ReadFileInDir(dir, name string) ([]byte, error) {
	base := filepath.Base(filepath.Clean(name))
	if base == "" || base == "." || base == ".." || base == string(filepath.Separator) {
		return nil, fmt.Errorf("invalid file name: %q", name)
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	defer root.Close()

	file, err := root.Open(base)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}
