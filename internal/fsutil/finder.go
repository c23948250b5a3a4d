// Package fsutil provides file system utility functions.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFound is wrapped by DiscoveryError.
var ErrNotFound = errors.New("descriptor not found")

// DiscoveryError reports a file that could not be found between Start and the
// file system root.
type DiscoveryError struct {
	Start string
	Name  string
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("can't find %q in %s or any parent directory", e.Name, e.Start)
}

func (e *DiscoveryError) Unwrap() error { return ErrNotFound }

// FindUpward walks from start towards the file system root and returns the
// first directory that contains a regular file called name.
func FindUpward(start, name string) (string, error) {
	if name == "" {
		panic("name must not be empty")
	}

	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", start, err)
	}

	for {
		info, err := os.Stat(filepath.Join(dir, name))
		if err == nil && !info.IsDir() {
			return dir, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("error accessing %s: %w", filepath.Join(dir, name), err)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", &DiscoveryError{Start: start, Name: name}
		}
		dir = parent
	}
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
