package project

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
)

// ManifestName is the project manifest file name.
const ManifestName = "hostgen.toml"

// ancestors yields dir and each of its parents up to the filesystem root.
func ancestors(dir string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			if !yield(dir) {
				return
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				return
			}
			dir = parent
		}
	}
}

// FindManifest returns the nearest hostgen.toml at or above startDir.
// The search does not leave the enclosing repository: a directory holding
// .git is the last one checked.
func FindManifest(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for dir := range ancestors(abs) {
		candidate := filepath.Join(dir, ManifestName)
		switch _, err := os.Stat(candidate); {
		case err == nil:
			return candidate, true, nil
		case !errors.Is(err, os.ErrNotExist):
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}
	}
	return "", false, nil
}
