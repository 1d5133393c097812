package diagfmt

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PathMode selects how file paths are printed.
type PathMode uint8

const (
	// PathModeAuto: relative to BaseDir when the file is under it, as is otherwise.
	PathModeAuto PathMode = iota
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

var pathModeNames = [...]string{"auto", "absolute", "relative", "basename"}

func (m PathMode) String() string {
	if int(m) < len(pathModeNames) {
		return pathModeNames[m]
	}
	return "unknown"
}

// ParsePathMode accepts the names printed by String.
func ParsePathMode(s string) (PathMode, error) {
	for i, name := range pathModeNames {
		if strings.EqualFold(s, name) {
			return PathMode(i), nil
		}
	}
	return PathModeAuto, fmt.Errorf("invalid path mode %q (expected %s)", s, strings.Join(pathModeNames[:], "|"))
}

func displayPath(path string, mode PathMode, base string) string {
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil && !filepath.IsAbs(path) {
			return filepath.ToSlash(abs)
		}
		return path
	case PathModeBasename:
		return filepath.Base(path)
	case PathModeRelative:
		return relativeTo(path, base)
	default:
		// virtual unit paths are already short
		if !filepath.IsAbs(path) {
			return path
		}
		rel := relativeTo(path, base)
		if strings.HasPrefix(rel, "..") {
			return path
		}
		return rel
	}
}

func relativeTo(path, base string) string {
	if base == "" {
		return path
	}
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
