package project

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	ErrInvalidPath = errors.New("invalid unit path")
	ErrEscapesRoot = errors.New("import path escapes project root")
)

// NormalizeUnitPath приводит путь юнита к каноническому виду "a/b":
// NFC, прямые слэши, без расширения .tree, без пустых сегментов, "." и "..".
func NormalizeUnitPath(path string) (string, error) {
	path = norm.NFC.String(path)
	path = strings.TrimSuffix(path, ".tree")
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return "", ErrInvalidPath
	}
	segs := strings.Split(path, "/")
	for _, seg := range segs {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return strings.Join(segs, "/"), nil
}

// ResolveRelative нормализует относительный импорт rel ("./x", "../y/z")
// относительно юнита importer.
func ResolveRelative(importer, rel string) (string, error) {
	rel = norm.NFC.String(strings.ReplaceAll(rel, "\\", "/"))
	if rel == "" {
		return "", fmt.Errorf("%w: empty import", ErrInvalidPath)
	}
	var target []string
	if i := strings.LastIndexByte(importer, '/'); i >= 0 {
		target = append(target, strings.Split(importer[:i], "/")...)
	}
	for _, seg := range strings.Split(rel, "/") {
		switch seg {
		case "":
			return "", fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, rel)
		case ".":
			continue
		case "..":
			if len(target) == 0 {
				return "", fmt.Errorf("%w: %q from %q", ErrEscapesRoot, rel, importer)
			}
			target = target[:len(target)-1]
		default:
			target = append(target, seg)
		}
	}
	if len(target) == 0 {
		return "", fmt.Errorf("%w: %q resolves to empty path", ErrInvalidPath, rel)
	}
	return NormalizeUnitPath(strings.Join(target, "/"))
}
