// Package modules resolves imports to External, Local or standard library
// resolutions and builds the unit dependency graph.
package modules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"hostgen/internal/project"
)

type Kind uint8

const (
	KindInvalid Kind = iota
	KindExternal
	KindLocal
	KindStd
)

func (k Kind) String() string {
	switch k {
	case KindExternal:
		return "external"
	case KindLocal:
		return "local"
	case KindStd:
		return "std"
	}
	return "invalid"
}

// Resolution is an immutable tagged result; only the fields of its Kind are set.
// It is comparable, so equal resolutions compare equal with ==.
type Resolution struct {
	Kind Kind

	// External
	Package        string
	Item           string // item path inside the package, e.g. "json::Value"
	NeedsInterface bool   // an imported item brings interfaces the host must import

	// Local
	UnitName      string
	CanonicalPath string

	// Std
	StdPath string // "std::fs"
}

func (r Resolution) String() string {
	switch r.Kind {
	case KindExternal:
		s := "external " + r.Package
		if r.Item != "" {
			s += "::" + r.Item
		}
		if r.NeedsInterface {
			s += " (+interface)"
		}
		return s
	case KindLocal:
		return fmt.Sprintf("local %s as %s", r.CanonicalPath, r.UnitName)
	case KindStd:
		return "std " + r.StdPath
	}
	return "invalid"
}

var packageSegment = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// Classify decides the kind of an import path without resolving it.
func Classify(path string) (Kind, error) {
	switch {
	case path == "":
		return KindInvalid, fmt.Errorf("%w: empty path", ErrInvalidImport)
	case strings.HasPrefix(path, "./"), strings.HasPrefix(path, "../"):
		return KindLocal, nil
	case path == "std", strings.HasPrefix(path, "std::"), strings.HasPrefix(path, "std/"):
		return KindStd, nil
	}
	for _, seg := range splitQualified(path) {
		if !packageSegment.MatchString(seg) {
			return KindInvalid, fmt.Errorf("%w: bad segment %q", ErrInvalidImport, seg)
		}
	}
	return KindExternal, nil
}

// splitQualified splits "a::b::c" or "a/b/c".
func splitQualified(path string) []string {
	path = strings.ReplaceAll(path, "/", "::")
	return strings.Split(path, "::")
}

// UnitName derives the generated host module name for a canonical unit path:
// the path folded to an identifier plus a short digest of the path, so two
// paths that fold alike still get distinct names.
func UnitName(canonical string) string {
	var b strings.Builder
	for _, r := range canonical {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}
	name := b.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "u_" + name
	}
	return name + "_" + project.Sum([]byte(canonical)).Short(6)
}

// itemPath renders the imported item path of an external import.
func itemPath(rest []string, items []string) string {
	path := strings.Join(rest, "::")
	if len(items) == 0 {
		return path
	}
	sorted := append([]string(nil), items...)
	sort.Strings(sorted)
	var it string
	if len(sorted) == 1 {
		it = sorted[0]
	} else {
		it = "{" + strings.Join(sorted, ", ") + "}"
	}
	if path == "" {
		return it
	}
	return path + "::" + it
}
