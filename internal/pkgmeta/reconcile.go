package pkgmeta

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/mod/semver"
)

var (
	// ErrMajorMismatch means two requirements name different major versions.
	ErrMajorMismatch = errors.New("incompatible major versions")
	// ErrUnsatisfiable means the newest requirement is newer than anything published.
	ErrUnsatisfiable = errors.New("no published version satisfies the requirement")
	// ErrBadVersion means a requirement is not a version at all.
	ErrBadVersion = errors.New("invalid version requirement")
)

// Verdict is the service's answer for one package.
type Verdict struct {
	Package  string
	Chosen   string
	Required []string // canonical requirements, sorted
}

// canonical turns "1.2", "^1.2.0", "=v1.2" into "v1.2.0".
func canonical(req string) (string, error) {
	v := strings.TrimSpace(req)
	v = strings.TrimLeft(v, "^~=")
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", fmt.Errorf("%w: %q", ErrBadVersion, req)
	}
	return semver.Canonical(v), nil
}

// Reconcile returns the version to link for pkg given every dependent's
// requirement. Requirements that differ in major version are an error;
// otherwise the newest requirement wins. Empty requirements are ignored and,
// when nothing else is required, the snapshot's version is chosen.
func (s *Snapshot) Reconcile(pkg string, reqs []string) (Verdict, error) {
	v := Verdict{Package: pkg}
	seen := make(map[string]struct{}, len(reqs))
	for _, r := range reqs {
		if strings.TrimSpace(r) == "" {
			continue
		}
		c, err := canonical(r)
		if err != nil {
			return v, fmt.Errorf("%s: %w", pkg, err)
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		v.Required = append(v.Required, c)
	}
	sort.Slice(v.Required, func(i, j int) bool {
		return semver.Compare(v.Required[i], v.Required[j]) < 0
	})

	published := ""
	if p, ok := s.Lookup(pkg); ok && p.Version != "" {
		if c, err := canonical(p.Version); err == nil {
			published = c
		}
	}

	if len(v.Required) == 0 {
		v.Chosen = published
		return v, nil
	}

	lowest, newest := v.Required[0], v.Required[len(v.Required)-1]
	if semver.Major(lowest) != semver.Major(newest) {
		return v, fmt.Errorf("%s: %w: %s", pkg, ErrMajorMismatch, strings.Join(v.Required, ", "))
	}
	if published != "" {
		if semver.Major(published) != semver.Major(newest) || semver.Compare(published, newest) < 0 {
			return v, fmt.Errorf("%s: %w: need %s, published %s", pkg, ErrUnsatisfiable, newest, published)
		}
	}
	v.Chosen = newest
	return v, nil
}
