// Package pkgmeta adapts the external package-metadata service: a snapshot of
// known packages fetched once per session, and the service's compatibility
// verdict for version requirements.
package pkgmeta

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Export is one item a package exports.
type Export struct {
	Name       string   `yaml:"name" toml:"name"`
	Interfaces []string `yaml:"interfaces,omitempty" toml:"interfaces"`
}

type Package struct {
	Name    string   `yaml:"name" toml:"name"`
	Version string   `yaml:"version" toml:"version"` // newest published version
	Exports []Export `yaml:"exports,omitempty" toml:"exports"`
}

// Export looks up an exported item.
func (p *Package) Export(item string) (Export, bool) {
	for _, e := range p.Exports {
		if e.Name == item {
			return e, true
		}
	}
	return Export{}, false
}

// Snapshot is immutable once built; share it freely between goroutines.
type Snapshot struct {
	packages map[string]*Package
	names    []string
}

type snapshotFile struct {
	Packages []Package `yaml:"packages" toml:"packages"`
}

// NewSnapshot indexes packages by name. A later duplicate replaces an earlier one.
func NewSnapshot(pkgs []Package) *Snapshot {
	s := &Snapshot{packages: make(map[string]*Package, len(pkgs))}
	for i := range pkgs {
		p := pkgs[i]
		s.packages[p.Name] = &p
	}
	s.names = make([]string, 0, len(s.packages))
	for name := range s.packages {
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)
	return s
}

// Lookup returns the package called name.
func (s *Snapshot) Lookup(name string) (*Package, bool) {
	if s == nil {
		return nil, false
	}
	p, ok := s.packages[name]
	return p, ok
}

// Names returns package names in sorted order.
func (s *Snapshot) Names() []string {
	if s == nil {
		return nil
	}
	return s.names
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.packages)
}

// LoadFile reads a YAML (.yaml, .yml) or TOML (.toml) snapshot.
func LoadFile(path string) (*Snapshot, error) {
	// #nosec G304 -- path comes from the project manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading package snapshot: %w", err)
	}
	var file snapshotFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parsing package snapshot %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &file); err != nil {
			return nil, fmt.Errorf("parsing package snapshot %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("package snapshot %s: unsupported format %q", path, ext)
	}
	for i, p := range file.Packages {
		if p.Name == "" {
			return nil, fmt.Errorf("package snapshot %s: entry %d has no name", path, i)
		}
	}
	return NewSnapshot(file.Packages), nil
}

// Fetcher produces the session's snapshot. It is called once, before analysis.
type Fetcher interface {
	Fetch(ctx context.Context) (*Snapshot, error)
}

// FileFetcher reads the snapshot from a file. An empty Path yields an empty snapshot.
type FileFetcher struct {
	Path string
}

func (f FileFetcher) Fetch(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Path == "" {
		return NewSnapshot(nil), nil
	}
	return LoadFile(f.Path)
}

// StaticFetcher returns a fixed snapshot.
type StaticFetcher struct {
	Snapshot *Snapshot
}

func (f StaticFetcher) Fetch(context.Context) (*Snapshot, error) {
	if f.Snapshot == nil {
		return NewSnapshot(nil), nil
	}
	return f.Snapshot, nil
}
