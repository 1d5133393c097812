package tree

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// ErrNotFound is returned when no search path holds a dump for the unit.
var ErrNotFound = errors.New("unit dump not found")

// Loader locates and loads unit dumps by canonical unit path.
type Loader interface {
	// Locate reports whether a dump for path exists, without loading it.
	Locate(path string) bool
	Load(ctx context.Context, path string) (*Unit, error)
}

// LoaderStats counts loader work for the session metrics.
type LoaderStats struct {
	Loaded int64
	Bytes  int64
	Misses int64
}

// DirLoader reads <root>/<search>/<path>.tree or <root>/<search>/<path>/mod.tree,
// trying search paths in order.
type DirLoader struct {
	Root        string
	SearchPaths []string

	loaded atomic.Int64
	bytes  atomic.Int64
	misses atomic.Int64
}

func NewDirLoader(root string, searchPaths []string) *DirLoader {
	if len(searchPaths) == 0 {
		searchPaths = []string{"."}
	}
	return &DirLoader{Root: root, SearchPaths: searchPaths}
}

// Candidates lists the files tried for path, in order.
func (l *DirLoader) Candidates(path string) []string {
	rel := filepath.FromSlash(path)
	out := make([]string, 0, 2*len(l.SearchPaths))
	for _, sp := range l.SearchPaths {
		base := filepath.Join(l.Root, sp, rel)
		out = append(out, base+".tree", filepath.Join(base, "mod.tree"))
	}
	return out
}

func (l *DirLoader) find(path string) (string, bool) {
	for _, cand := range l.Candidates(path) {
		if st, err := os.Stat(cand); err == nil && !st.IsDir() {
			return cand, true
		}
	}
	return "", false
}

func (l *DirLoader) Locate(path string) bool {
	_, ok := l.find(path)
	return ok
}

func (l *DirLoader) Load(ctx context.Context, path string) (*Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, ok := l.find(path)
	if !ok {
		l.misses.Add(1)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	// #nosec G304 -- file comes from the configured search paths
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("tree: read %s: %w", file, err)
	}
	u, err := DecodeUnit(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	if u.Path != path {
		return nil, fmt.Errorf("tree: %s declares unit %q, want %q", file, u.Path, path)
	}
	l.loaded.Add(1)
	l.bytes.Add(int64(len(data)))
	return u, nil
}

func (l *DirLoader) Stats() LoaderStats {
	return LoaderStats{Loaded: l.loaded.Load(), Bytes: l.bytes.Load(), Misses: l.misses.Load()}
}

// MapLoader serves units from memory (bundles and tests). It counts loads per
// path. Every Load returns a fresh copy, since Attach rewrites the unit.
type MapLoader struct {
	mu    sync.Mutex
	units map[string][]byte
	loads map[string]int
	bytes int64
}

// NewMapLoader encodes the given units. It panics on a unit that cannot be
// encoded, which only happens for programmer-built trees.
func NewMapLoader(units ...*Unit) *MapLoader {
	l := &MapLoader{
		units: make(map[string][]byte, len(units)),
		loads: make(map[string]int),
	}
	for _, u := range units {
		raw, err := EncodeUnit(u)
		if err != nil {
			panic(err)
		}
		l.units[u.Path] = raw
	}
	return l
}

// BundleLoader serves the units of a decoded bundle.
func BundleLoader(b *Bundle) *MapLoader {
	return NewMapLoader(b.Units...)
}

func (l *MapLoader) Locate(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.units[path]
	return ok
}

func (l *MapLoader) Load(ctx context.Context, path string) (*Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	raw, ok := l.units[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	u, err := DecodeUnit(raw)
	if err != nil {
		return nil, err
	}
	l.loads[path]++
	l.bytes += int64(len(raw))
	return u, nil
}

// Loads reports how often path was loaded.
func (l *MapLoader) Loads(path string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads[path]
}

func (l *MapLoader) Stats() LoaderStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := LoaderStats{Bytes: l.bytes}
	for _, n := range l.loads {
		st.Loaded += int64(n)
	}
	return st
}
