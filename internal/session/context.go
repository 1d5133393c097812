// Package session holds the explicit analysis context shared by every unit
// of one engine run: the execution mode, the metadata snapshot, the shared
// insert-if-absent indices and the result caches.
package session

import (
	"fmt"
	"runtime"
	"slices"
	"strings"

	"hostgen/internal/cache"
	"hostgen/internal/effects"
	"hostgen/internal/iface"
	"hostgen/internal/memo"
	"hostgen/internal/modules"
	"hostgen/internal/ownership"
	"hostgen/internal/pkgmeta"
	"hostgen/internal/project"
	"hostgen/internal/source"
	"hostgen/internal/tree"
	"hostgen/internal/types"
)

type Context struct {
	Mode ownership.Mode

	Fetcher  pkgmeta.Fetcher
	Snapshot *pkgmeta.Snapshot // set by the first run; never refetched
	Loader   tree.Loader

	Types       *types.Interner
	Files       *source.FileSet
	Resolutions *memo.Table[string, modules.Resolution]
	Signatures  *effects.Signatures
	Interfaces  *iface.Index
	Results     *cache.Results
	Disk        *cache.Disk // nil disables the persistent cache

	Prelude        []string // interface globs implicitly in scope
	MaxDeref       int
	FatalThreshold int // error diagnostics before scheduling stops; 0 never stops
	MaxDiagnostics int
	Jobs           int
}

// New builds an empty context over loader and fetcher with the standard
// library interfaces declared.
func New(loader tree.Loader, fetcher pkgmeta.Fetcher) *Context {
	in := types.NewInterner()
	idx := iface.NewIndex()
	iface.SeedStd(idx, in)
	return &Context{
		Mode:        ownership.ModeAOT,
		Fetcher:     fetcher,
		Loader:      loader,
		Types:       in,
		Files:       source.NewFileSet(),
		Resolutions: memo.NewTable[string, modules.Resolution](),
		Signatures:  effects.NewSignatures(),
		Interfaces:  idx,
		Results:     cache.NewResults(),
		MaxDeref:    iface.DefaultMaxDeref,
		Jobs:        runtime.GOMAXPROCS(0),
	}
}

// FromConfig wires a context from the project manifest: tree dumps under
// [modules], the snapshot file under [metadata] and, when enabled, the disk
// cache under [cache].
func FromConfig(cfg project.Config) (*Context, error) {
	mode, err := ownership.ParseMode(cfg.Session.Mode)
	if err != nil {
		return nil, fmt.Errorf("[session].mode: %w", err)
	}
	loader := tree.NewDirLoader(cfg.Abs(cfg.Modules.TreeDir), cfg.Modules.SearchPaths)
	sc := New(loader, pkgmeta.FileFetcher{Path: cfg.Abs(cfg.Metadata.Snapshot)})
	sc.Mode = mode
	sc.Prelude = cfg.Interfaces.Prelude
	sc.FatalThreshold = cfg.Session.FatalThreshold
	sc.MaxDiagnostics = cfg.Session.MaxDiagnostics
	if cfg.Session.Jobs > 0 {
		sc.Jobs = cfg.Session.Jobs
	}
	if cfg.Cache.Disk {
		disk, err := cache.OpenDisk(cfg.Abs(cfg.Cache.Dir))
		if err != nil {
			return nil, fmt.Errorf("disk cache: %w", err)
		}
		sc.Disk = disk
	}
	return sc, nil
}

// Policy is the transfer policy of the session's execution mode.
func (c *Context) Policy() ownership.Policy {
	return ownership.Policy{Mode: c.Mode}
}

// Salt hashes the session settings that change analysis results: the
// execution mode, the prelude globs and the deref limit. It is mixed into
// every result-cache key, so sessions in different modes never share results.
func (c *Context) Salt() project.Digest {
	prelude := slices.Clone(c.Prelude)
	slices.Sort(prelude)
	var b strings.Builder
	fmt.Fprintf(&b, "mode=%s\nmaxderef=%d\n", c.Mode, c.MaxDeref)
	for _, g := range prelude {
		fmt.Fprintf(&b, "prelude=%s\n", g)
	}
	return project.Sum([]byte(b.String()))
}

// Engine returns an interface resolution engine over the session index.
func (c *Context) Engine() *iface.Engine {
	e := iface.NewEngine(c.Interfaces, c.Types)
	if c.MaxDeref > 0 {
		e.MaxDeref = c.MaxDeref
	}
	return e
}

// Close releases the disk cache.
func (c *Context) Close() error {
	return c.Disk.Close()
}
