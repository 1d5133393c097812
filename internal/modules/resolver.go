package modules

import (
	"hostgen/internal/memo"
	"hostgen/internal/pkgmeta"
	"hostgen/internal/project"
	"hostgen/internal/tree"
)

// Resolver turns imports into resolutions. Results are cached by canonical
// path in a table shared by every importer, so a unit reached through
// several importers is resolved once.
type Resolver struct {
	snapshot *pkgmeta.Snapshot
	loader   tree.Loader
	cache    *memo.Table[string, Resolution]
}

// NewResolver builds a resolver over an already fetched snapshot. A nil
// cache gets a private one.
func NewResolver(snap *pkgmeta.Snapshot, loader tree.Loader, cache *memo.Table[string, Resolution]) *Resolver {
	if cache == nil {
		cache = memo.NewTable[string, Resolution]()
	}
	return &Resolver{snapshot: snap, loader: loader, cache: cache}
}

// Stats reports resolution cache hits and misses.
func (r *Resolver) Stats() memo.Stats {
	return r.cache.Stats()
}

// Cache exposes the shared resolution table.
func (r *Resolver) Cache() *memo.Table[string, Resolution] {
	return r.cache
}

// Resolve resolves one import of the unit importer. Failures are typed
// errors carrying their diagnostic.
func (r *Resolver) Resolve(importer string, imp tree.Import) (Resolution, error) {
	kind, err := Classify(imp.Path)
	if err != nil {
		return Resolution{}, &InvalidImportError{Importer: importer, Path: imp.Path, Span: imp.Span, Err: err}
	}
	switch kind {
	case KindLocal:
		return r.resolveLocal(importer, imp)
	case KindStd:
		return r.resolveStd(imp)
	default:
		return r.resolveExternal(importer, imp)
	}
}

func (r *Resolver) resolveLocal(importer string, imp tree.Import) (Resolution, error) {
	canonical, err := project.ResolveRelative(importer, imp.Path)
	if err != nil {
		return Resolution{}, &InvalidImportError{Importer: importer, Path: imp.Path, Span: imp.Span, Err: err}
	}
	res, _, err := r.cache.Do("local:"+canonical, func() (Resolution, error) {
		if r.loader == nil || !r.loader.Locate(canonical) {
			e := &UnresolvedLocalError{Importer: importer, Path: imp.Path, Canonical: canonical, Span: imp.Span}
			if c, ok := r.loader.(interface{ Candidates(string) []string }); ok {
				e.Tried = c.Candidates(canonical)
			}
			return Resolution{}, e
		}
		return Resolution{Kind: KindLocal, UnitName: UnitName(canonical), CanonicalPath: canonical}, nil
	})
	return res, err
}

func (r *Resolver) resolveStd(imp tree.Import) (Resolution, error) {
	qualified := StdPath(imp.Path)
	res, _, err := r.cache.Do("std:"+qualified, func() (Resolution, error) {
		return Resolution{Kind: KindStd, StdPath: qualified}, nil
	})
	return res, err
}

func (r *Resolver) resolveExternal(importer string, imp tree.Import) (Resolution, error) {
	segs := splitQualified(imp.Path)
	pkgName := segs[0]
	item := itemPath(segs[1:], imp.Items)
	res, _, err := r.cache.Do("ext:"+pkgName+"::"+item, func() (Resolution, error) {
		pkg, ok := r.snapshot.Lookup(pkgName)
		if !ok {
			return Resolution{}, &UnknownPackageError{Package: pkgName, Importer: importer, Span: imp.Span}
		}
		return Resolution{
			Kind:           KindExternal,
			Package:        pkgName,
			Item:           item,
			NeedsInterface: needsInterface(pkg, imp.Items),
		}, nil
	})
	return res, err
}

// needsInterface reports whether any imported item brings interfaces along.
// A whole-package import counts every export. Items missing from the
// snapshot are not checked.
func needsInterface(pkg *pkgmeta.Package, items []string) bool {
	if len(items) == 0 {
		for _, e := range pkg.Exports {
			if len(e.Interfaces) > 0 {
				return true
			}
		}
		return false
	}
	for _, it := range items {
		if e, ok := pkg.Export(it); ok && len(e.Interfaces) > 0 {
			return true
		}
	}
	return false
}
