package modules

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"hostgen/internal/project"
	"hostgen/internal/project/dag"
	"hostgen/internal/source"
	"hostgen/internal/trace"
	"hostgen/internal/tree"
	"hostgen/internal/types"
)

// ImportResult is the outcome of one import, in source order.
type ImportResult struct {
	Import     tree.Import
	Resolution Resolution
	Err        error
}

// Graph is the crawled project: every reachable unit loaded once, its
// resolved imports, and the local dependency edges.
type Graph struct {
	Units    []*tree.Unit // discovery order
	Imports  map[string][]ImportResult
	Problems map[string][]error // per unit, in source order

	byPath map[string]*tree.Unit
	nodes  []dag.Node
}

// Unit returns the loaded unit with the given canonical path.
func (g *Graph) Unit(path string) *tree.Unit {
	return g.byPath[path]
}

// Nodes returns the loaded units with their local imports in import order.
func (g *Graph) Nodes() []dag.Node {
	return g.nodes
}

// Deps returns the local units path imports, in import order.
func (g *Graph) Deps(path string) []string {
	for _, n := range g.nodes {
		if n.Name == path {
			return n.Deps
		}
	}
	return nil
}

// Order returns the units in dependency order: each batch only depends on
// earlier batches, and units within a batch are independent.
func (g *Graph) Order() ([][]string, error) {
	idx := dag.BuildIndex(g.nodes)
	topo := dag.DependencyOrder(dag.BuildGraph(idx, g.nodes))
	if topo.Cyclic {
		return nil, fmt.Errorf("%w: %v", ErrCircularDependency, idx.Names(topo.Cycles))
	}
	out := make([][]string, len(topo.Batches))
	for i, batch := range topo.Batches {
		out[i] = idx.Names(batch)
	}
	return out, nil
}

// CrawlOptions attach loaded units to the session file set and type
// interner. Both nil leaves units unattached.
type CrawlOptions struct {
	Files *source.FileSet
	Types *types.Interner
}

// Crawl loads roots and everything they import, breadth first in import
// order. Each canonical unit is loaded exactly once. The cycle check runs
// as each edge is added, so a cycle stops the crawl before any of its
// members is analysed. Per-import failures are collected in Problems;
// only a cycle, a missing root or cancellation fail the crawl.
func (r *Resolver) Crawl(ctx context.Context, roots []string, opts CrawlOptions) (*Graph, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopePass, "modules.crawl", trace.ParentFrom(ctx))
	defer span.End("")

	g := &Graph{
		Imports:  make(map[string][]ImportResult),
		Problems: make(map[string][]error),
		byPath:   make(map[string]*tree.Unit),
	}
	b := dag.NewBuilder()
	var queue []string
	for _, root := range roots {
		p, err := project.NormalizeUnitPath(root)
		if err != nil {
			return nil, fmt.Errorf("root %q: %w", root, err)
		}
		if _, fresh := b.AddNode(p); fresh {
			queue = append(queue, p)
		}
	}
	failed := make(map[string]bool)
	loadSpan := make(map[string]source.Span)

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := queue[0]
		queue = queue[1:]

		u, err := r.loader.Load(ctx, path)
		if err == nil && opts.Files != nil && opts.Types != nil {
			err = tree.Attach(u, opts.Files, opts.Types)
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			at, imported := loadSpan[path]
			if !imported {
				return nil, fmt.Errorf("root %s: %w", path, err)
			}
			failed[path] = true
			g.Problems[path] = append(g.Problems[path], &LoadError{Unit: path, Span: at, Err: err})
			continue
		}
		g.Units = append(g.Units, u)
		g.byPath[path] = u
		trace.Point(tracer, trace.ScopeUnit, "modules.load", path, span.ID())

		results := make([]ImportResult, 0, len(u.Imports))
		for _, imp := range u.Imports {
			res, err := r.Resolve(path, imp)
			results = append(results, ImportResult{Import: imp, Resolution: res, Err: err})
			if err != nil {
				g.Problems[path] = append(g.Problems[path], err)
				continue
			}
			if res.Kind != KindLocal {
				continue
			}
			dep := res.CanonicalPath
			fresh := !b.Has(dep)
			if cyc, ok := b.AddEdge(path, dep); ok {
				return nil, &CircularDependencyError{Units: cyc.Units, Path: cyc.Path, Span: imp.Span}
			}
			if fresh {
				loadSpan[dep] = imp.Span
				queue = append(queue, dep)
			}
		}
		g.Imports[path] = results
	}

	for _, n := range b.Nodes() {
		if failed[n.Name] {
			continue
		}
		deps := make([]string, 0, len(n.Deps))
		for _, d := range n.Deps {
			if !failed[d] {
				deps = append(deps, d)
			}
		}
		g.nodes = append(g.nodes, dag.Node{Name: n.Name, Deps: deps})
	}
	span.WithExtra("units", fmt.Sprint(len(g.Units)))
	return g, nil
}

// ExternalPackages returns the packages referenced by External resolutions,
// sorted and deduplicated.
func (g *Graph) ExternalPackages() []string {
	seen := make(map[string]struct{})
	for _, results := range g.Imports {
		for _, r := range results {
			if r.Err == nil && r.Resolution.Kind == KindExternal {
				seen[r.Resolution.Package] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
