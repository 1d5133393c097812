package modules

import (
	"sort"

	"hostgen/internal/pkgmeta"
)

// ManifestEntry is one external dependency the host build must declare.
type ManifestEntry struct {
	Package string
	Version string // empty when nobody pinned one and the snapshot has none
}

// Requirements collects version requirements of External imports per
// package, in unit discovery order.
func (g *Graph) Requirements() map[string][]Requirement {
	out := make(map[string][]Requirement)
	for _, u := range g.Units {
		for _, r := range g.Imports[u.Path] {
			if r.Err != nil || r.Resolution.Kind != KindExternal || r.Import.Version == "" {
				continue
			}
			pkg := r.Resolution.Package
			out[pkg] = append(out[pkg], Requirement{Unit: u.Path, Version: r.Import.Version, Span: r.Import.Span})
		}
	}
	return out
}

// ReconcileVersions asks the metadata service for a verdict on every
// referenced package. The resolver compares no versions itself.
func ReconcileVersions(snap *pkgmeta.Snapshot, g *Graph) (map[string]pkgmeta.Verdict, []error) {
	reqs := g.Requirements()
	verdicts := make(map[string]pkgmeta.Verdict)
	var errs []error
	for _, pkg := range g.ExternalPackages() {
		versions := make([]string, len(reqs[pkg]))
		for i, r := range reqs[pkg] {
			versions[i] = r.Version
		}
		v, err := snap.Reconcile(pkg, versions)
		if err != nil {
			errs = append(errs, &VersionConflictError{Package: pkg, Requirements: reqs[pkg], Err: err})
			continue
		}
		verdicts[pkg] = v
	}
	return verdicts, errs
}

// ManifestDelta lists the external packages referenced by the graph with
// their reconciled versions, sorted by package name. Conflicting packages
// are left out.
func ManifestDelta(g *Graph, verdicts map[string]pkgmeta.Verdict) []ManifestEntry {
	var out []ManifestEntry
	for _, pkg := range g.ExternalPackages() {
		v, ok := verdicts[pkg]
		if !ok {
			continue
		}
		out = append(out, ManifestEntry{Package: pkg, Version: v.Chosen})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Package < out[j].Package })
	return out
}
