package driver

import (
	"sort"

	"hostgen/internal/modules"
	"hostgen/internal/project"
)

// unitDigests computes the result-cache key of every unit:
// H(content || salt || dep1 || dep2 ...) with dependency keys in path order.
// salt covers the session settings (see session.Context.Salt). batches must
// list dependencies first, so every dependency key exists when a unit is
// hashed.
func unitDigests(g *modules.Graph, batches [][]string, salt project.Digest) map[string]project.Digest {
	out := make(map[string]project.Digest, len(g.Units))
	for _, batch := range batches {
		for _, path := range batch {
			u := g.Unit(path)
			if u == nil {
				continue
			}
			deps := append([]string(nil), g.Deps(path)...)
			sort.Strings(deps)
			digests := make([]project.Digest, 0, len(deps)+1)
			digests = append(digests, salt)
			for _, d := range deps {
				if dd, ok := out[d]; ok {
					digests = append(digests, dd)
				}
			}
			out[path] = project.Combine(u.Digest, digests...)
		}
	}
	return out
}

// visibleUnits returns, per unit, the unit itself and everything it imports
// transitively: the local interfaces its method calls may use.
func visibleUnits(g *modules.Graph, batches [][]string) map[string]map[string]bool {
	out := make(map[string]map[string]bool)
	for _, batch := range batches {
		for _, path := range batch {
			seen := map[string]bool{path: true}
			for _, d := range g.Deps(path) {
				for v := range out[d] {
					seen[v] = true
				}
			}
			out[path] = seen
		}
	}
	return out
}
