package dag

import "slices"

type Graph struct {
	Edges   [][]ModuleID // Edges[from] = []to (importer -> imported)
	Indeg   []int        // входящие степени для Kahn (учитывает только присутствующие модули)
	Present []bool       // признак, что модуль реально загружен (а не только импортируется)
}

// Node is one loaded unit and the local units it imports, in source order.
type Node struct {
	Name string
	Deps []string
}

// BuildGraph builds the importer -> imported graph. Duplicate edges collapse,
// self edges are kept so that cycle detection sees them.
func BuildGraph(idx ModuleIndex, nodes []Node) Graph {
	nodeCount := len(idx.IDToName)
	g := Graph{
		Edges:   make([][]ModuleID, nodeCount),
		Indeg:   make([]int, nodeCount),
		Present: make([]bool, nodeCount),
	}
	for _, node := range nodes {
		if id, ok := idx.Lookup(node.Name); ok {
			g.Present[int(id)] = true
		}
	}

	for _, node := range nodes {
		from, ok := idx.Lookup(node.Name)
		if !ok {
			continue
		}
		seen := make(map[ModuleID]struct{}, len(node.Deps))
		for _, dep := range node.Deps {
			to, ok := idx.Lookup(dep)
			if !ok {
				continue
			}
			if _, dup := seen[to]; dup {
				continue
			}
			seen[to] = struct{}{}
			g.Edges[int(from)] = append(g.Edges[int(from)], to)
			if g.Present[int(to)] {
				g.Indeg[int(to)]++
			}
		}
		if len(g.Edges[int(from)]) > 1 {
			slices.Sort(g.Edges[int(from)])
		}
	}
	return g
}

// Reverse returns the graph with every edge flipped (imported -> importer).
func Reverse(g Graph) Graph {
	n := len(g.Edges)
	r := Graph{
		Edges:   make([][]ModuleID, n),
		Indeg:   make([]int, n),
		Present: slices.Clone(g.Present),
	}
	for from, tos := range g.Edges {
		for _, to := range tos {
			r.Edges[int(to)] = append(r.Edges[int(to)], mustID(from))
			if r.Present[from] {
				r.Indeg[from]++
			}
		}
	}
	for i := range r.Edges {
		slices.Sort(r.Edges[i])
	}
	return r
}
