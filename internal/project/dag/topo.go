package dag

import "slices"

// Topo is the result of layering a graph.
type Topo struct {
	Batches [][]ModuleID // волны: внутри волны модули независимы
	Cyclic  bool
	Cycles  []ModuleID // участники циклов
	Blocked []ModuleID // не в цикле, но зависят от него через рёбра
}

// Order flattens the batches.
func (t *Topo) Order() []ModuleID {
	var out []ModuleID
	for _, b := range t.Batches {
		out = append(out, b...)
	}
	return out
}

// ToposortKahn layers g so that every edge points from an earlier batch to
// a later one. Nodes left over after the last batch are split into cycle
// members and nodes that are only blocked behind a cycle.
func ToposortKahn(g Graph) *Topo {
	indeg := slices.Clone(g.Indeg)
	var layer []ModuleID
	remaining := 0
	for i, present := range g.Present {
		if !present {
			continue
		}
		remaining++
		if indeg[i] == 0 {
			layer = append(layer, mustID(i))
		}
	}

	topo := &Topo{}
	for len(layer) > 0 {
		slices.Sort(layer)
		topo.Batches = append(topo.Batches, layer)
		remaining -= len(layer)
		var next []ModuleID
		for _, from := range layer {
			for _, to := range g.Edges[from] {
				if !g.Present[to] {
					continue
				}
				if indeg[to]--; indeg[to] == 0 {
					next = append(next, to)
				}
			}
		}
		layer = next
	}
	if remaining == 0 {
		return topo
	}

	topo.Cyclic = true
	inCycle := make([]bool, len(g.Edges))
	for _, comp := range StronglyConnected(g) {
		if len(comp) > 1 || slices.Contains(g.Edges[comp[0]], comp[0]) {
			for _, id := range comp {
				inCycle[id] = true
			}
		}
	}
	for i, present := range g.Present {
		if !present || indeg[i] == 0 {
			continue
		}
		if inCycle[i] {
			topo.Cycles = append(topo.Cycles, mustID(i))
		} else {
			topo.Blocked = append(topo.Blocked, mustID(i))
		}
	}
	return topo
}

// DependencyOrder is ToposortKahn on the reversed graph: dependencies come
// before their importers, and units in one batch have no path between them.
func DependencyOrder(g Graph) *Topo {
	return ToposortKahn(Reverse(g))
}
