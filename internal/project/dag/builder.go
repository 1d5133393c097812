package dag

import "slices"

// Builder accumulates the unit graph while units are discovered. IDs are
// assigned in discovery order and edges keep import order, so cycles render
// the way the imports were written.
type Builder struct {
	ids   map[string]ModuleID
	names []string
	edges [][]ModuleID
}

// Cycle is a strongly connected set of units.
type Cycle struct {
	Units []string // every member, in discovery order
	Path  []string // closed walk from the first member back to itself
}

func NewBuilder() *Builder {
	return &Builder{ids: make(map[string]ModuleID)}
}

// AddNode registers name and reports whether it was new.
func (b *Builder) AddNode(name string) (ModuleID, bool) {
	if id, ok := b.ids[name]; ok {
		return id, false
	}
	id := mustID(len(b.names))
	b.ids[name] = id
	b.names = append(b.names, name)
	b.edges = append(b.edges, nil)
	return id, true
}

// Has reports whether name was registered.
func (b *Builder) Has(name string) bool {
	_, ok := b.ids[name]
	return ok
}

// AddEdge records importer -> imported. When the edge closes a cycle the
// cycle's strongly connected component is returned.
func (b *Builder) AddEdge(from, to string) (*Cycle, bool) {
	f, _ := b.AddNode(from)
	t, _ := b.AddNode(to)
	if !slices.Contains(b.edges[f], t) {
		b.edges[f] = append(b.edges[f], t)
	}
	if !b.reaches(t, f) {
		return nil, false
	}
	g := b.graph()
	for _, comp := range StronglyConnected(g) {
		if !slices.Contains(comp, f) || !Cyclic(g, comp) {
			continue
		}
		return b.render(comp), true
	}
	return nil, false
}

// reaches walks from src looking for dst without recursion.
func (b *Builder) reaches(src, dst ModuleID) bool {
	seen := make([]bool, len(b.names))
	stack := []ModuleID{src}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if v == dst {
			return true
		}
		if seen[v] {
			continue
		}
		seen[v] = true
		stack = append(stack, b.edges[v]...)
	}
	return false
}

func (b *Builder) render(comp []ModuleID) *Cycle {
	members := slices.Clone(comp)
	slices.Sort(members)
	inComp := make(map[ModuleID]bool, len(members))
	for _, id := range members {
		inComp[id] = true
	}

	cyc := &Cycle{Units: make([]string, len(members))}
	for i, id := range members {
		cyc.Units[i] = b.names[id]
	}

	// shortest closed walk through the first member, preferring earlier imports
	start := members[0]
	prev := make(map[ModuleID]ModuleID, len(members))
	queue := []ModuleID{start}
	visited := map[ModuleID]bool{}
	var last ModuleID
	found := false
	for len(queue) > 0 && !found {
		v := queue[0]
		queue = queue[1:]
		for _, w := range b.edges[v] {
			if !inComp[w] {
				continue
			}
			if w == start {
				last, found = v, true
				break
			}
			if visited[w] {
				continue
			}
			visited[w] = true
			prev[w] = v
			queue = append(queue, w)
		}
	}
	walk := []ModuleID{start}
	for v := last; v != start; v = prev[v] {
		walk = append(walk, v)
	}
	slices.Reverse(walk[1:])
	walk = append(walk, start)
	cyc.Path = make([]string, len(walk))
	for i, id := range walk {
		cyc.Path[i] = b.names[id]
	}
	return cyc
}

func (b *Builder) graph() Graph {
	n := len(b.names)
	g := Graph{
		Edges:   make([][]ModuleID, n),
		Indeg:   make([]int, n),
		Present: make([]bool, n),
	}
	for i := range n {
		g.Present[i] = true
		g.Edges[i] = slices.Clone(b.edges[i])
		for _, to := range b.edges[i] {
			g.Indeg[int(to)]++
		}
	}
	return g
}

// Nodes returns every unit with its imports in import order.
func (b *Builder) Nodes() []Node {
	out := make([]Node, len(b.names))
	for i, name := range b.names {
		deps := make([]string, len(b.edges[i]))
		for j, to := range b.edges[i] {
			deps[j] = b.names[to]
		}
		out[i] = Node{Name: name, Deps: deps}
	}
	return out
}

// Len returns the number of registered units.
func (b *Builder) Len() int {
	return len(b.names)
}
