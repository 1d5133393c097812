package dag

// StronglyConnected returns the strongly connected components of g using an
// iterative Tarjan walk, so deep graphs do not grow the goroutine stack.
// Components are emitted in reverse topological order; members keep discovery order.
func StronglyConnected(g Graph) [][]ModuleID {
	n := len(g.Edges)
	const unvisited = -1
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = unvisited
	}

	type frame struct {
		node ModuleID
		next int // next edge to explore
	}

	var (
		comps   [][]ModuleID
		stack   []ModuleID
		counter int
	)

	for root := range n {
		if index[root] != unvisited {
			continue
		}
		call := []frame{{node: mustID(root)}}
		index[root] = counter
		low[root] = counter
		counter++
		stack = append(stack, mustID(root))
		onStack[root] = true

		for len(call) > 0 {
			top := &call[len(call)-1]
			v := int(top.node)
			if top.next < len(g.Edges[v]) {
				w := g.Edges[v][top.next]
				top.next++
				switch {
				case index[w] == unvisited:
					index[w] = counter
					low[w] = counter
					counter++
					stack = append(stack, w)
					onStack[w] = true
					call = append(call, frame{node: w})
				case onStack[w]:
					low[v] = min(low[v], index[w])
				}
				continue
			}

			// all edges of v explored
			call = call[:len(call)-1]
			if len(call) > 0 {
				parent := int(call[len(call)-1].node)
				low[parent] = min(low[parent], low[v])
			}
			if low[v] != index[v] {
				continue
			}
			var comp []ModuleID
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp = append(comp, w)
				if int(w) == v {
					break
				}
			}
			// stack pops in reverse discovery order
			for i, j := 0, len(comp)-1; i < j; i, j = i+1, j-1 {
				comp[i], comp[j] = comp[j], comp[i]
			}
			comps = append(comps, comp)
		}
	}
	return comps
}

// Cyclic reports whether comp is a cycle: more than one member, or a self edge.
func Cyclic(g Graph, comp []ModuleID) bool {
	if len(comp) > 1 {
		return true
	}
	if len(comp) == 1 {
		for _, to := range g.Edges[int(comp[0])] {
			if to == comp[0] {
				return true
			}
		}
	}
	return false
}
