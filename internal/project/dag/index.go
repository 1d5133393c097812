package dag

import (
	"fmt"
	"maps"
	"slices"

	"fortio.org/safecast"
)

// ModuleID is a dense index into ModuleIndex.IDToName.
type ModuleID uint32

type ModuleIndex struct {
	NameToID map[string]ModuleID
	IDToName []string
}

// BuildIndex numbers every unit path mentioned by nodes, including
// imports that have no node of their own. IDs follow lexical order so
// batches come out sorted without extra work.
func BuildIndex(nodes []Node) ModuleIndex {
	uniq := make(map[string]struct{}, len(nodes))
	add := func(name string) {
		if name != "" {
			uniq[name] = struct{}{}
		}
	}
	for _, node := range nodes {
		add(node.Name)
		for _, dep := range node.Deps {
			add(dep)
		}
	}

	paths := slices.Sorted(maps.Keys(uniq))
	nameToID := make(map[string]ModuleID, len(paths))
	for i, path := range paths {
		nameToID[path] = mustID(i)
	}
	return ModuleIndex{NameToID: nameToID, IDToName: paths}
}

// Lookup returns the id of name.
func (idx ModuleIndex) Lookup(name string) (ModuleID, bool) {
	id, ok := idx.NameToID[name]
	return id, ok
}

// Names maps ids back to unit names.
func (idx ModuleIndex) Names(ids []ModuleID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = idx.IDToName[int(id)]
	}
	return out
}

func mustID(i int) ModuleID {
	id, err := safecast.Conv[ModuleID](i)
	if err != nil {
		panic(fmt.Errorf("module id overflow: %w", err))
	}
	return id
}
