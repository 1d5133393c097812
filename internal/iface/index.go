// Package iface resolves method calls to the interface that provides them
// and computes the interface imports the host code needs.
package iface

import (
	"sort"
	"strings"
	"sync"

	"hostgen/internal/memo"
	"hostgen/internal/modules"
	"hostgen/internal/types"
)

type MethodSig struct {
	Name    string
	Params  []types.TypeID // receiver excluded
	Result  types.TypeID
	Effects []string
}

// Descriptor is one interface declaration.
type Descriptor struct {
	Name    string // qualified: "app/shapes::Area", "std::fmt::Display"
	Origin  modules.Kind
	Unit    string // declaring unit for local interfaces
	Methods []MethodSig
	Assoc   []string
	Parents []string // qualified
}

// Method returns the signature of the named method, if declared.
func (d *Descriptor) Method(name string) (MethodSig, bool) {
	for _, m := range d.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return MethodSig{}, false
}

// ImportLine is the host import that brings the interface into scope.
func (d *Descriptor) ImportLine() string {
	switch d.Origin {
	case modules.KindLocal:
		path, name := splitQualified(d.Name)
		return "use crate::" + strings.ReplaceAll(path, "/", "::") + "::" + name + ";"
	default:
		return "use " + d.Name + ";"
	}
}

func splitQualified(name string) (path, short string) {
	i := strings.LastIndex(name, "::")
	if i < 0 {
		return "", name
	}
	return name[:i], name[i+2:]
}

// Index holds the session's interface declarations (method name to
// declaring interfaces) and implementations (type to satisfied interfaces).
// Each part has its own lock; declarations are insert-if-absent.
type Index struct {
	descriptors *memo.Table[string, *Descriptor]

	methodsMu sync.RWMutex
	methods   map[string][]string

	implsMu sync.RWMutex
	impls   map[types.TypeID]map[string]bool
}

func NewIndex() *Index {
	return &Index{
		descriptors: memo.NewTable[string, *Descriptor](),
		methods:     make(map[string][]string),
		impls:       make(map[types.TypeID]map[string]bool),
	}
}

// Declare adds d unless an interface with the same name exists, and
// returns the stored descriptor.
func (x *Index) Declare(d *Descriptor) *Descriptor {
	actual, loaded := x.descriptors.LoadOrStore(d.Name, d)
	if loaded {
		return actual
	}
	x.methodsMu.Lock()
	for _, m := range d.Methods {
		x.methods[m.Name] = append(x.methods[m.Name], d.Name)
	}
	x.methodsMu.Unlock()
	return d
}

// Implement records that ty satisfies the interface iface.
func (x *Index) Implement(ty types.TypeID, iface string) {
	x.implsMu.Lock()
	defer x.implsMu.Unlock()
	set := x.impls[ty]
	if set == nil {
		set = make(map[string]bool)
		x.impls[ty] = set
	}
	set[iface] = true
}

// Lookup returns the descriptor with the given qualified name.
func (x *Index) Lookup(name string) (*Descriptor, bool) {
	return x.descriptors.Get(name)
}

// Satisfies reports whether ty implements iface, directly or through an
// interface that has iface as an ancestor.
func (x *Index) Satisfies(ty types.TypeID, iface string) bool {
	x.implsMu.RLock()
	direct := make([]string, 0, len(x.impls[ty]))
	for name := range x.impls[ty] {
		direct = append(direct, name)
	}
	x.implsMu.RUnlock()

	seen := make(map[string]bool, len(direct))
	queue := direct
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if name == iface {
			return true
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		if d, ok := x.Lookup(name); ok {
			queue = append(queue, d.Parents...)
		}
	}
	return false
}

// Candidates returns the interfaces declaring method, sorted by name.
func (x *Index) Candidates(method string) []*Descriptor {
	x.methodsMu.RLock()
	names := append([]string(nil), x.methods[method]...)
	x.methodsMu.RUnlock()
	sort.Strings(names)
	out := make([]*Descriptor, 0, len(names))
	for _, n := range names {
		if d, ok := x.Lookup(n); ok {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of declared interfaces.
func (x *Index) Len() int {
	return x.descriptors.Len()
}
