package iface

import (
	"hostgen/internal/modules"
	"hostgen/internal/types"
)

// DefaultMaxDeref bounds implicit dereferencing of a receiver.
const DefaultMaxDeref = 4

// Resolution is the chosen implementation of one method call.
type Resolution struct {
	Interface  string
	Origin     modules.Kind
	Unit       string // declaring unit for local interfaces
	Method     string
	DerefDepth int          // implicit derefs applied to the receiver
	Receiver   types.TypeID // receiver type after dereferencing
	ImportLine string
	Effects    []string
}

// Scope limits which local interfaces a unit may use: its own and those
// of units it depends on. Standard library and package interfaces are
// always visible. A nil Units map sees everything.
type Scope struct {
	Units map[string]bool
}

func (s Scope) Sees(d *Descriptor) bool {
	if d.Origin != modules.KindLocal || s.Units == nil {
		return true
	}
	return s.Units[d.Unit]
}

type Engine struct {
	Index    *Index
	Types    *types.Interner
	MaxDeref int
}

func NewEngine(idx *Index, in *types.Interner) *Engine {
	return &Engine{Index: idx, Types: in, MaxDeref: DefaultMaxDeref}
}

// Resolve finds the unique interface method for recv.method(args...). The
// receiver is tried as is and then through each level of indirection; the
// first level with a satisfied candidate decides. Several satisfied
// candidates are narrowed by argument types, and any tie that remains is
// reported rather than broken.
func (e *Engine) Resolve(recv types.TypeID, method string, args []types.TypeID, scope Scope) (Resolution, error) {
	var declaring []*Descriptor
	for _, d := range e.Index.Candidates(method) {
		if scope.Sees(d) {
			declaring = append(declaring, d)
		}
	}
	notFound := &NoImplementationError{
		Receiver: types.Label(e.Types, recv),
		Method:   method,
	}
	for _, d := range declaring {
		notFound.Declaring = append(notFound.Declaring, d.Name)
	}
	if len(declaring) == 0 {
		return Resolution{}, notFound
	}

	for depth, ty := range e.Types.DerefChain(recv, e.MaxDeref) {
		var satisfied []*Descriptor
		for _, d := range declaring {
			if e.Index.Satisfies(ty, d.Name) {
				satisfied = append(satisfied, d)
			}
		}
		switch len(satisfied) {
		case 0:
			continue
		case 1:
			return e.resolution(satisfied[0], method, depth, ty), nil
		}
		var accepting []*Descriptor
		for _, d := range satisfied {
			if e.accepts(d, method, args) {
				accepting = append(accepting, d)
			}
		}
		if len(accepting) == 1 {
			return e.resolution(accepting[0], method, depth, ty), nil
		}
		amb := &AmbiguousMethodError{
			Receiver: types.Label(e.Types, ty),
			Method:   method,
		}
		tied := accepting
		if len(tied) == 0 {
			tied = satisfied
		}
		for _, d := range tied {
			amb.Candidates = append(amb.Candidates, d.Name)
		}
		return Resolution{}, amb
	}
	return Resolution{}, notFound
}

func (e *Engine) accepts(d *Descriptor, method string, args []types.TypeID) bool {
	sig, ok := d.Method(method)
	if !ok || len(sig.Params) != len(args) {
		return false
	}
	for i, p := range sig.Params {
		if !e.Types.Assignable(args[i], p) {
			return false
		}
	}
	return true
}

func (e *Engine) resolution(d *Descriptor, method string, depth int, recv types.TypeID) Resolution {
	sig, _ := d.Method(method)
	return Resolution{
		Interface:  d.Name,
		Origin:     d.Origin,
		Unit:       d.Unit,
		Method:     method,
		DerefDepth: depth,
		Receiver:   recv,
		ImportLine: d.ImportLine(),
		Effects:    sig.Effects,
	}
}
