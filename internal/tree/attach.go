package tree

import (
	"fmt"

	"hostgen/internal/source"
	"hostgen/internal/types"
)

// Attach registers the unit's source in fs and rebases its local type table
// onto the session interner. Every span and TypeID of the unit is rewritten,
// so Attach must run exactly once per unit.
func Attach(u *Unit, fs *source.FileSet, in *types.Interner) error {
	u.File = fs.AddVirtual(u.Path, u.Source)
	remap, err := in.Rebase(u.Types)
	if err != nil {
		return fmt.Errorf("tree: %s: %w", u.Path, err)
	}
	ty := func(id types.TypeID) types.TypeID {
		if int(id) < len(remap) {
			return remap[id]
		}
		return types.NoTypeID
	}
	sp := func(s *source.Span) {
		s.File = u.File
	}

	for i := range u.Imports {
		sp(&u.Imports[i].Span)
	}
	for i := range u.Interfaces {
		decl := &u.Interfaces[i]
		sp(&decl.Span)
		for j := range decl.Methods {
			m := &decl.Methods[j]
			sp(&m.Span)
			m.Result = ty(m.Result)
			for k := range m.Params {
				m.Params[k] = ty(m.Params[k])
			}
		}
	}
	for i := range u.Impls {
		sp(&u.Impls[i].Span)
		u.Impls[i].Type = ty(u.Impls[i].Type)
	}
	for i := range u.Funcs {
		f := &u.Funcs[i]
		sp(&f.Span)
		sp(&f.EffectsSpan)
		f.Result = ty(f.Result)
		for j := range f.Params {
			f.Params[j].Type = ty(f.Params[j].Type)
		}
		for j := range f.Bindings {
			sp(&f.Bindings[j].Span)
			f.Bindings[j].Type = ty(f.Bindings[j].Type)
		}
		for j := range f.Exprs {
			e := &f.Exprs[j]
			sp(&e.Span)
			if !e.CalleeSpan.IsZero() {
				sp(&e.CalleeSpan)
			}
			e.Type = ty(e.Type)
		}
	}
	// the local table is no longer meaningful once IDs are rebased
	u.Types = nil
	return nil
}
