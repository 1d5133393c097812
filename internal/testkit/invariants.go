// Package testkit holds invariant checks shared by package tests.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"hostgen/internal/source"
	"hostgen/internal/tree"
)

// CheckUnitInvariants runs a minimal set of structural invariants on an
// attached unit:
// 1) every non-zero span points at sf and lies within its content (when the
// unit carries its source)
// 2) every expression and binding reference is in range
// 3) each expression under a function body is reached at most once
func CheckUnitInvariants(u *tree.Unit, sf *source.File) error {
	if u == nil || sf == nil {
		return fmt.Errorf("nil unit or file")
	}
	if u.File != sf.ID {
		return fmt.Errorf("unit %s attached to file %d, want %d", u.Path, u.File, sf.ID)
	}
	lenContent, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	span := func(what string, sp source.Span) error {
		if sp.IsZero() {
			return nil
		}
		if sp.File != sf.ID {
			return fmt.Errorf("%s: span file mismatch: got=%d want=%d", what, sp.File, sf.ID)
		}
		if sp.End < sp.Start || (lenContent > 0 && sp.End > lenContent) {
			return fmt.Errorf("%s: span %v outside content of length %d", what, sp, lenContent)
		}
		return nil
	}

	for _, imp := range u.Imports {
		if err := span("import "+imp.Path, imp.Span); err != nil {
			return err
		}
	}
	for i := range u.Funcs {
		if err := checkFunc(u.Path, &u.Funcs[i], span); err != nil {
			return err
		}
	}
	return nil
}

func checkFunc(unit string, f *tree.Func, span func(string, source.Span) error) error {
	where := unit + "::" + f.Name
	if err := span(where, f.Span); err != nil {
		return err
	}
	if f.Expr(f.Body) == nil {
		return fmt.Errorf("%s: body %d out of range", where, f.Body)
	}
	binding := func(id tree.BindingID) error {
		if f.Binding(id) == nil {
			return fmt.Errorf("%s: binding %d out of range", where, id)
		}
		return nil
	}
	for _, p := range f.Params {
		if err := binding(p.Binding); err != nil {
			return err
		}
	}

	seen := make([]bool, len(f.Exprs))
	stack := []tree.ExprID{f.Body}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		e := f.Expr(id)
		if e == nil {
			return fmt.Errorf("%s: expression %d out of range", where, id)
		}
		if seen[id] {
			return fmt.Errorf("%s: expression %d reached twice", where, id)
		}
		seen[id] = true
		if err := span(fmt.Sprintf("%s #%d", where, id), e.Span); err != nil {
			return err
		}
		switch e.Kind {
		case tree.ExprName, tree.ExprAddrMut, tree.ExprAssign, tree.ExprLet:
			if err := binding(e.Binding); err != nil {
				return err
			}
		case tree.ExprCall:
			if e.Binding != tree.NoBinding {
				if err := binding(e.Binding); err != nil {
					return err
				}
			}
		case tree.ExprClosure:
			for _, b := range append(append([]tree.BindingID(nil), e.Params...), e.Captures...) {
				if err := binding(b); err != nil {
					return err
				}
			}
			stack = append(stack, e.Body)
		}
		stack = append(stack, e.Args...)
	}
	return nil
}
