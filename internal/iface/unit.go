package iface

import (
	"errors"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"hostgen/internal/modules"
	"hostgen/internal/source"
	"hostgen/internal/tree"
	"hostgen/internal/types"
)

// Call is one resolved method call site.
type Call struct {
	Func       string
	Expr       tree.ExprID
	Resolution Resolution
}

type UnitResult struct {
	Unit    string
	Calls   []Call
	Imports []string // required interface import lines, sorted
	Errors  []error
}

// Lookup returns the resolution of the method call at id in fn.
func (r *UnitResult) Lookup(fn string, id tree.ExprID) (Resolution, bool) {
	for _, c := range r.Calls {
		if c.Func == fn && c.Expr == id {
			return c.Resolution, true
		}
	}
	return Resolution{}, false
}

// DeclareUnit publishes the unit's interfaces and implementations.
func DeclareUnit(idx *Index, u *tree.Unit) {
	for _, decl := range u.Interfaces {
		d := &Descriptor{
			Name:    u.Qualify(decl.Name),
			Origin:  modules.KindLocal,
			Unit:    u.Path,
			Assoc:   decl.Assoc,
			Parents: decl.Parents,
		}
		for _, m := range decl.Methods {
			d.Methods = append(d.Methods, MethodSig{Name: m.Name, Params: m.Params, Result: m.Result, Effects: m.Effects})
		}
		idx.Declare(d)
	}
	for _, impl := range u.Impls {
		idx.Implement(impl.Type, impl.Interface)
	}
}

// ResolveUnit resolves every method call of u, closure bodies included,
// then computes the imports the unit needs.
func ResolveUnit(u *tree.Unit, e *Engine, scope Scope, prelude []string) *UnitResult {
	res := &UnitResult{Unit: u.Path}
	for i := range u.Funcs {
		f := &u.Funcs[i]
		for id := tree.ExprID(1); int(id) < len(f.Exprs); id++ {
			x := f.Expr(id)
			if x.Kind != tree.ExprMethod || len(x.Args) == 0 {
				continue
			}
			recv := f.Expr(x.Args[0])
			if recv == nil {
				continue
			}
			args := make([]types.TypeID, 0, len(x.Args)-1)
			for _, a := range x.Args[1:] {
				if ae := f.Expr(a); ae != nil {
					args = append(args, ae.Type)
				}
			}
			r, err := e.Resolve(recv.Type, x.Method, args, scope)
			if err != nil {
				res.Errors = append(res.Errors, at(err, x.Span))
				continue
			}
			res.Calls = append(res.Calls, Call{Func: f.Name, Expr: id, Resolution: r})
		}
	}
	resolved := make([]Resolution, len(res.Calls))
	for i, c := range res.Calls {
		resolved[i] = c.Resolution
	}
	res.Imports = RequiredImports(resolved, u.Path, prelude)
	return res
}

// at attaches the call site to a resolution error.
func at(err error, span source.Span) error {
	var ni *NoImplementationError
	if errors.As(err, &ni) {
		ni.Span = span
	}
	var am *AmbiguousMethodError
	if errors.As(err, &am) {
		am.Span = span
	}
	return err
}

// RequiredImports returns the minimal sorted set of import lines for the
// resolved calls of unit. Interfaces declared by the unit itself and those
// matched by a prelude glob are already in scope.
func RequiredImports(resolved []Resolution, unit string, prelude []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range resolved {
		if r.Origin == modules.KindLocal && r.Unit == unit {
			continue
		}
		if InPrelude(r.Interface, prelude) || seen[r.ImportLine] {
			continue
		}
		seen[r.ImportLine] = true
		out = append(out, r.ImportLine)
	}
	sort.Strings(out)
	return out
}

// InPrelude reports whether a qualified interface name matches one of the
// prelude globs. Globs use slashes: "std/prelude/**" covers
// "std::prelude::Clone".
func InPrelude(name string, prelude []string) bool {
	path := strings.ReplaceAll(name, "::", "/")
	for _, pattern := range prelude {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}
