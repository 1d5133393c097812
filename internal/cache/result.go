// Package cache stores analysed units by content digest, in memory for the
// session and optionally on disk across runs.
package cache

import (
	"hostgen/internal/diag"
	"hostgen/internal/effects"
	"hostgen/internal/iface"
	"hostgen/internal/ownership"
	"hostgen/internal/project"
	"hostgen/internal/tree"
)

// UnitResult is the annotated output of one unit.
type UnitResult struct {
	Schema      uint16              `msgpack:"schema"`
	Unit        string              `msgpack:"unit"`
	Digest      project.Digest      `msgpack:"digest"`
	Signatures  []effects.Signature `msgpack:"signatures,omitempty"`
	Funcs       []FuncAnnotation    `msgpack:"funcs,omitempty"`
	Imports     []string            `msgpack:"imports,omitempty"` // interface import lines
	Diagnostics []*diag.Diagnostic  `msgpack:"diagnostics,omitempty"`
	Broken      bool                `msgpack:"broken,omitempty"` // has error diagnostics
}

type FuncAnnotation struct {
	Name     string              `msgpack:"name"`
	Effects  []effects.Set       `msgpack:"effects"` // per ExprID
	Methods  []MethodAnnotation  `msgpack:"methods,omitempty"`
	Bindings []BindingAnnotation `msgpack:"bindings,omitempty"`
}

type MethodAnnotation struct {
	Expr       tree.ExprID `msgpack:"expr"`
	Interface  string      `msgpack:"iface"`
	DerefDepth int         `msgpack:"deref,omitempty"`
	ImportLine string      `msgpack:"import"`
}

type BindingAnnotation struct {
	Name    string            `msgpack:"name"`
	Pattern ownership.Pattern `msgpack:"pattern"`
	Uses    []UseAnnotation   `msgpack:"uses,omitempty"`
}

type UseAnnotation struct {
	Expr     tree.ExprID        `msgpack:"expr"`
	Kind     ownership.UseKind  `msgpack:"kind"`
	Strategy ownership.Strategy `msgpack:"strategy"`
}

// Func returns the annotation of the named function, or nil.
func (r *UnitResult) Func(name string) *FuncAnnotation {
	for i := range r.Funcs {
		if r.Funcs[i].Name == name {
			return &r.Funcs[i]
		}
	}
	return nil
}

// Annotate flattens the three analyses of u into one result. Any of them
// may be nil when the unit stopped early.
func Annotate(u *tree.Unit, eff *effects.Result, own *ownership.UnitResult, ifc *iface.UnitResult, diags []*diag.Diagnostic) *UnitResult {
	r := &UnitResult{
		Schema:      SchemaVersion,
		Unit:        u.Path,
		Digest:      u.Digest,
		Diagnostics: diags,
	}
	for _, d := range diags {
		if d.Severity >= diag.SevError {
			r.Broken = true
			break
		}
	}
	if eff != nil {
		r.Signatures = eff.Signatures()
	}
	if ifc != nil {
		r.Imports = ifc.Imports
	}
	for i := range u.Funcs {
		f := &u.Funcs[i]
		fa := FuncAnnotation{Name: f.Name}
		if eff != nil {
			if fe := eff.Func(f.Name); fe != nil {
				fa.Effects = fe.Eff
			}
		}
		if ifc != nil {
			for _, c := range ifc.Calls {
				if c.Func != f.Name {
					continue
				}
				fa.Methods = append(fa.Methods, MethodAnnotation{
					Expr:       c.Expr,
					Interface:  c.Resolution.Interface,
					DerefDepth: c.Resolution.DerefDepth,
					ImportLine: c.Resolution.ImportLine,
				})
			}
		}
		if own != nil {
			if fr := own.Func(f.Name); fr != nil {
				for _, b := range fr.Bindings {
					ba := BindingAnnotation{Name: b.Name, Pattern: b.Pattern}
					for _, use := range b.Uses {
						ba.Uses = append(ba.Uses, UseAnnotation{Expr: use.Expr, Kind: use.Kind, Strategy: use.Strategy})
					}
					fa.Bindings = append(fa.Bindings, ba)
				}
			}
		}
		r.Funcs = append(r.Funcs, fa)
	}
	return r
}
