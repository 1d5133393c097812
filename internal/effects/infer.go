package effects

import (
	"fmt"
	"strings"

	"hostgen/internal/modules"
	"hostgen/internal/source"
	"hostgen/internal/tree"
	"hostgen/internal/types"
)

// Env holds what inference reads besides the unit itself.
type Env struct {
	Signatures *Signatures     // effects of already analysed units
	Types      *types.Interner // finds callback parameters; nil disables effect variables
	// Method returns the effect of the resolved method call at id, if any.
	Method func(fn *tree.Func, id tree.ExprID) (Set, bool)
}

// FuncEffects is the inference result for one function.
type FuncEffects struct {
	Name      string
	Signature Signature
	// Own, Eff and Latent are indexed by ExprID. Own is the effect of the
	// expression by itself, Eff joins in its operands, Latent is the effect
	// of calling a closure or function value.
	Own     []Set
	Eff     []Set
	Latent  []Set
	Calls   map[tree.ExprID]Signature // callee signature per named call
	Unknown []UnknownCall             // callees without a signature, taken as pure
}

// UnknownCall is a named call whose callee has no signature.
type UnknownCall struct {
	Callee string
	Expr   tree.ExprID
}

// Result holds the inference result for a unit.
type Result struct {
	Unit  string
	Funcs []*FuncEffects // unit order
	// Errors are annotation problems; the affected function is treated as
	// declaring the effects that could be read.
	Errors []error
}

// Func returns the result for the named function, or nil.
func (r *Result) Func(name string) *FuncEffects {
	for _, f := range r.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Signatures returns the signatures the unit exposes to importers.
func (r *Result) Signatures() []Signature {
	out := make([]Signature, len(r.Funcs))
	for i, f := range r.Funcs {
		out[i] = f.Signature
	}
	return out
}

// UnknownEffectError: an annotation names an effect outside the vocabulary.
type UnknownEffectError struct {
	Func string
	Name string
	Span source.Span
}

func (e *UnknownEffectError) Error() string {
	return fmt.Sprintf("%s: unknown effect %q", e.Func, e.Name)
}

// Infer computes effects for every function of u. Undeclared functions get
// the least fixpoint of their bodies, so mutual recursion inside the unit
// converges; declared functions expose their annotation.
func Infer(u *tree.Unit, env Env) *Result {
	res := &Result{Unit: u.Path}
	local := make(map[string]*FuncEffects, len(u.Funcs))
	for i := range u.Funcs {
		f := &u.Funcs[i]
		fe := &FuncEffects{Name: f.Name}
		fe.Signature = Signature{
			Name:     u.Qualify(f.Name),
			Declared: f.Declared,
			SyncAlt:  f.SyncAlt,
			Vars:     callbackVars(f, env.Types),
		}
		if f.Declared {
			for _, name := range f.Effects {
				bit, ok := ParseName(name)
				if !ok {
					res.Errors = append(res.Errors, &UnknownEffectError{Func: f.Name, Name: name, Span: f.EffectsSpan})
					continue
				}
				fe.Signature.Fixed |= bit
			}
		}
		local[f.Name] = fe
		res.Funcs = append(res.Funcs, fe)
	}

	inf := &inferrer{unit: u, env: env, local: local}
	// монотонно растёт, решётка конечна
	for changed := true; changed; {
		changed = false
		for i := range u.Funcs {
			f := &u.Funcs[i]
			fe := local[f.Name]
			inf.walk(f, fe)
			if f.Declared {
				continue
			}
			if body := fe.Eff[f.Body]; body != fe.Signature.Fixed {
				fe.Signature.Fixed = fe.Signature.Fixed.Join(body)
				changed = true
			}
		}
	}
	// final pass so every map reflects the converged signatures
	for i := range u.Funcs {
		inf.walk(&u.Funcs[i], local[u.Funcs[i].Name])
	}
	return res
}

// callbackVars makes one effect variable per function-typed parameter.
func callbackVars(f *tree.Func, in *types.Interner) []Var {
	if in == nil {
		return nil
	}
	var vars []Var
	for i, p := range f.Params {
		if in.IsFn(p.Type) {
			vars = append(vars, Var{Param: i, Name: p.Name})
		}
	}
	return vars
}

type inferrer struct {
	unit  *tree.Unit
	env   Env
	local map[string]*FuncEffects
}

// lookup finds a callee signature: this unit first, then the session index,
// then the standard library table. Unknown callees are pure and listed in
// FuncEffects.Unknown.
func (in *inferrer) lookup(callee string) (Signature, bool) {
	if fe, ok := in.local[callee]; ok {
		return fe.Signature, true
	}
	if fe, ok := in.local[strings.TrimPrefix(callee, in.unit.Path+"::")]; ok {
		return fe.Signature, true
	}
	if sig, ok := in.env.Signatures.Lookup(callee); ok {
		return sig, true
	}
	if modules.KnownStd(modules.StdSubmodule(callee)) {
		bit, _ := ParseName(modules.StdCapability(callee))
		return Signature{Name: callee, Fixed: bit}, true
	}
	return Signature{Name: callee}, false
}

// walkState is the per-function state of one pass.
type walkState struct {
	f         *tree.Func
	fe        *FuncEffects
	callbacks map[tree.BindingID]bool // parameters with an effect variable
	bound     map[tree.BindingID]Set  // latent effect of let-bound closures
}

func (in *inferrer) walk(f *tree.Func, fe *FuncEffects) {
	n := len(f.Exprs)
	fe.Own = make([]Set, n)
	fe.Eff = make([]Set, n)
	fe.Latent = make([]Set, n)
	fe.Calls = make(map[tree.ExprID]Signature)
	fe.Unknown = fe.Unknown[:0]

	st := &walkState{
		f:         f,
		fe:        fe,
		callbacks: make(map[tree.BindingID]bool, len(fe.Signature.Vars)),
		bound:     make(map[tree.BindingID]Set),
	}
	for _, v := range fe.Signature.Vars {
		st.callbacks[f.Params[v.Param].Binding] = true
	}

	for _, id := range tree.PostOrder(f, f.Body, true) {
		e := f.Expr(id)
		own := in.own(st, id, e)
		fe.Own[id] = own
		eff := own
		for _, c := range e.Args {
			eff = eff.Join(fe.Eff[c])
		}
		fe.Eff[id] = eff

		switch e.Kind {
		case tree.ExprClosure:
			fe.Latent[id] = fe.Eff[e.Body]
		case tree.ExprFuncRef:
			sig, _ := in.lookup(e.Callee)
			fe.Latent[id] = sig.Solve(nil)
		case tree.ExprName:
			fe.Latent[id] = st.bound[e.Binding]
		case tree.ExprLet, tree.ExprAssign:
			if len(e.Args) > 0 {
				st.bound[e.Binding] = st.bound[e.Binding].Join(fe.Latent[e.Args[0]])
			}
		}
	}
}

func (in *inferrer) own(st *walkState, id tree.ExprID, e *tree.Expr) Set {
	switch e.Kind {
	case tree.ExprAwait:
		return Async
	case tree.ExprUnsafe:
		return Unsafe
	case tree.ExprLoop:
		if e.Infinite {
			return Diverge
		}
	case tree.ExprPrim:
		switch e.Prim {
		case tree.PrimIO:
			return IO
		case tree.PrimPanic, tree.PrimAbort:
			return Panic | Diverge
		case tree.PrimAlloc:
			return Alloc
		case tree.PrimTool:
			return Tool
		}
	case tree.ExprSpawn:
		if len(e.Args) > 0 {
			return st.fe.Latent[e.Args[0]]
		}
	case tree.ExprCall:
		if e.Binding != tree.NoBinding {
			// a callback parameter is accounted for by the caller's variable
			if st.callbacks[e.Binding] {
				return Pure
			}
			return st.bound[e.Binding]
		}
		sig, ok := in.lookup(e.Callee)
		if !ok {
			st.fe.Unknown = append(st.fe.Unknown, UnknownCall{Callee: e.Callee, Expr: id})
		}
		st.fe.Calls[id] = sig
		args := make([]Set, len(e.Args))
		for i, a := range e.Args {
			args[i] = st.argLatent(a)
		}
		return sig.Solve(args)
	case tree.ExprMethod:
		if in.env.Method != nil {
			if s, ok := in.env.Method(st.f, id); ok {
				return s
			}
		}
	}
	return Pure
}

// argLatent is the effect a callee takes on by calling argument a. A
// callback parameter passed along is covered by the caller's own variable.
func (st *walkState) argLatent(a tree.ExprID) Set {
	e := st.f.Expr(a)
	if e == nil {
		return Pure
	}
	if e.Kind == tree.ExprName && st.callbacks[e.Binding] {
		return Pure
	}
	return st.fe.Latent[a]
}
