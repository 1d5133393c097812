package effects

import (
	"errors"
	"fmt"

	"hostgen/internal/diag"
	"hostgen/internal/fix"
	"hostgen/internal/source"
	"hostgen/internal/tree"
)

var ErrViolation = errors.New("effect violation")

// ViolationError: a site inside a declared function needs effects its
// caller does not permit.
type ViolationError struct {
	Func      string
	Site      source.Span
	What      string // "call to app/net::fetch", "suspension point", ...
	Required  Set
	Permitted Set

	AnnotationSpan source.Span
	Callee         string
	CalleeSpan     source.Span
	SyncAlt        string
}

// Missing is the exact difference that broke subsumption.
func (e *ViolationError) Missing() Set {
	return e.Required.Diff(e.Permitted)
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("%s: %s needs %s ⊄ %s", e.Func, e.What, e.Required, e.Permitted)
}

func (e *ViolationError) Is(target error) bool { return target == ErrViolation }

func (e *ViolationError) Diagnostic() *diag.Diagnostic {
	missing := e.Missing()
	widened := e.Permitted.Join(missing)
	d := diag.NewError(diag.EffViolation, e.Site,
		fmt.Sprintf("%s ⊄ %s: %s in %s requires %s", e.Required, e.Permitted, e.What, e.Func, missing))
	d.WithNote(e.AnnotationSpan, fmt.Sprintf("%s is declared %s", e.Func, e.Permitted))
	d.WithRendering(
		fmt.Sprintf("fn %s %s", e.Func, e.Permitted),
		fmt.Sprintf("fn %s %s", e.Func, widened),
	)

	fixes := fix.For(diag.EffViolation, e.Site)
	switch {
	case e.SyncAlt == "":
	case e.CalleeSpan.IsZero():
		fixes.Advice(fmt.Sprintf("call %s instead of %s", e.SyncAlt, e.Callee), fix.Preferred())
	default:
		fixes.Replace(fmt.Sprintf("call the synchronous %s", e.SyncAlt),
			e.CalleeSpan, e.SyncAlt, e.Callee, fix.Preferred())
	}
	widen := []fix.Option{fix.WithApplicability(diag.FixApplicabilitySafeWithHeuristics)}
	if e.SyncAlt == "" {
		widen = append(widen, fix.Preferred())
	}
	fixes.Replace(fmt.Sprintf("declare %s on %s", missing, e.Func),
		e.AnnotationSpan, widened.String(), "", widen...)
	return fixes.AttachTo(d)
}

func (e *UnknownEffectError) Diagnostic() *diag.Diagnostic {
	d := diag.NewError(diag.EffUnknownEffect, e.Span,
		fmt.Sprintf("effect %q is not one of %s", e.Name, All))
	return fix.For(diag.EffUnknownEffect, e.Span).
		Advice(fmt.Sprintf("remove %q from the annotation of %s", e.Name, e.Func)).
		AttachTo(d)
}

// Check runs one subsumption test per effectful site of every declared
// function. Closure bodies are checked where the closure is called or
// spawned, not where it is written.
func Check(u *tree.Unit, res *Result) []error {
	var errs []error
	for i := range u.Funcs {
		f := &u.Funcs[i]
		fe := res.Func(f.Name)
		if !f.Declared || fe == nil {
			continue
		}
		permitted := fe.Signature.Fixed
		for _, id := range tree.PostOrder(f, f.Body, false) {
			own := fe.Own[id]
			if own.IsPure() || permitted.Subsumes(own) {
				continue
			}
			e := f.Expr(id)
			v := &ViolationError{
				Func:           f.Name,
				Site:           e.Span,
				What:           describe(e),
				Required:       own,
				Permitted:      permitted,
				AnnotationSpan: f.EffectsSpan,
			}
			if e.Kind == tree.ExprCall && e.Callee != "" {
				v.Callee = e.Callee
				v.CalleeSpan = e.CalleeSpan
				v.SyncAlt = fe.Calls[id].SyncAlt
			}
			errs = append(errs, v)
		}
	}
	return errs
}

// UnknownCalleeError: a call whose callee has no effect signature. The
// callee is taken as pure, so the warning is what keeps the assumption visible.
type UnknownCalleeError struct {
	Func       string
	Callee     string
	Site       source.Span
	CalleeSpan source.Span
	Declared   bool // the caller carries an effect annotation
	Calls      int  // call sites of Callee in Func
}

func (e *UnknownCalleeError) Error() string {
	return fmt.Sprintf("%s: callee %s has no effect signature", e.Func, e.Callee)
}

func (e *UnknownCalleeError) Diagnostic() *diag.Diagnostic {
	d := diag.New(diag.SevWarning, diag.EffUnknownCallee, e.Site,
		fmt.Sprintf("%s calls %s, which has no effect signature; it is assumed pure", e.Func, e.Callee))
	if e.Calls > 1 {
		d.WithNote(e.Site, fmt.Sprintf("%d calls of %s in %s share this assumption", e.Calls, e.Callee, e.Func))
	}
	if e.Declared {
		d.WithNote(e.Site, fmt.Sprintf("the effects declared on %s are not checked against this call", e.Func))
	}
	at := e.CalleeSpan
	if at.IsZero() {
		at = e.Site
	}
	return fix.For(diag.EffUnknownCallee, at).
		Advice(fmt.Sprintf("import the unit that defines %s or declare its effects", e.Callee), fix.Preferred()).
		AttachTo(d)
}

// UnknownCallees reports, per function, each callee without a signature
// once, at its first call site in evaluation order.
func UnknownCallees(u *tree.Unit, res *Result) []error {
	var errs []error
	for i := range u.Funcs {
		f := &u.Funcs[i]
		fe := res.Func(f.Name)
		if fe == nil || len(fe.Unknown) == 0 {
			continue
		}
		first := make(map[string]*UnknownCalleeError, len(fe.Unknown))
		for _, uc := range fe.Unknown {
			if w, ok := first[uc.Callee]; ok {
				w.Calls++
				continue
			}
			e := f.Expr(uc.Expr)
			w := &UnknownCalleeError{
				Func:     f.Name,
				Callee:   uc.Callee,
				Declared: f.Declared,
				Calls:    1,
			}
			if e != nil {
				w.Site, w.CalleeSpan = e.Span, e.CalleeSpan
			}
			first[uc.Callee] = w
			errs = append(errs, w)
		}
	}
	return errs
}

func describe(e *tree.Expr) string {
	switch e.Kind {
	case tree.ExprCall:
		if e.Callee != "" {
			return "call to " + e.Callee
		}
		return "callback call"
	case tree.ExprMethod:
		return "method call ." + e.Method
	case tree.ExprAwait:
		return "suspension point"
	case tree.ExprUnsafe:
		return "unsafe block"
	case tree.ExprPrim:
		return e.Prim.String() + " primitive"
	case tree.ExprSpawn:
		return "spawned task"
	case tree.ExprLoop:
		return "unbounded loop"
	}
	return e.Kind.String() + " expression"
}
