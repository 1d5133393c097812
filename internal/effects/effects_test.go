package effects

import (
	"errors"
	"strings"
	"testing"

	"hostgen/internal/diag"
	"hostgen/internal/fix"
	"hostgen/internal/source"
	"hostgen/internal/tree"
	"hostgen/internal/types"
)

func TestLatticeLaws(t *testing.T) {
	for a := Set(0); a <= All; a++ {
		if a.Join(Pure) != a {
			t.Fatalf("pure must be the identity of join: %s", a)
		}
		if !a.Subsumes(a) {
			t.Fatalf("subsumption must be reflexive: %s", a)
		}
		for b := Set(0); b <= All; b++ {
			if a.Join(b) != b.Join(a) || a.Meet(b) != b.Meet(a) {
				t.Fatalf("join/meet must commute: %s %s", a, b)
			}
			if a.Subsumes(b) != (a.Join(b) == a) {
				t.Fatalf("subsumes(%s, %s) disagrees with join", a, b)
			}
			if a.Diff(b).Meet(b) != Pure || !b.Join(a.Diff(b)).Subsumes(a) {
				t.Fatalf("diff(%s, %s) is not exact", a, b)
			}
			for c := Set(0); c <= All; c += 5 {
				if a.Join(b).Join(c) != a.Join(b.Join(c)) || a.Meet(b).Meet(c) != a.Meet(b.Meet(c)) {
					t.Fatalf("join/meet must associate: %s %s %s", a, b, c)
				}
				if a.Subsumes(b) && b.Subsumes(c) && !a.Subsumes(c) {
					t.Fatalf("subsumption must be transitive: %s %s %s", a, b, c)
				}
			}
		}
	}
}

func TestSetStringAndParse(t *testing.T) {
	if Pure.String() != "{pure}" || (Async | IO).String() != "{async, io}" {
		t.Fatalf("unexpected rendering %s %s", Pure, Async|IO)
	}
	s, err := Parse([]string{"io", "Panic", "pure"})
	if err != nil || s != IO|Panic {
		t.Fatalf("Parse = %s, %v", s, err)
	}
	if _, err := Parse([]string{"gpu"}); err == nil {
		t.Fatalf("expected unknown effect error")
	}
}

func TestPureCallerOfAsyncFunction(t *testing.T) {
	content := "fn caller() {pure} { fetch() }"

	fetch := tree.NewFunc("fetch").Declare("async").SyncAlt("fetch_blocking")
	fetchFn := fetch.Finish(fetch.Await(fetch.Lit("1", types.NoTypeID)))

	caller := tree.NewFunc("caller").Declare()
	call := caller.Call("fetch")
	callerFn := caller.Finish(caller.Block(call))
	at := uint32(strings.Index(content, "fetch("))
	callerFn.Exprs[call].CalleeSpan = source.Span{Start: at, End: at + 5}
	ann := uint32(strings.Index(content, "{pure}"))
	callerFn.EffectsSpan = source.Span{Start: ann, End: ann + 6}

	u := &tree.Unit{Path: "app", Funcs: []tree.Func{fetchFn, callerFn}}
	res := Infer(u, Env{})
	errs := Check(u, res)
	if len(errs) != 1 {
		t.Fatalf("errs = %v, want one violation", errs)
	}
	var v *ViolationError
	if !errors.As(errs[0], &v) || !errors.Is(errs[0], ErrViolation) {
		t.Fatalf("got %T", errs[0])
	}
	if v.Required != Async || v.Permitted != Pure || v.Missing() != Async {
		t.Fatalf("violation = %+v", v)
	}
	d := v.Diagnostic()
	if !strings.Contains(d.Message, "{async} ⊄ {pure}") || d.Code != diag.EffViolation {
		t.Fatalf("message = %q", d.Message)
	}
	if d.Rendering == nil || d.Rendering.After != "fn caller {async}" {
		t.Fatalf("rendering = %+v", d.Rendering)
	}
	if len(d.Fixes) != 2 || !d.Fixes[0].IsPreferred {
		t.Fatalf("fixes = %+v", d.Fixes)
	}
	got, err := fix.Render(content, 0, d.Fixes[0])
	if err != nil || got != "fn caller() {pure} { fetch_blocking() }" {
		t.Fatalf("sync fix = %q, %v", got, err)
	}
	got, err = fix.Render(content, 0, d.Fixes[1])
	if err != nil || got != "fn caller() {async} { fetch() }" {
		t.Fatalf("redeclare fix = %q, %v", got, err)
	}
}

func TestHigherOrderCombinatorIsPolymorphic(t *testing.T) {
	in := types.NewInterner()
	intT := in.Builtins().Int
	fnT := in.Intern(types.MakeFn([]types.TypeID{intT}, intT))

	mapB := tree.NewFunc("map")
	xs := mapB.Param("xs", intT)
	f := mapB.Param("f", fnT)
	mapFn := mapB.Finish(mapB.CallParam(f, mapB.Name(xs)))

	pure := tree.NewFunc("pure_caller").Declare()
	pureFn := pure.Finish(pure.Call("map", pure.Lit("1", intT),
		pure.Closure(nil, nil, pure.Binary("+", pure.Lit("1", intT), pure.Lit("2", intT)))))

	async := tree.NewFunc("async_caller").Declare()
	asyncFn := async.Finish(async.Call("map", async.Lit("1", intT),
		async.Closure(nil, nil, async.Await(async.Lit("1", intT)))))

	u := &tree.Unit{Path: "app", Funcs: []tree.Func{mapFn, pureFn, asyncFn}}
	res := Infer(u, Env{Types: in})
	sig := res.Func("map").Signature
	if sig.Fixed != Pure || len(sig.Vars) != 1 || sig.Vars[0].Param != 1 {
		t.Fatalf("map signature = %s %+v", sig, sig.Vars)
	}
	errs := Check(u, res)
	if len(errs) != 1 {
		t.Fatalf("errs = %v", errs)
	}
	var v *ViolationError
	if !errors.As(errs[0], &v) || v.Func != "async_caller" || v.Required != Async {
		t.Fatalf("violation = %v", errs[0])
	}
}

func TestPrimitivesAndStdCalls(t *testing.T) {
	b := tree.NewFunc("work").Declare("io")
	body := b.Block(
		b.Call("std::fs::read"),
		b.Prim(tree.PrimPanic),
		b.Unsafe(b.Lit("0", types.NoTypeID)),
		b.Loop(true, b.Prim(tree.PrimAlloc)),
	)
	fn := b.Finish(body)
	u := &tree.Unit{Path: "app", Funcs: []tree.Func{fn}}
	res := Infer(u, Env{})
	if got := res.Func("work").Eff[fn.Body]; got != IO|Panic|Diverge|Unsafe|Alloc {
		t.Fatalf("body effect = %s", got)
	}
	errs := Check(u, res)
	missing := Pure
	for _, err := range errs {
		var v *ViolationError
		if !errors.As(err, &v) {
			t.Fatalf("unexpected %v", err)
		}
		missing = missing.Join(v.Missing())
	}
	if len(errs) != 4 || missing != Panic|Diverge|Unsafe|Alloc {
		t.Fatalf("errs = %v, missing %s", errs, missing)
	}
}

func TestMutualRecursionReachesFixpoint(t *testing.T) {
	even := tree.NewFunc("even")
	evenFn := even.Finish(even.Call("odd"))
	odd := tree.NewFunc("odd")
	oddFn := odd.Finish(odd.Block(odd.Prim(tree.PrimIO), odd.Call("app::even")))

	u := &tree.Unit{Path: "app", Funcs: []tree.Func{evenFn, oddFn}}
	res := Infer(u, Env{})
	if res.Func("even").Signature.Fixed != IO || res.Func("odd").Signature.Fixed != IO {
		t.Fatalf("even %s odd %s", res.Func("even").Signature, res.Func("odd").Signature)
	}
}

func TestSessionSignaturesAndMethods(t *testing.T) {
	sigs := NewSignatures()
	sigs.Publish(Signature{Name: "lib::fetch", Fixed: Async | IO, Declared: true})
	if got := sigs.Publish(Signature{Name: "lib::fetch"}); got.Fixed != Async|IO {
		t.Fatalf("first publication must win, got %s", got)
	}

	b := tree.NewFunc("run").Declare("async", "io")
	m := b.Method(b.Lit("x", types.NoTypeID), "flush")
	fn := b.Finish(b.Block(b.Call("lib::fetch"), m, b.Call("nowhere::f")))
	u := &tree.Unit{Path: "app", Funcs: []tree.Func{fn}}
	res := Infer(u, Env{
		Signatures: sigs,
		Method: func(f *tree.Func, id tree.ExprID) (Set, bool) {
			return Tool, id == m
		},
	})
	errs := Check(u, res)
	if len(errs) != 1 {
		t.Fatalf("errs = %v", errs)
	}
	var v *ViolationError
	if !errors.As(errs[0], &v) || v.Required != Tool || !strings.Contains(v.What, ".flush") {
		t.Fatalf("violation = %v", errs[0])
	}
	if unknown := res.Func("run").Unknown; len(unknown) != 1 || unknown[0].Callee != "nowhere::f" {
		t.Fatalf("unknown = %v", unknown)
	}
}

func TestUnknownCalleesWarnOncePerCallee(t *testing.T) {
	sigs := NewSignatures()
	sigs.Publish(Signature{Name: "lib::fetch", Fixed: IO, Declared: true})
	b := tree.NewFunc("run").Declare("io")
	fn := b.Finish(b.Block(
		b.Call("ext::send"),
		b.Call("lib::fetch"),
		b.Call("ext::send"),
	))
	u := &tree.Unit{Path: "app", Funcs: []tree.Func{fn}}
	res := Infer(u, Env{Signatures: sigs})
	if errs := Check(u, res); len(errs) != 0 {
		t.Fatalf("violations = %v", errs)
	}
	errs := UnknownCallees(u, res)
	if len(errs) != 1 {
		t.Fatalf("warnings = %v", errs)
	}
	var w *UnknownCalleeError
	if !errors.As(errs[0], &w) || w.Callee != "ext::send" || w.Calls != 2 || !w.Declared {
		t.Fatalf("warning = %+v", errs[0])
	}
	d := w.Diagnostic()
	if d.Severity != diag.SevWarning || d.Code != diag.EffUnknownCallee || d.Code.ID() != "EFF3203" {
		t.Fatalf("diagnostic = %s %s", d.Severity, d.Code.ID())
	}
	if len(d.Notes) != 2 || len(d.Fixes) != 1 || !strings.Contains(d.Message, "assumed pure") {
		t.Fatalf("diagnostic = %+v", d)
	}
}

func TestSpawnCarriesClosureEffect(t *testing.T) {
	b := tree.NewFunc("start").Declare()
	fn := b.Finish(b.Spawn(b.Closure(nil, nil, b.Prim(tree.PrimIO))))
	u := &tree.Unit{Path: "app", Funcs: []tree.Func{fn}}
	errs := Check(u, Infer(u, Env{}))
	if len(errs) != 1 {
		t.Fatalf("errs = %v", errs)
	}
	var v *ViolationError
	if !errors.As(errs[0], &v) || v.What != "spawned task" || v.Required != IO {
		t.Fatalf("violation = %v", errs[0])
	}
}

func TestUnknownEffectName(t *testing.T) {
	b := tree.NewFunc("f").Declare("io", "gpu")
	fn := b.Finish(b.Prim(tree.PrimIO))
	u := &tree.Unit{Path: "app", Funcs: []tree.Func{fn}}
	res := Infer(u, Env{})
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %v", res.Errors)
	}
	var ue *UnknownEffectError
	if !errors.As(res.Errors[0], &ue) || ue.Name != "gpu" || ue.Diagnostic().Code != diag.EffUnknownEffect {
		t.Fatalf("error = %v", res.Errors[0])
	}
	if errs := Check(u, res); len(errs) != 0 {
		t.Fatalf("io is still declared: %v", errs)
	}
}
