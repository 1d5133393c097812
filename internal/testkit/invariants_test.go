package testkit

import (
	"strings"
	"testing"

	"hostgen/internal/source"
	"hostgen/internal/tree"
	"hostgen/internal/types"
)

func attached(t *testing.T, fn tree.Func, src string) (*tree.Unit, *source.File) {
	t.Helper()
	in := types.NewInterner()
	u := &tree.Unit{Path: "app/main", Funcs: []tree.Func{fn}, Types: in.Table(), Source: []byte(src)}
	fs := source.NewFileSet()
	if err := tree.Attach(u, fs, in); err != nil {
		t.Fatalf("attach: %v", err)
	}
	return u, fs.Get(u.File)
}

func TestWellFormedUnit(t *testing.T) {
	b := tree.NewFunc("main")
	x := b.Bind("x", types.NoTypeID)
	fn := b.Finish(b.Block(b.Let(x, b.Call("f")), b.Spawn(b.Closure(nil, []tree.BindingID{x}, b.Name(x)))))
	u, f := attached(t, fn, strings.Repeat(" ", 64))
	if err := CheckUnitInvariants(u, f); err != nil {
		t.Fatalf("unexpected violation: %v", err)
	}
}

func TestDanglingBinding(t *testing.T) {
	b := tree.NewFunc("main")
	fn := b.Finish(b.Block(b.Name(7)))
	u, f := attached(t, fn, "")
	err := CheckUnitInvariants(u, f)
	if err == nil || !strings.Contains(err.Error(), "binding 7 out of range") {
		t.Fatalf("expected dangling binding, got %v", err)
	}
}

func TestSharedExpression(t *testing.T) {
	b := tree.NewFunc("main")
	lit := b.Lit("1", types.NoTypeID)
	fn := b.Finish(b.Block(lit, lit))
	u, f := attached(t, fn, "")
	if err := CheckUnitInvariants(u, f); err == nil || !strings.Contains(err.Error(), "reached twice") {
		t.Fatalf("expected shared expression, got %v", err)
	}
}

func TestSpanBeyondSource(t *testing.T) {
	b := tree.NewFunc("main")
	fn := b.Finish(b.Block(b.Lit("1", types.NoTypeID), b.Lit("2", types.NoTypeID)))
	u, f := attached(t, fn, "x")
	if err := CheckUnitInvariants(u, f); err == nil || !strings.Contains(err.Error(), "outside content") {
		t.Fatalf("expected span violation, got %v", err)
	}
}
