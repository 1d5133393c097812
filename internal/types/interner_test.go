package types

import "testing"

func TestInternerBuiltins(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	if b.Unit == NoTypeID || b.Bool == NoTypeID {
		t.Fatalf("builtins not initialized")
	}
	unit, _ := in.Lookup(b.Unit)
	if unit.Kind != KindUnit {
		t.Fatalf("expected unit kind, got %v", unit.Kind)
	}
}

func TestInternerDeduplicatesDescriptors(t *testing.T) {
	in := NewInterner()
	elem := in.Builtins().String
	v1 := in.Named("Vec", elem)
	v2 := in.Named("Vec", elem)
	if v1 != v2 {
		t.Fatalf("named types should be deduplicated")
	}
	if in.Named("Vec", in.Builtins().Int) == v1 {
		t.Fatalf("type arguments must affect identity")
	}
}

func TestReferenceMutabilityAffectsIdentity(t *testing.T) {
	in := NewInterner()
	elem := in.Builtins().Int
	if in.Ref(elem, true) == in.Ref(elem, false) {
		t.Fatalf("mutable and immutable references must differ")
	}
}

func TestLabels(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	counter := in.Named("Counter")
	cases := []struct {
		id   TypeID
		want string
	}{
		{in.Ref(counter, false), "&Counter"},
		{in.Intern(MakeBox(in.Ref(counter, true))), "Box<&mut Counter>"},
		{in.Named("Map", b.String, b.Int), "Map<string, int>"},
		{in.Intern(MakeFn([]TypeID{b.Int}, b.Bool)), "fn(int) -> bool"},
		{in.Intern(MakeShared(in.Intern(MakeParam("T")))), "Shared<T>"},
	}
	for _, tc := range cases {
		if got := Label(in, tc.id); got != tc.want {
			t.Fatalf("label: got %q, want %q", got, tc.want)
		}
	}
}

func TestDerefChain(t *testing.T) {
	in := NewInterner()
	counter := in.Named("Counter")
	boxed := in.Intern(MakeBox(counter))
	ref := in.Ref(boxed, false)
	chain := in.DerefChain(ref, 8)
	if len(chain) != 3 || chain[0] != ref || chain[1] != boxed || chain[2] != counter {
		t.Fatalf("unexpected chain %v", chain)
	}
	if _, ok := in.Deref(counter); ok {
		t.Fatalf("named type must not deref")
	}
}

func TestAssignable(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	counter := in.Named("Counter")
	if !in.Assignable(b.Int, b.Int) {
		t.Fatalf("identity must be assignable")
	}
	if in.Assignable(b.String, b.Int) {
		t.Fatalf("string must not be assignable to int")
	}
	if !in.Assignable(b.String, in.Intern(MakeParam("T"))) {
		t.Fatalf("generic parameter accepts everything")
	}
	if !in.Assignable(in.Ref(counter, true), in.Ref(counter, false)) {
		t.Fatalf("&mut T must pass as &T")
	}
	if in.Assignable(in.Ref(counter, false), in.Ref(counter, true)) {
		t.Fatalf("&T must not pass as &mut T")
	}
}

func TestRebaseRemapsForeignTable(t *testing.T) {
	src := NewInterner()
	vec := src.Named("Vec", src.Builtins().String)
	ref := src.Ref(vec, false)

	dst := NewInterner()
	dst.Named("Other")
	remap, err := dst.Rebase(src.Table())
	if err != nil {
		t.Fatalf("rebase: %v", err)
	}
	if Label(dst, remap[ref]) != "&Vec<string>" {
		t.Fatalf("unexpected label %q", Label(dst, remap[ref]))
	}
	if remap[src.Builtins().Int] != dst.Builtins().Int {
		t.Fatalf("builtins must map onto builtins")
	}

	bad := []Type{{}, {Kind: KindRef, Elem: 5}}
	if _, err := dst.Rebase(bad); err == nil {
		t.Fatalf("expected forward reference error")
	}
}
