package cache_test

import (
	"reflect"
	"testing"

	"hostgen/internal/cache"
	"hostgen/internal/diag"
	"hostgen/internal/effects"
	"hostgen/internal/iface"
	"hostgen/internal/ownership"
	"hostgen/internal/project"
	"hostgen/internal/source"
	"hostgen/internal/tree"
	"hostgen/internal/types"
)

func sampleUnit(in *types.Interner) *tree.Unit {
	b := in.Builtins()
	fb := tree.NewFunc("show").Declare("io")
	n := fb.Param("n", b.Int)
	text := fb.Method(fb.Name(n), "to_string")
	body := fb.Block(fb.Prim(tree.PrimIO, text))
	u := &tree.Unit{Path: "app/show", Funcs: []tree.Func{fb.Finish(body)}}
	u.Digest = project.Sum([]byte("app/show v1"))
	return u
}

func annotate(t *testing.T) *cache.UnitResult {
	t.Helper()
	in := types.NewInterner()
	idx := iface.NewIndex()
	iface.SeedStd(idx, in)
	u := sampleUnit(in)
	ifc := iface.ResolveUnit(u, iface.NewEngine(idx, in), iface.Scope{}, nil)
	eff := effects.Infer(u, effects.Env{Signatures: effects.NewSignatures(), Types: in})
	own := ownership.AnalyzeUnit(u, ownership.Policy{Mode: ownership.ModeBatch})
	d := diag.NewError(diag.IfcNoImplementation, source.Span{Start: 1, End: 2}, "sample")
	return cache.Annotate(u, eff, own, ifc, []*diag.Diagnostic{d})
}

func TestAnnotate(t *testing.T) {
	res := annotate(t)
	if !res.Broken {
		t.Fatalf("an error diagnostic marks the result broken")
	}
	if !reflect.DeepEqual(res.Imports, []string{"use std::fmt::Display;"}) {
		t.Fatalf("imports = %v", res.Imports)
	}
	fa := res.Func("show")
	if fa == nil {
		t.Fatalf("missing function annotation")
	}
	if len(fa.Methods) != 1 || fa.Methods[0].Interface != "std::fmt::Display" {
		t.Fatalf("methods = %+v", fa.Methods)
	}
	if len(fa.Bindings) != 1 || fa.Bindings[0].Name != "n" || len(fa.Bindings[0].Uses) != 1 {
		t.Fatalf("bindings = %+v", fa.Bindings)
	}
	if got := fa.Bindings[0].Uses[0].Strategy; got != ownership.Move {
		t.Fatalf("single use strategy = %v, want move", got)
	}
	if len(res.Signatures) != 1 || res.Signatures[0].Fixed != effects.IO {
		t.Fatalf("signatures = %+v", res.Signatures)
	}
}

func TestResultsFirstWriterWins(t *testing.T) {
	results := cache.NewResults()
	key := project.Sum([]byte("k"))
	first := &cache.UnitResult{Unit: "a"}
	if got := results.Put(key, first); got != first {
		t.Fatalf("first put must store its value")
	}
	if got := results.Put(key, &cache.UnitResult{Unit: "b"}); got != first {
		t.Fatalf("second put must return the stored value, got %q", got.Unit)
	}
	if got, ok := results.Get(key); !ok || got != first {
		t.Fatalf("get = %v, %v", got, ok)
	}
	if results.Len() != 1 {
		t.Fatalf("len = %d, want 1", results.Len())
	}
}

func TestDiskRoundTrip(t *testing.T) {
	disk, err := cache.OpenDisk(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() {
		if err := disk.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}()

	res := annotate(t)
	if _, ok, err := disk.Get(res.Digest); err != nil || ok {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}
	if err := disk.Put(res.Digest, res); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := disk.Get(res.Digest)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Unit != res.Unit || !reflect.DeepEqual(got.Imports, res.Imports) {
		t.Fatalf("round trip lost data: %+v", got)
	}
	if len(got.Diagnostics) != 1 || got.Diagnostics[0].Code != diag.IfcNoImplementation {
		t.Fatalf("diagnostics = %+v", got.Diagnostics)
	}
	if !reflect.DeepEqual(got.Func("show").Effects, res.Func("show").Effects) {
		t.Fatalf("effects differ after round trip")
	}

	if n, err := disk.Len(); err != nil || n != 1 {
		t.Fatalf("len = %d, %v", n, err)
	}
	if err := disk.DropAll(); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, ok, _ := disk.Get(res.Digest); ok {
		t.Fatalf("dropped result still readable")
	}
}

func TestDiskReopen(t *testing.T) {
	dir := t.TempDir()
	res := annotate(t)

	disk, err := cache.OpenDisk(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := disk.Put(res.Digest, res); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := disk.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	disk, err = cache.OpenDisk(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer disk.Close()
	if _, ok, err := disk.Get(res.Digest); err != nil || !ok {
		t.Fatalf("result lost across reopen: ok=%v err=%v", ok, err)
	}
}

func TestNilCachesAreMisses(t *testing.T) {
	var disk *cache.Disk
	if _, ok, err := disk.Get(project.Digest{}); ok || err != nil {
		t.Fatalf("nil disk: ok=%v err=%v", ok, err)
	}
	if err := disk.Put(project.Digest{}, &cache.UnitResult{}); err != nil {
		t.Fatalf("nil disk put: %v", err)
	}
	var results *cache.Results
	if _, ok := results.Get(project.Digest{}); ok {
		t.Fatalf("nil results must miss")
	}
}
