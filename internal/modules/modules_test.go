package modules

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"hostgen/internal/diag"
	"hostgen/internal/pkgmeta"
	"hostgen/internal/source"
	"hostgen/internal/tree"
)

func unit(path string, imports ...string) *tree.Unit {
	u := &tree.Unit{Path: path}
	for i, imp := range imports {
		u.Imports = append(u.Imports, tree.Import{
			Path: imp,
			Span: source.Span{Start: uint32(i * 10), End: uint32(i*10 + len(imp))},
		})
	}
	return u
}

func testSnapshot() *pkgmeta.Snapshot {
	return pkgmeta.NewSnapshot([]pkgmeta.Package{
		{Name: "serde", Version: "1.0.196", Exports: []pkgmeta.Export{
			{Name: "Serialize", Interfaces: []string{"Serialize"}},
			{Name: "json"},
		}},
		{Name: "rand", Version: "0.8.5"},
	})
}

func crawl(t *testing.T, loader tree.Loader, roots ...string) (*Resolver, *Graph, error) {
	t.Helper()
	r := NewResolver(testSnapshot(), loader, nil)
	g, err := r.Crawl(context.Background(), roots, CrawlOptions{})
	return r, g, err
}

func TestUnknownExternalPackage(t *testing.T) {
	_, g, err := crawl(t, tree.NewMapLoader(unit("app/main", "tokio", "serde")), "app/main")
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	problems := g.Problems["app/main"]
	if len(problems) != 1 {
		t.Fatalf("problems = %v", problems)
	}
	var unknown *UnknownPackageError
	if !errors.As(problems[0], &unknown) || unknown.Package != "tokio" {
		t.Fatalf("got %v, want UnknownPackage(tokio)", problems[0])
	}
	if !errors.Is(problems[0], ErrUnknownPackage) {
		t.Fatalf("errors.Is must match the sentinel")
	}
	d := unknown.Diagnostic()
	if d.Code != diag.ModUnknownPackage || d.Rule() != "MOD5101" || len(d.Fixes) == 0 {
		t.Fatalf("diagnostic = %+v", d)
	}
	if got := g.ExternalPackages(); !slices.Equal(got, []string{"serde"}) {
		t.Fatalf("external packages = %v", got)
	}
}

func TestTwoUnitCycleIsFatal(t *testing.T) {
	_, _, err := crawl(t, tree.NewMapLoader(unit("a", "./b"), unit("b", "./a")), "a")
	var cyc *CircularDependencyError
	if !errors.As(err, &cyc) {
		t.Fatalf("got %v, want CircularDependency", err)
	}
	if !slices.Equal(cyc.Units, []string{"a", "b"}) {
		t.Fatalf("units = %v, want [a b]", cyc.Units)
	}
	if !slices.Equal(cyc.Path, []string{"a", "b", "a"}) {
		t.Fatalf("path = %v", cyc.Path)
	}
	if cyc.Diagnostic().Code != diag.ModCircularDependency {
		t.Fatalf("wrong code")
	}
}

func TestSelfImportIsCycle(t *testing.T) {
	_, _, err := crawl(t, tree.NewMapLoader(unit("a", "./a")), "a")
	var cyc *CircularDependencyError
	if !errors.As(err, &cyc) || !slices.Equal(cyc.Units, []string{"a"}) {
		t.Fatalf("got %v, want self cycle", err)
	}
}

func TestCycleRingsTerminate(t *testing.T) {
	for _, n := range []int{2, 3, 17, 50} {
		units := make([]*tree.Unit, n)
		want := make([]string, n)
		for i := range n {
			want[i] = fmt.Sprintf("u%02d", i)
			units[i] = unit(want[i], fmt.Sprintf("./u%02d", (i+1)%n))
		}
		_, _, err := crawl(t, tree.NewMapLoader(units...), "u00")
		var cyc *CircularDependencyError
		if !errors.As(err, &cyc) {
			t.Fatalf("ring %d: got %v", n, err)
		}
		if !slices.Equal(cyc.Units, want) {
			t.Fatalf("ring %d: units = %v", n, cyc.Units)
		}
		if len(cyc.Path) != n+1 {
			t.Fatalf("ring %d: path = %v", n, cyc.Path)
		}
	}
}

func TestDiamondLoadsSharedUnitOnce(t *testing.T) {
	loader := tree.NewMapLoader(
		unit("a", "./b", "./c"),
		unit("b", "./d"),
		unit("c", "./d"),
		unit("d"),
	)
	r, g, err := crawl(t, loader, "a")
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	if n := loader.Loads("d"); n != 1 {
		t.Fatalf("d loaded %d times, want 1", n)
	}
	st := r.Stats()
	if st.Hits != 1 || st.Misses != 3 {
		t.Fatalf("stats = %+v, want 1 hit 3 misses", st)
	}
	order, err := g.Order()
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	want := [][]string{{"d"}, {"b", "c"}, {"a"}}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	if got := g.Deps("a"); !slices.Equal(got, []string{"b", "c"}) {
		t.Fatalf("deps(a) = %v", got)
	}
}

func TestResolveTwiceIsIdentical(t *testing.T) {
	r := NewResolver(testSnapshot(), tree.NewMapLoader(unit("app/util/math")), nil)
	imports := []tree.Import{
		{Path: "./util/math"},
		{Path: "std::fs"},
		{Path: "serde", Items: []string{"Serialize"}},
	}
	for _, imp := range imports {
		first, err := r.Resolve("app/main", imp)
		if err != nil {
			t.Fatalf("%s: %v", imp.Path, err)
		}
		second, err := r.Resolve("app/main", imp)
		if err != nil || first != second {
			t.Fatalf("%s: %v != %v (%v)", imp.Path, first, second, err)
		}
	}
	if st := r.Stats(); st.Hits != 3 || st.Misses != 3 {
		t.Fatalf("stats = %+v", st)
	}
	local, _ := r.Resolve("app/main", imports[0])
	if local.Kind != KindLocal || local.CanonicalPath != "app/util/math" || local.UnitName != UnitName("app/util/math") {
		t.Fatalf("local = %v", local)
	}
	ext, _ := r.Resolve("app/main", imports[2])
	if !ext.NeedsInterface || ext.Item != "Serialize" {
		t.Fatalf("external = %v", ext)
	}
	std, _ := r.Resolve("app/main", imports[1])
	if std.Kind != KindStd || std.StdPath != "std::fs" {
		t.Fatalf("std = %v", std)
	}
}

func TestUnresolvedAndInvalidImports(t *testing.T) {
	_, g, err := crawl(t, tree.NewMapLoader(unit("app/main", "./missing", "bad pkg", "../../../x")), "app/main")
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	problems := g.Problems["app/main"]
	if len(problems) != 3 {
		t.Fatalf("problems = %v", problems)
	}
	if !errors.Is(problems[0], ErrUnresolvedLocal) {
		t.Fatalf("first = %v", problems[0])
	}
	if !errors.Is(problems[1], ErrInvalidImport) || !errors.Is(problems[2], ErrInvalidImport) {
		t.Fatalf("rest = %v", problems[1:])
	}
	if len(g.Units) != 1 {
		t.Fatalf("units = %d", len(g.Units))
	}
}

func TestMissingRootFailsCrawl(t *testing.T) {
	if _, _, err := crawl(t, tree.NewMapLoader(), "nope"); !errors.Is(err, tree.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		path string
		want Kind
	}{
		{"./x", KindLocal},
		{"../y/z", KindLocal},
		{"std::fs", KindStd},
		{"std/io", KindStd},
		{"serde", KindExternal},
		{"serde::json", KindExternal},
		{"", KindInvalid},
		{"9lives", KindInvalid},
	}
	for _, c := range cases {
		got, _ := Classify(c.path)
		if got != c.want {
			t.Fatalf("Classify(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestUnitNameIsStableAndDistinct(t *testing.T) {
	a, b := UnitName("a/b"), UnitName("a_b")
	if a == b {
		t.Fatalf("folded names must differ: %s", a)
	}
	if a != UnitName("a/b") {
		t.Fatalf("unit name not deterministic")
	}
	if got := UnitName("9/Lib"); got[:7] != "u_9_lib" {
		t.Fatalf("unit name = %s", got)
	}
}

func TestStdCapability(t *testing.T) {
	if StdCapability("std::fs::read") != "io" || StdCapability("std/net/dial") != "io" {
		t.Fatalf("fs and net carry io")
	}
	if StdCapability("std::sync::Mutex") != "" || StdCapability("serde::to_string") != "" {
		t.Fatalf("unexpected capability")
	}
	if !KnownStd("collections") || KnownStd("gui") {
		t.Fatalf("known std table")
	}
}

func TestReconcileVersionsAndManifestDelta(t *testing.T) {
	withVersion := func(u *tree.Unit, v string) *tree.Unit {
		u.Imports[0].Version = v
		return u
	}
	loader := tree.NewMapLoader(
		withVersion(unit("a", "serde", "./b", "rand"), "1.0.100"),
		withVersion(unit("b", "serde"), "1.0.150"),
	)
	_, g, err := crawl(t, loader, "a")
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	verdicts, errs := ReconcileVersions(testSnapshot(), g)
	if len(errs) != 0 {
		t.Fatalf("errs = %v", errs)
	}
	delta := ManifestDelta(g, verdicts)
	want := []ManifestEntry{{Package: "rand", Version: "v0.8.5"}, {Package: "serde", Version: "v1.0.150"}}
	if !slices.Equal(delta, want) {
		t.Fatalf("delta = %v, want %v", delta, want)
	}

	conflict := tree.NewMapLoader(withVersion(unit("a", "serde", "./b"), "1.0.0"), withVersion(unit("b", "serde"), "2.0.0"))
	_, g, err = crawl(t, conflict, "a")
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	_, errs = ReconcileVersions(testSnapshot(), g)
	if len(errs) != 1 || !errors.Is(errs[0], ErrVersionConflict) || !errors.Is(errs[0], pkgmeta.ErrMajorMismatch) {
		t.Fatalf("errs = %v", errs)
	}
	var vc *VersionConflictError
	if !errors.As(errs[0], &vc) || len(vc.Requirements) != 2 || len(vc.Diagnostic().Notes) != 1 {
		t.Fatalf("conflict = %+v", vc)
	}
}
