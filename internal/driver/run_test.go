package driver_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"hostgen/internal/cache"
	"hostgen/internal/diag"
	"hostgen/internal/driver"
	"hostgen/internal/modules"
	"hostgen/internal/ownership"
	"hostgen/internal/pkgmeta"
	"hostgen/internal/session"
	"hostgen/internal/testkit"
	"hostgen/internal/tree"
	"hostgen/internal/types"
)

// unit builds a unit dump against a private interner, the way a front end
// writes one.
func unit(path string, in *types.Interner, imports []string, funcs ...tree.Func) *tree.Unit {
	u := &tree.Unit{Path: path, Funcs: funcs}
	for _, imp := range imports {
		u.Imports = append(u.Imports, tree.Import{Path: imp})
	}
	u.Types = in.Table()
	return u
}

func pureFunc(name string) tree.Func {
	fb := tree.NewFunc(name)
	return fb.Finish(fb.Block())
}

// badFunc declares no effects but performs I/O.
func badFunc(name string) tree.Func {
	fb := tree.NewFunc(name).Declare()
	return fb.Finish(fb.Block(fb.Prim(tree.PrimIO)))
}

func httpSnapshot() *pkgmeta.Snapshot {
	return pkgmeta.NewSnapshot([]pkgmeta.Package{{
		Name:    "http",
		Version: "1.4.0",
		Exports: []pkgmeta.Export{{Name: "Client"}},
	}})
}

func newSession(loader tree.Loader) *session.Context {
	sc := session.New(loader, pkgmeta.StaticFetcher{Snapshot: httpSnapshot()})
	sc.Jobs = 1
	return sc
}

func codes(bag *diag.Bag) []diag.Code {
	var out []diag.Code
	for _, d := range bag.Items() {
		out = append(out, d.Code)
	}
	return out
}

func hasCode(bag *diag.Bag, c diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == c {
			return true
		}
	}
	return false
}

func clientAndMain() *tree.MapLoader {
	in := types.NewInterner()
	fetch := tree.NewFunc("fetch").Declare("async").Export()
	client := unit("app/net/client", in, nil, fetch.Finish(fetch.Block(fetch.Await(fetch.Lit("1", in.Builtins().Int)))))

	run := tree.NewFunc("run").Declare()
	main := unit("app/main", in, []string{"./net/client", "std::io", "http::Client"},
		run.Finish(run.Block(run.Call("app/net/client::fetch"))))
	main.Imports[2].Version = "^1.2"
	return tree.NewMapLoader(client, main)
}

func TestRunAnalysesInDependencyOrder(t *testing.T) {
	loader := clientAndMain()
	sc := newSession(loader)

	var phases []string
	res, err := driver.Run(context.Background(), sc, driver.Request{
		Roots:   []string{"app/main"},
		OnPhase: func(p driver.Phase) {
			if p.Done {
				phases = append(phases, p.Name)
			}
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := [][]string{{"app/net/client"}, {"app/main"}}
	if !reflect.DeepEqual(res.Batches, want) {
		t.Fatalf("batches = %v, want %v", res.Batches, want)
	}
	if len(res.Units) != 2 || res.Units[0].Unit != "app/net/client" || res.Units[1].Unit != "app/main" {
		t.Fatalf("units out of order: %+v", res.Units)
	}
	if !res.Unit("app/main").Broken || res.Unit("app/net/client").Broken {
		t.Fatalf("only main calls an async function from a pure one")
	}
	if !hasCode(res.Diagnostics, diag.EffViolation) {
		t.Fatalf("missing effect violation, got %v", codes(res.Diagnostics))
	}
	if !reflect.DeepEqual(res.Manifest, []modules.ManifestEntry{{Package: "http", Version: "v1.2.0"}}) {
		t.Fatalf("manifest = %+v", res.Manifest)
	}
	if _, ok := sc.Signatures.Lookup("app/net/client::fetch"); !ok {
		t.Fatalf("client signature not published")
	}
	if loader.Loads("app/net/client") != 1 {
		t.Fatalf("client loaded %d times", loader.Loads("app/net/client"))
	}
	wantPhases := []string{"metadata", "crawl", "versions", "order", "hash", "analyze"}
	if !reflect.DeepEqual(phases, wantPhases) {
		t.Fatalf("phases = %v, want %v", phases, wantPhases)
	}
	if res.Metrics.UnitsAnalyzed != 2 || res.Metrics.Batches != 2 {
		t.Fatalf("metrics = %s", res.Metrics)
	}
}

func TestRunCycleIsFatal(t *testing.T) {
	in := types.NewInterner()
	a := unit("app/a", in, []string{"./b"}, pureFunc("f"))
	b := unit("app/b", in, []string{"./a"}, pureFunc("g"))
	sc := newSession(tree.NewMapLoader(a, b))

	res, err := driver.Run(context.Background(), sc, driver.Request{Roots: []string{"app/a"}})
	if !errors.Is(err, modules.ErrCircularDependency) {
		t.Fatalf("expected a cycle, got %v", err)
	}
	if res == nil || !hasCode(res.Diagnostics, diag.ModCircularDependency) {
		t.Fatalf("cycle diagnostic missing")
	}
	if len(res.Units) != 0 {
		t.Fatalf("no unit is analysed once a cycle is found")
	}
}

func TestRunReusesSessionResults(t *testing.T) {
	sc := newSession(clientAndMain())
	req := driver.Request{Roots: []string{"app/main"}}
	if _, err := driver.Run(context.Background(), sc, req); err != nil {
		t.Fatalf("first run: %v", err)
	}
	res, err := driver.Run(context.Background(), sc, req)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Metrics.UnitsCached != 2 || res.Metrics.UnitsAnalyzed != 0 || res.Metrics.CacheHits != 2 {
		t.Fatalf("second run should be served from the session cache: %s", res.Metrics)
	}
	if !hasCode(res.Diagnostics, diag.EffViolation) {
		t.Fatalf("cached results keep their diagnostics")
	}
}

func TestRunReadsDiskCache(t *testing.T) {
	dir := t.TempDir()
	req := driver.Request{Roots: []string{"app/main"}}
	for i, wantDisk := range []int64{0, 2} {
		disk, err := cache.OpenDisk(dir)
		if err != nil {
			t.Fatalf("open disk: %v", err)
		}
		sc := newSession(clientAndMain())
		sc.Disk = disk
		res, err := driver.Run(context.Background(), sc, req)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if res.Metrics.DiskHits != wantDisk {
			t.Fatalf("run %d: disk hits = %d, want %d", i, res.Metrics.DiskHits, wantDisk)
		}
		if err := sc.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
}

// readTwice builds app/read whose function reads one binding twice.
func readTwice() *tree.MapLoader {
	in := types.NewInterner()
	fb := tree.NewFunc("show")
	x := fb.Bind("x", in.Builtins().Int)
	fn := fb.Finish(fb.Block(
		fb.Let(x, fb.Lit("1", in.Builtins().Int)),
		fb.Prim(tree.PrimIO, fb.Name(x)),
		fb.Prim(tree.PrimIO, fb.Name(x)),
	))
	return tree.NewMapLoader(unit("app/read", in, nil, fn))
}

func TestDiskCacheSeparatesModes(t *testing.T) {
	dir := t.TempDir()
	req := driver.Request{Roots: []string{"app/read"}}
	runs := []struct {
		mode     ownership.Mode
		want     ownership.Strategy
		diskHits int64
	}{
		{ownership.ModeAOT, ownership.Borrow, 0},
		{ownership.ModeInteractive, ownership.SharedLocal, 0},
		{ownership.ModeInteractive, ownership.SharedLocal, 1},
	}
	for i, run := range runs {
		disk, err := cache.OpenDisk(dir)
		if err != nil {
			t.Fatalf("open disk: %v", err)
		}
		sc := newSession(readTwice())
		sc.Mode = run.mode
		sc.Disk = disk
		res, err := driver.Run(context.Background(), sc, req)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if res.Metrics.DiskHits != run.diskHits {
			t.Fatalf("run %d (%s): disk hits = %d, want %d", i, run.mode, res.Metrics.DiskHits, run.diskHits)
		}
		fa := res.Unit("app/read").Func("show")
		if fa == nil || len(fa.Bindings) != 1 || len(fa.Bindings[0].Uses) != 2 {
			t.Fatalf("run %d: annotation = %+v", i, fa)
		}
		for _, u := range fa.Bindings[0].Uses {
			if u.Strategy != run.want {
				t.Fatalf("run %d (%s): strategy = %s, want %s", i, run.mode, u.Strategy, run.want)
			}
		}
		if err := sc.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
}

func TestRunDiamondInParallel(t *testing.T) {
	in := types.NewInterner()
	units := []*tree.Unit{unit("app/shared", in, nil, pureFunc("base"))}
	var siblings []string
	for i := range 6 {
		path := fmt.Sprintf("app/s%d", i)
		siblings = append(siblings, path)
		units = append(units, unit(path, in, []string{"./shared"}, pureFunc("f")))
	}
	var imports []string
	for _, s := range siblings {
		imports = append(imports, "./"+s[len("app/"):])
	}
	units = append(units, unit("app/main", in, imports, pureFunc("main")))
	loader := tree.NewMapLoader(units...)

	sc := newSession(loader)
	sc.Jobs = 8
	res, err := driver.Run(context.Background(), sc, driver.Request{Roots: []string{"app/main"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := [][]string{{"app/shared"}, siblings, {"app/main"}}
	if !reflect.DeepEqual(res.Batches, want) {
		t.Fatalf("batches = %v, want %v", res.Batches, want)
	}
	if res.Metrics.UnitsAnalyzed != 8 || sc.Results.Len() != 8 {
		t.Fatalf("every unit is analysed once: %s, results %d", res.Metrics, sc.Results.Len())
	}
	if n := loader.Loads("app/shared"); n != 1 {
		t.Fatalf("shared unit loaded %d times", n)
	}
	if res.Diagnostics.HasErrors() {
		t.Fatalf("unexpected errors: %v", codes(res.Diagnostics))
	}
	for _, p := range append(siblings, "app/shared", "app/main") {
		if res.Unit(p) == nil {
			t.Fatalf("missing result for %s", p)
		}
	}
}

func TestRunStopsAtFatalThreshold(t *testing.T) {
	in := types.NewInterner()
	c := unit("app/c", in, nil, badFunc("f"))
	b := unit("app/b", in, []string{"./c"}, pureFunc("g"))
	a := unit("app/a", in, []string{"./b"}, pureFunc("h"))
	sc := newSession(tree.NewMapLoader(a, b, c))
	sc.FatalThreshold = 1

	events := make(chan driver.Event, 64)
	res, err := driver.Run(context.Background(), sc, driver.Request{
		Roots:    []string{"app/a"},
		Progress: driver.ChannelSink{Ch: events},
	})
	close(events)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !reflect.DeepEqual(res.Skipped, []string{"app/b", "app/a"}) {
		t.Fatalf("skipped = %v", res.Skipped)
	}
	var stop *diag.Diagnostic
	for _, d := range res.Diagnostics.Items() {
		if d.Code == diag.DrvSessionStopped {
			stop = d
		}
	}
	if stop == nil || !strings.Contains(stop.Message, "app/b, app/a") {
		t.Fatalf("stop diagnostic missing or incomplete: %+v", stop)
	}

	statuses := make(map[string]driver.Status)
	for ev := range events {
		statuses[ev.Unit] = ev.Status
	}
	want := map[string]driver.Status{"app/c": driver.StatusError, "app/b": driver.StatusSkipped, "app/a": driver.StatusSkipped}
	if !reflect.DeepEqual(statuses, want) {
		t.Fatalf("final statuses = %v, want %v", statuses, want)
	}
}

func TestRunReportsSuppressedDiagnostics(t *testing.T) {
	in := types.NewInterner()
	u := unit("app/a", in, nil, badFunc("f"), badFunc("g"), badFunc("h"))
	sc := newSession(tree.NewMapLoader(u))
	sc.MaxDiagnostics = 1

	res, err := driver.Run(context.Background(), sc, driver.Request{Roots: []string{"app/a"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !hasCode(res.Diagnostics, diag.DrvDiagnosticsSuppressed) {
		t.Fatalf("expected a suppression notice, got %v", codes(res.Diagnostics))
	}
	if res.Diagnostics.ErrorCount() != 1 {
		t.Fatalf("bag keeps %d errors, want 1", res.Diagnostics.ErrorCount())
	}
}

func TestRunMissingRoot(t *testing.T) {
	sc := newSession(tree.NewMapLoader())
	if _, err := driver.Run(context.Background(), sc, driver.Request{Roots: []string{"app/nowhere"}}); err == nil {
		t.Fatalf("expected an error for a missing root")
	}
	if _, err := driver.Run(context.Background(), sc, driver.Request{}); err == nil {
		t.Fatalf("expected an error without roots")
	}
}

func TestCrawledUnitsAreWellFormed(t *testing.T) {
	sc := newSession(clientAndMain())
	res, err := driver.Run(context.Background(), sc, driver.Request{Roots: []string{"app/main"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, u := range res.Graph.Units {
		if err := testkit.CheckUnitInvariants(u, sc.Files.Get(u.File)); err != nil {
			t.Fatalf("%s: %v", u.Path, err)
		}
	}
}

func TestRunTimingsDiagnostic(t *testing.T) {
	sc := newSession(clientAndMain())
	res, err := driver.Run(context.Background(), sc, driver.Request{Roots: []string{"app/main"}, Timings: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var timing *diag.Diagnostic
	for _, d := range res.Diagnostics.Items() {
		if d.Code == diag.DrvInfo {
			timing = d
		}
	}
	if timing == nil || len(timing.Notes) != 1 {
		t.Fatalf("missing timing diagnostic: %v", codes(res.Diagnostics))
	}
	if !strings.Contains(timing.Message, "2 units analysed") {
		t.Fatalf("unexpected message %q", timing.Message)
	}
	note := timing.Notes[0].Msg
	for _, want := range []string{`"kind":"session"`, `"roots":["app/main"]`, `"total_ms"`, `"name":"crawl"`, `"units_analyzed":2`} {
		if !strings.Contains(note, want) {
			t.Fatalf("timing note lacks %s: %s", want, note)
		}
	}
}
