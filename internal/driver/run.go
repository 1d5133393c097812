// Package driver runs one engine session: metadata, the module graph,
// version reconciliation and the per-unit analyses in dependency order.
package driver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"hostgen/internal/cache"
	"hostgen/internal/diag"
	"hostgen/internal/iface"
	"hostgen/internal/modules"
	"hostgen/internal/observ"
	"hostgen/internal/pkgmeta"
	"hostgen/internal/project"
	"hostgen/internal/session"
	"hostgen/internal/source"
	"hostgen/internal/trace"
	"hostgen/internal/tree"
)

type Request struct {
	Roots    []string
	Progress ProgressSink
	OnPhase  func(Phase)
	// Timings adds the phase report to the diagnostics.
	Timings bool
}

type Result struct {
	Graph    *modules.Graph
	Batches  [][]string // dependency order
	Units    []*cache.UnitResult
	Verdicts map[string]pkgmeta.Verdict
	Manifest []modules.ManifestEntry
	// Skipped lists the units never scheduled because the session crossed
	// its fatal threshold.
	Skipped     []string
	Diagnostics *diag.Bag
	Metrics     Metrics
	Timings     observ.Report
}

// Unit returns the result of the unit with the given path, or nil.
func (r *Result) Unit(path string) *cache.UnitResult {
	for _, u := range r.Units {
		if u.Unit == path {
			return u
		}
	}
	return nil
}

// Run analyses req.Roots and everything they import. A dependency cycle
// stops the session before any unit is analysed; the returned Result still
// carries the cycle diagnostic. Every other failure is a diagnostic.
func Run(ctx context.Context, sc *session.Context, req Request) (*Result, error) {
	if len(req.Roots) == 0 {
		return nil, project.ErrNoRoots
	}
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeSession, "driver.run", trace.ParentFrom(ctx))
	defer span.End("")
	ctx = trace.WithParent(ctx, span)

	r := &runner{
		sc:       sc,
		req:      req,
		tracer:   tracer,
		parent:   span.ID(),
		timer:    observ.NewTimer(),
		progress: req.Progress,
		engine:   sc.Engine(),
	}
	if r.progress == nil {
		r.progress = nopSink{}
	}
	res := &Result{Diagnostics: diag.NewBag(sc.MaxDiagnostics)}
	r.bag = res.Diagnostics
	defer func() {
		res.Metrics = r.metrics.snapshot()
		res.Metrics.Resolutions = sc.Resolutions.Stats()
		if st, ok := sc.Loader.(interface{ Stats() tree.LoaderStats }); ok {
			res.Metrics.Loader = st.Stats()
		}
		res.Timings = r.timer.Report()
		span.WithExtra("metrics", res.Metrics.String())
	}()

	snap, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	ph := r.begin("crawl")
	r.progress.OnEvent(Event{Stage: StageCrawl, Status: StatusWorking})
	resolver := modules.NewResolver(snap, sc.Loader, sc.Resolutions)
	g, err := resolver.Crawl(ctx, req.Roots, modules.CrawlOptions{Files: sc.Files, Types: sc.Types})
	r.end(ph, "")
	if err != nil {
		var cyc *modules.CircularDependencyError
		if errors.As(err, &cyc) {
			r.bag.Add(cyc.Diagnostic())
			r.progress.OnEvent(Event{Stage: StageCrawl, Status: StatusError, Err: err})
			return res, err
		}
		return nil, err
	}
	r.progress.OnEvent(Event{Stage: StageCrawl, Status: StatusDone})
	res.Graph = g
	r.graph = g
	r.reportProblems(g)

	ph = r.begin("versions")
	verdicts, errs := modules.ReconcileVersions(snap, g)
	r.report(errs, diag.ModVersionConflict)
	res.Verdicts = verdicts
	res.Manifest = modules.ManifestDelta(g, verdicts)
	r.end(ph, fmt.Sprintf("%d packages", len(verdicts)))

	ph = r.begin("order")
	batches, err := g.Order()
	r.end(ph, fmt.Sprintf("%d batches", len(batches)))
	if err != nil {
		return nil, err
	}
	res.Batches = batches

	ph = r.begin("hash")
	r.digests = unitDigests(g, batches, r.sc.Salt())
	r.scopes = visibleUnits(g, batches)
	r.end(ph, "")

	ph = r.begin("analyze")
	r.progress.OnEvent(Event{Stage: StageAnalyze, Status: StatusWorking})
	units, err := r.analyzeBatches(ctx, batches)
	r.end(ph, fmt.Sprintf("%d units", len(units)))
	if err != nil {
		return nil, err
	}
	res.Units = units
	res.Skipped = r.skipped

	r.finish(res)
	return res, nil
}

type runner struct {
	sc       *session.Context
	req      Request
	tracer   trace.Tracer
	parent   uint64
	timer    *observ.Timer
	progress ProgressSink
	engine   *iface.Engine
	bag      *diag.Bag
	metrics  runMetrics

	graph   *modules.Graph
	digests map[string]project.Digest
	scopes  map[string]map[string]bool

	errorCount atomic.Int64
	stopped    atomic.Bool
	skipped    []string
}

type phase struct {
	idx   int
	name  string
	span  *trace.Span
	start time.Time
}

func (r *runner) begin(name string) phase {
	if r.req.OnPhase != nil {
		r.req.OnPhase(Phase{Name: name})
	}
	return phase{
		idx:   r.timer.Begin(name),
		name:  name,
		span:  trace.Begin(r.tracer, trace.ScopePass, "phase."+name, r.parent),
		start: time.Now(),
	}
}

func (r *runner) end(ph phase, note string) {
	r.timer.End(ph.idx, note)
	ph.span.End(note)
	if r.req.OnPhase != nil {
		r.req.OnPhase(Phase{Name: ph.name, Done: true, Elapsed: time.Since(ph.start), Note: note})
	}
}

// snapshot fetches package metadata once per session, before any analysis.
func (r *runner) snapshot(ctx context.Context) (*pkgmeta.Snapshot, error) {
	if r.sc.Snapshot != nil {
		return r.sc.Snapshot, nil
	}
	ph := r.begin("metadata")
	defer r.end(ph, "")
	if r.sc.Fetcher == nil {
		r.sc.Snapshot = pkgmeta.NewSnapshot(nil)
		return r.sc.Snapshot, nil
	}
	snap, err := r.sc.Fetcher.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("package metadata: %w", err)
	}
	r.sc.Snapshot = snap
	return snap, nil
}

// reportProblems turns per-import failures of the crawl into diagnostics,
// in unit discovery order.
func (r *runner) reportProblems(g *modules.Graph) {
	paths := make([]string, 0, len(g.Problems))
	for p := range g.Problems {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		r.report(g.Problems[p], diag.ModInvalidImport)
	}
}

func (r *runner) report(errs []error, fallback diag.Code) {
	for _, err := range errs {
		d := diag.FromError(err, fallback, source.Span{})
		if d.Severity >= diag.SevError {
			r.addErrors(1)
		}
		r.bag.Add(d)
	}
}

// finish appends session-level diagnostics and puts the stream in order.
func (r *runner) finish(res *Result) {
	bag := res.Diagnostics
	bag.Dedup()
	bag.Sort()
	if len(res.Skipped) > 0 {
		d := diag.New(diag.SevInfo, diag.DrvSessionStopped, source.Span{},
			fmt.Sprintf("stopped after %d errors (threshold %d); %d units not analysed: %s",
				r.errorCount.Load(), r.sc.FatalThreshold, len(res.Skipped), strings.Join(res.Skipped, ", ")))
		forceAdd(bag, d)
	}
	if n := bag.Dropped(); n > 0 {
		forceAdd(bag, diag.New(diag.SevInfo, diag.DrvDiagnosticsSuppressed, source.Span{},
			fmt.Sprintf("%d more diagnostics suppressed (limit %d)", n, r.sc.MaxDiagnostics)))
	}
	if r.req.Timings {
		d, err := timingDiagnostic(r.req.Roots, r.timer.Report(), r.metrics.snapshot())
		if err != nil {
			trace.Point(r.tracer, trace.ScopeSession, "driver.timings", err.Error(), r.parent)
		} else {
			forceAdd(bag, d)
		}
	}
}

// analyzeBatches runs the batches in order; the units of one batch run in
// parallel. Once the error count reaches the fatal threshold no further
// unit starts, while units already running finish.
func (r *runner) analyzeBatches(ctx context.Context, batches [][]string) ([]*cache.UnitResult, error) {
	for _, batch := range batches {
		for _, path := range batch {
			r.progress.OnEvent(Event{Unit: path, Stage: StageAnalyze, Status: StatusQueued})
		}
	}
	jobs := max(r.sc.Jobs, 1)
	var out []*cache.UnitResult
	for _, batch := range batches {
		if r.stopped.Load() {
			r.skip(batch)
			continue
		}
		r.metrics.batch(len(batch))
		results := make([]*cache.UnitResult, len(batch))
		skipped := make([]bool, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(min(jobs, len(batch)))
		for i, path := range batch {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				if r.stopped.Load() {
					skipped[i] = true
					return nil
				}
				res, err := r.analyzeUnit(gctx, path)
				if err != nil {
					return err
				}
				results[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for i, res := range results {
			if skipped[i] {
				r.skip(batch[i : i+1])
				continue
			}
			out = append(out, res)
			for _, d := range res.Diagnostics {
				r.bag.Add(d)
			}
		}
	}
	return out, nil
}

func (r *runner) skip(paths []string) {
	for _, p := range paths {
		r.skipped = append(r.skipped, p)
		r.metrics.skipped.Add(1)
		r.progress.OnEvent(Event{Unit: p, Stage: StageAnalyze, Status: StatusSkipped})
	}
}

// countErrors adds a finished unit's errors.
func (r *runner) countErrors(res *cache.UnitResult) {
	n := 0
	for _, d := range res.Diagnostics {
		if d.Severity >= diag.SevError {
			n++
		}
	}
	if n > 0 {
		r.addErrors(n)
	}
}

// addErrors stops scheduling once the session reaches its fatal threshold.
func (r *runner) addErrors(n int) {
	r.metrics.errors.Add(int64(n))
	total := r.errorCount.Add(int64(n))
	if t := r.sc.FatalThreshold; t > 0 && total >= int64(t) {
		if !r.stopped.Swap(true) {
			trace.Point(r.tracer, trace.ScopeSession, "driver.stop", fmt.Sprintf("%d errors", total), r.parent)
		}
	}
}
