package driver

import (
	"context"
	"fmt"
	"time"

	"hostgen/internal/cache"
	"hostgen/internal/diag"
	"hostgen/internal/effects"
	"hostgen/internal/iface"
	"hostgen/internal/ownership"
	"hostgen/internal/project"
	"hostgen/internal/source"
	"hostgen/internal/trace"
	"hostgen/internal/tree"
)

// analyzeUnit produces the result of one unit, from the session cache, the
// disk cache or by running the analyses. Interface declarations and effect
// signatures of the unit are published in every case, since dependents in
// later batches read them.
func (r *runner) analyzeUnit(ctx context.Context, path string) (*cache.UnitResult, error) {
	u := r.graph.Unit(path)
	if u == nil {
		return nil, fmt.Errorf("driver: unit %s missing from graph", path)
	}
	key := r.digests[path]
	span := trace.BeginUnit(r.tracer, "driver.unit", path, r.parent)
	started := time.Now()
	r.progress.OnEvent(Event{Unit: path, Stage: StageAnalyze, Status: StatusWorking})

	iface.DeclareUnit(r.sc.Interfaces, u)

	if res, ok := r.lookup(path, key); ok {
		r.publish(res)
		r.metrics.cached.Add(1)
		r.countErrors(res)
		span.End("cached")
		r.progress.OnEvent(Event{Unit: path, Stage: StageAnalyze, Status: StatusCached, Elapsed: time.Since(started)})
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := r.runAnalyses(u)
	res.Digest = key
	stored := r.sc.Results.Put(key, res)
	if stored == res && r.sc.Disk != nil {
		if err := r.sc.Disk.Put(key, res); err != nil {
			trace.Point(r.tracer, trace.ScopeUnit, "cache.disk.put", err.Error(), span.ID())
		}
	}
	r.publish(stored)
	r.metrics.analyzed.Add(1)
	r.countErrors(stored)

	status := StatusDone
	if stored.Broken {
		status = StatusError
	}
	span.End(string(status))
	r.progress.OnEvent(Event{Unit: path, Stage: StageAnalyze, Status: status, Elapsed: time.Since(started)})
	return stored, nil
}

func (r *runner) lookup(path string, key project.Digest) (*cache.UnitResult, bool) {
	if res, ok := r.sc.Results.Get(key); ok {
		r.metrics.cacheHits.Add(1)
		return res, true
	}
	r.metrics.cacheMisses.Add(1)
	if r.sc.Disk == nil {
		return nil, false
	}
	res, ok, err := r.sc.Disk.Get(key)
	if err != nil {
		trace.Point(r.tracer, trace.ScopeUnit, "cache.disk.get", path+": "+err.Error(), r.parent)
	}
	if !ok {
		r.metrics.diskMisses.Add(1)
		return nil, false
	}
	r.metrics.diskHits.Add(1)
	return r.sc.Results.Put(key, res), true
}

// publish makes the unit's effect signatures visible to its importers.
func (r *runner) publish(res *cache.UnitResult) {
	for _, sig := range res.Signatures {
		r.sc.Signatures.Publish(sig)
	}
}

// runAnalyses runs interface resolution, effect inference and checking,
// then ownership analysis. Method effects come from the resolved interface
// methods, so interface resolution goes first. All findings of the unit are
// collected; none of them stops the others.
func (r *runner) runAnalyses(u *tree.Unit) *cache.UnitResult {
	t0 := time.Now()
	ifc := iface.ResolveUnit(u, r.engine, iface.Scope{Units: r.scopes[u.Path]}, r.sc.Prelude)
	t1 := time.Now()
	r.timer.Add("unit.iface", t1.Sub(t0))

	eff := effects.Infer(u, effects.Env{
		Signatures: r.sc.Signatures,
		Types:      r.sc.Types,
		Method:     methodEffects(ifc),
	})
	violations := effects.Check(u, eff)
	unknown := effects.UnknownCallees(u, eff)
	t2 := time.Now()
	r.timer.Add("unit.effects", t2.Sub(t1))

	own := ownership.AnalyzeUnit(u, r.sc.Policy())
	r.timer.Add("unit.ownership", time.Since(t2))

	var diags []*diag.Diagnostic
	rep := diag.NewDedupReporter(diag.ReporterFunc(func(d *diag.Diagnostic) {
		diags = append(diags, d)
	}))
	diag.ReportErrors(rep, eff.Errors, diag.EffUnknownEffect, source.Span{})
	diag.ReportErrors(rep, violations, diag.EffViolation, source.Span{})
	diag.ReportErrors(rep, unknown, diag.EffUnknownCallee, source.Span{})
	diag.ReportErrors(rep, ifc.Errors, diag.IfcNoImplementation, source.Span{})
	diag.ReportErrors(rep, own.Errors(), diag.OwnUseAfterMove, source.Span{})
	return cache.Annotate(u, eff, own, ifc, diags)
}

// methodEffects reads the declared effects of the interface method each
// call resolved to. Unknown effect names were reported with the
// declaration and are skipped here.
func methodEffects(ifc *iface.UnitResult) func(fn *tree.Func, id tree.ExprID) (effects.Set, bool) {
	return func(fn *tree.Func, id tree.ExprID) (effects.Set, bool) {
		res, ok := ifc.Lookup(fn.Name, id)
		if !ok {
			return effects.Pure, false
		}
		var set effects.Set
		for _, name := range res.Effects {
			if bit, ok := effects.ParseName(name); ok {
				set |= bit
			}
		}
		return set, true
	}
}
