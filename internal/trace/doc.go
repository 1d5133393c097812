// Package trace records what an engine session did and how long it took.
//
// # Usage
//
//	hostgen check --trace=- --trace-level=detail ./bundle.tree
//
// # Tracers
//
//   - Nop: zero-overhead no-op tracer when disabled
//   - StreamTracer: immediate write to output (file/stderr)
//   - RingTracer: circular buffer, dumped when a session fails
//   - MultiTracer: combines multiple tracers
//
// WithSession wraps any of them so each event carries the session id.
//
// # Levels and scopes
//
// LevelPhase emits session and pass boundaries, LevelDetail adds per-unit
// events and LevelDebug adds ScopeSite events for individual decisions.
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopePass, "effects", trace.ParentFrom(ctx))
//	defer span.End("")
//	ctx = trace.WithParent(ctx, span)
//
// Unit spans opened with BeginUnit are listed by InFlight, which the
// heartbeat reports so a stuck unit can be named.
package trace
