package trace

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

var spanIDs atomic.Uint64

// inflight tracks unit spans that have begun but not ended, for heartbeats.
var inflight = struct {
	sync.Mutex
	units map[uint64]string
}{units: make(map[uint64]string)}

// InFlight returns the units whose spans are currently open, sorted.
func InFlight() []string {
	inflight.Lock()
	out := make([]string, 0, len(inflight.units))
	for _, u := range inflight.units {
		out = append(out, u)
	}
	inflight.Unlock()
	sort.Strings(out)
	return out
}

// Span is an open interval of work. The zero-cost form returned for a
// disabled tracer ignores every call.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	scope   Scope
	name    string
	unit    string
	started time.Time
	extra   map[string]string
}

var noSpan = &Span{tracer: Nop}

// Begin opens a span and emits its begin event. parent is 0 for roots.
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	return begin(t, scope, name, "", parent)
}

// BeginUnit opens a unit-scoped span tagged with the unit path. The unit
// is listed by InFlight until the span ends.
func BeginUnit(t Tracer, name, unit string, parent uint64) *Span {
	return begin(t, ScopeUnit, name, unit, parent)
}

func begin(t Tracer, scope Scope, name, unit string, parent uint64) *Span {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return noSpan
	}
	s := &Span{
		tracer:  t,
		id:      spanIDs.Add(1),
		parent:  parent,
		scope:   scope,
		name:    name,
		unit:    unit,
		started: time.Now(),
	}
	if unit != "" {
		inflight.Lock()
		inflight.units[s.id] = unit
		inflight.Unlock()
	}
	t.Emit(s.event(KindSpanBegin, s.started, ""))
	return s
}

func (s *Span) event(kind Kind, at time.Time, detail string) *Event {
	return &Event{
		Time:     at,
		Kind:     kind,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		Unit:     s.unit,
		Name:     s.name,
		Detail:   detail,
	}
}

// End emits the end event and returns how long the span was open.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.id == 0 {
		return 0
	}
	if s.unit != "" {
		inflight.Lock()
		delete(inflight.units, s.id)
		inflight.Unlock()
	}
	now := time.Now()
	ev := s.event(KindSpanEnd, now, detail)
	ev.Dur = now.Sub(s.started)
	ev.Extra = s.extra
	s.tracer.Emit(ev)
	return ev.Dur
}

// WithExtra attaches key=value to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || s.id == 0 {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string)
	}
	s.extra[key] = value
	return s
}

// ID returns the span id, 0 for a disabled span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Point emits an instant event under parent.
func Point(t Tracer, scope Scope, name, detail string, parent uint64) {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return
	}
	t.Emit(&Event{
		Time:     time.Now(),
		Kind:     KindPoint,
		Scope:    scope,
		SpanID:   spanIDs.Add(1),
		ParentID: parent,
		Name:     name,
		Detail:   detail,
	})
}

type tracerKey struct{}
type parentKey struct{}

// FromContext returns the tracer carried by ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx != nil {
		if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
			return t
		}
	}
	return Nop
}

// WithTracer attaches t to ctx.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// WithParent makes s the parent of spans opened from ctx by callees that
// use ParentFrom. A disabled span leaves ctx unchanged.
func WithParent(ctx context.Context, s *Span) context.Context {
	if s.ID() == 0 {
		return ctx
	}
	return context.WithValue(ctx, parentKey{}, s.id)
}

// ParentFrom returns the span id set by WithParent, or 0.
func ParentFrom(ctx context.Context) uint64 {
	if ctx != nil {
		if id, ok := ctx.Value(parentKey{}).(uint64); ok {
			return id
		}
	}
	return 0
}
