package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestLevelFiltersScopes(t *testing.T) {
	ring := NewRingTracer(16, LevelPhase)
	Begin(ring, ScopePass, "effects", 0).End("")
	Begin(ring, ScopeUnit, "unit:app", 0).End("")
	Point(ring, ScopeSite, "site", "", 0)
	events := ring.Snapshot()
	if len(events) != 2 {
		t.Fatalf("expected 2 pass events, got %d", len(events))
	}
	for _, ev := range events {
		if ev.Scope != ScopePass {
			t.Fatalf("unexpected scope %s", ev.Scope)
		}
	}
}

func TestRingWrapsInOrder(t *testing.T) {
	ring := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		Point(ring, ScopeSite, name, "", 0)
	}
	events := ring.Snapshot()
	var names []string
	for _, ev := range events {
		names = append(names, ev.Name)
	}
	if strings.Join(names, ",") != "c,d,e" {
		t.Fatalf("unexpected ring contents %v", names)
	}
}

func TestSessionStampsEvents(t *testing.T) {
	var buf bytes.Buffer
	st := NewStreamTracer(&buf, LevelDetail, FormatNDJSON)
	tr := WithSession(st, "s-1")
	if Session(tr) != "s-1" {
		t.Fatalf("session id lost")
	}
	sp := Begin(tr, ScopeUnit, "unit:app", 0).WithExtra("hash", "abc")
	sp.End("ok")
	out := buf.String()
	if strings.Count(out, "\n") != 2 {
		t.Fatalf("expected 2 lines, got %q", out)
	}
	if !strings.Contains(out, `"session":"s-1"`) || !strings.Contains(out, `"hash":"abc"`) {
		t.Fatalf("missing fields in %q", out)
	}
}

func TestContextRoundTrip(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatalf("expected Nop for empty context")
	}
	ring := NewRingTracer(4, LevelDebug)
	ctx := WithTracer(context.Background(), ring)
	if FromContext(ctx) != Tracer(ring) {
		t.Fatalf("tracer not propagated")
	}
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("Detail")
	if err != nil || lvl != LevelDetail {
		t.Fatalf("unexpected %v %v", lvl, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRingTailAndUnfinished(t *testing.T) {
	ring := NewRingTracer(8, LevelDetail)
	run := Begin(ring, ScopeSession, "driver.run", 0)
	a := BeginUnit(ring, "driver.unit", "app/a", run.ID())
	b := BeginUnit(ring, "driver.unit", "app/b", run.ID())
	a.End("")

	tail := ring.Tail(2)
	if len(tail) != 2 || tail[0].Unit != "app/b" || tail[1].Kind != KindSpanEnd {
		t.Fatalf("unexpected tail %+v", tail)
	}
	open := ring.Unfinished()
	if len(open) != 2 || open[0].Name != "driver.run" || open[1].Unit != "app/b" {
		t.Fatalf("unexpected unfinished spans %+v", open)
	}
	inFlight := strings.Join(InFlight(), ",")
	if !strings.Contains(inFlight, "app/b") || strings.Contains(inFlight, "app/a") {
		t.Fatalf("unexpected in-flight units %q", inFlight)
	}
	b.End("")
	run.End("")
	if len(ring.Unfinished()) != 0 {
		t.Fatalf("expected every span closed")
	}
}

func TestNewWrapsSessionAndKeepsRing(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &buf, Session: "s-2"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if Session(tr) != "s-2" {
		t.Fatalf("session not applied")
	}
	ring := RingOf(tr)
	if ring == nil {
		t.Fatalf("expected a ring behind the session wrapper")
	}
	Point(tr, ScopePass, "modules.crawl", "", 0)
	if got := ring.Snapshot(); len(got) != 1 || got[0].Session != "s-2" {
		t.Fatalf("unexpected ring contents %+v", got)
	}
	if !strings.Contains(buf.String(), "pass modules.crawl") {
		t.Fatalf("stream output missing event: %q", buf.String())
	}
	if off, _ := New(Config{}); off != Nop || RingOf(off) != nil {
		t.Fatalf("expected Nop for level off")
	}
}

func TestParentPropagation(t *testing.T) {
	ring := NewRingTracer(8, LevelPhase)
	ctx := WithTracer(context.Background(), ring)
	if ParentFrom(ctx) != 0 {
		t.Fatalf("expected no parent")
	}
	run := Begin(ring, ScopeSession, "driver.run", 0)
	ctx = WithParent(ctx, run)
	pass := Begin(FromContext(ctx), ScopePass, "modules.crawl", ParentFrom(ctx))
	if pass.End("") < 0 {
		t.Fatalf("negative duration")
	}
	events := ring.Snapshot()
	if events[1].ParentID != run.ID() {
		t.Fatalf("pass not nested under session: %+v", events[1])
	}
	// disabled spans do not override an existing parent
	ctx = WithParent(ctx, Begin(ring, ScopeUnit, "driver.unit", 0))
	if ParentFrom(ctx) != run.ID() {
		t.Fatalf("disabled span replaced parent")
	}
}

func TestHeartbeatEventNamesUnits(t *testing.T) {
	ev := beatEvent(time.Now(), 3, []string{"app/a", "app/b"})
	if ev.Detail != "#3 open=2 app/a,app/b" {
		t.Fatalf("unexpected detail %q", ev.Detail)
	}
	var h *Heartbeat
	h.Stop()
	if StartHeartbeat(Nop, time.Second) != nil {
		t.Fatalf("expected nil heartbeat for Nop")
	}
}

func TestTextFormatShowsUnitAndDuration(t *testing.T) {
	ev := &Event{
		Seq:      7,
		Kind:     KindSpanEnd,
		Scope:    ScopeUnit,
		ParentID: 1,
		Unit:     "app/main",
		Name:     "driver.unit",
		Detail:   "done",
		Dur:      1500 * time.Microsecond,
		Extra:    map[string]string{"b": "2", "a": "1"},
	}
	got := string(FormatEvent(ev, FormatText))
	want := "[     7]   ← unit driver.unit [app/main] (done) +1.5ms {a=1, b=2}\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	js := string(FormatEvent(ev, FormatNDJSON))
	if !strings.Contains(js, `"unit":"app/main"`) || !strings.Contains(js, `"dur_us":1500`) {
		t.Fatalf("unexpected json %q", js)
	}
}
