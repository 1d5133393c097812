package observ

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestTimerSeparatesCumulativePhases(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("crawl")
	time.Sleep(time.Millisecond)
	tm.End(idx, "3 units")
	tm.Add("unit.effects", 2*time.Millisecond)
	tm.Add("unit.effects", 3*time.Millisecond)
	tm.End(1, "ignored")

	rep := tm.Report()
	if len(rep.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(rep.Phases))
	}
	crawl, eff := rep.Phases[0], rep.Phases[1]
	if crawl.Cumulative || crawl.Note != "3 units" || crawl.DurationMS < 1 {
		t.Fatalf("unexpected crawl phase %+v", crawl)
	}
	if !eff.Cumulative || eff.Count != 2 || eff.DurationMS != 5 || eff.Note != "" {
		t.Fatalf("unexpected effects phase %+v", eff)
	}
	if rep.TotalMS != crawl.DurationMS {
		t.Fatalf("total %v includes cumulative time", rep.TotalMS)
	}
	if rep.WallMS < rep.TotalMS {
		t.Fatalf("wall %v shorter than total %v", rep.WallMS, rep.TotalMS)
	}

	var buf bytes.Buffer
	rep.Write(&buf)
	out := buf.String()
	if !strings.Contains(out, "Σ unit.effects") || !strings.Contains(out, "x2") || !strings.Contains(out, "3 units") {
		t.Fatalf("unexpected table:\n%s", out)
	}
}
