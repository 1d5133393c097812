package observ

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Timer records how long the steps of a session take. Steps opened with
// Begin are sequential wall-clock phases; time passed to Add is summed per
// name across workers (per-unit passes running in parallel), so it is
// reported separately and left out of the total. Safe for concurrent use.
type Timer struct {
	mu      sync.Mutex
	created time.Time
	phases  []phase
	byName  map[string]int // cumulative phases only
}

type phase struct {
	name       string
	start      time.Time
	dur        time.Duration
	count      int
	note       string
	cumulative bool
}

func NewTimer() *Timer {
	return &Timer{created: time.Now(), byName: make(map[string]int)}
}

// Begin opens a wall-clock phase and returns the handle End takes.
func (t *Timer) Begin(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = append(t.phases, phase{name: name, start: time.Now(), count: 1})
	return len(t.phases) - 1
}

// End closes the phase opened by Begin. Unknown handles are ignored.
func (t *Timer) End(idx int, note string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.phases) || t.phases[idx].cumulative {
		return
	}
	p := &t.phases[idx]
	p.dur = time.Since(p.start)
	p.note = note
}

// Add sums d into the cumulative phase name.
func (t *Timer) Add(name string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx, ok := t.byName[name]; ok {
		t.phases[idx].dur += d
		t.phases[idx].count++
		return
	}
	t.byName[name] = len(t.phases)
	t.phases = append(t.phases, phase{name: name, dur: d, count: 1, cumulative: true})
}

// PhaseReport представляет сжатую информацию о фазе таймера для сериализации.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Count      int     `json:"count,omitempty"`
	Note       string  `json:"note,omitempty"`
	Cumulative bool    `json:"cumulative,omitempty"`
}

// Report описывает агрегированные данные таймера. TotalMS sums the
// wall-clock phases; WallMS is the time since NewTimer.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	WallMS  float64       `json:"wall_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report snapshots the phases in the order they were first seen.
func (t *Timer) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	rep := Report{WallMS: millis(time.Since(t.created))}
	var total time.Duration
	for _, p := range t.phases {
		if !p.cumulative {
			total += p.dur
		}
		rep.Phases = append(rep.Phases, PhaseReport{
			Name:       p.name,
			DurationMS: millis(p.dur),
			Count:      p.count,
			Note:       p.note,
			Cumulative: p.cumulative,
		})
	}
	rep.TotalMS = millis(total)
	return rep
}

// Write prints the report as an aligned table. Cumulative phases are
// marked with Σ and their call count.
func (r Report) Write(w io.Writer) {
	for _, p := range r.Phases {
		mark := " "
		if p.Cumulative {
			mark = "Σ"
		}
		line := fmt.Sprintf("%s %-18s %8.1f ms", mark, p.Name, p.DurationMS)
		if p.Count > 1 {
			line += fmt.Sprintf(" x%d", p.Count)
		}
		if p.Note != "" {
			line += "  " + p.Note
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "  %-18s %8.1f ms (wall %.1f ms)\n", "total", r.TotalMS, r.WallMS)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
