package trace

import (
	"io"
	"sync"
	"sync/atomic"
)

var globalSeq atomic.Uint64

func nextSeq() uint64 { return globalSeq.Add(1) }

// RingTracer keeps the most recent events in memory so a failed session
// can be dumped after the fact.
type RingTracer struct {
	mu    sync.RWMutex
	buf   []Event
	start int // oldest event
	n     int
	level Level
}

// NewRingTracer creates a ring holding up to capacity events.
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = defaultRingSize
	}
	return &RingTracer{buf: make([]Event, capacity), level: level}
}

func (t *RingTracer) Emit(ev *Event) {
	if !t.level.accepts(ev) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	stored := *ev
	stored.Seq = nextSeq()
	if t.n < len(t.buf) {
		t.buf[(t.start+t.n)%len(t.buf)] = stored
		t.n++
		return
	}
	t.buf[t.start] = stored
	t.start = (t.start + 1) % len(t.buf)
}

// Snapshot returns the stored events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	return t.Tail(0)
}

// Tail returns the newest n events, oldest first; n <= 0 means all.
func (t *RingTracer) Tail(n int) []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if n <= 0 || n > t.n {
		n = t.n
	}
	out := make([]Event, n)
	first := t.start + t.n - n
	for i := range out {
		out[i] = t.buf[(first+i)%len(t.buf)]
	}
	return out
}

// Dump writes every stored event to w.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	return writeEvents(w, t.Snapshot(), format)
}

// Unfinished returns the begin events of spans whose end was not recorded,
// oldest first. After a panic these are the units that were in flight.
func (t *RingTracer) Unfinished() []Event {
	events := t.Snapshot()
	ended := make(map[uint64]bool)
	for i := range events {
		if events[i].Kind == KindSpanEnd {
			ended[events[i].SpanID] = true
		}
	}
	var open []Event
	for i := range events {
		if events[i].Kind == KindSpanBegin && !ended[events[i].SpanID] {
			open = append(open, events[i])
		}
	}
	return open
}

func (t *RingTracer) Flush() error  { return nil }
func (t *RingTracer) Close() error  { return nil }
func (t *RingTracer) Level() Level  { return t.level }
func (t *RingTracer) Enabled() bool { return t.level > LevelOff }

func writeEvents(w io.Writer, events []Event, format Format) error {
	for i := range events {
		if _, err := w.Write(FormatEvent(&events[i], format)); err != nil {
			return err
		}
	}
	return nil
}

// StreamTracer writes each event as soon as it is emitted.
type StreamTracer struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	format Format
}

func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	if format == FormatAuto {
		format = FormatText
	}
	return &StreamTracer{w: w, level: level, format: format}
}

func (t *StreamTracer) Emit(ev *Event) {
	if !t.level.accepts(ev) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	ev.Seq = nextSeq()
	// a broken trace sink must not fail the session
	_, _ = t.w.Write(FormatEvent(ev, t.format)) //nolint:errcheck
}

func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if f, ok := t.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

func (t *StreamTracer) Close() error {
	if err := t.Flush(); err != nil {
		return err
	}
	if c, ok := t.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (t *StreamTracer) Level() Level  { return t.level }
func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }

// MultiTracer fans events out to several tracers.
type MultiTracer struct {
	tracers []Tracer
	level   Level
}

func NewMultiTracer(level Level, tracers ...Tracer) *MultiTracer {
	return &MultiTracer{tracers: tracers, level: level}
}

// Emit hands each tracer its own copy; sinks stamp Seq in place.
func (t *MultiTracer) Emit(ev *Event) {
	for _, tr := range t.tracers {
		cp := *ev
		tr.Emit(&cp)
	}
}

func (t *MultiTracer) Flush() error { return t.each(Tracer.Flush) }
func (t *MultiTracer) Close() error { return t.each(Tracer.Close) }

func (t *MultiTracer) each(fn func(Tracer) error) error {
	var first error
	for _, tr := range t.tracers {
		if err := fn(tr); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t *MultiTracer) Level() Level  { return t.level }
func (t *MultiTracer) Enabled() bool { return t.level > LevelOff }
