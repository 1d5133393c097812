package trace

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Heartbeat emits a periodic event naming the units still in flight.
// A unit that shows up in many consecutive heartbeats is stuck.
type Heartbeat struct {
	tracer   Tracer
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

// StartHeartbeat starts emitting on tracer every interval. It returns nil
// when tracing is off or interval is not positive; Stop accepts nil.
func StartHeartbeat(tracer Tracer, interval time.Duration) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{
		tracer:   tracer,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Heartbeat) run() {
	defer close(h.done)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for beat := 1; ; beat++ {
		select {
		case <-h.stop:
			return
		case now := <-ticker.C:
			h.tracer.Emit(beatEvent(now, beat, InFlight()))
		}
	}
}

func beatEvent(now time.Time, beat int, units []string) *Event {
	detail := fmt.Sprintf("#%d open=%d", beat, len(units))
	if len(units) > 0 {
		detail += " " + strings.Join(units, ",")
	}
	return &Event{
		Time:   now,
		Kind:   KindHeartbeat,
		Scope:  ScopeSession,
		Name:   "heartbeat",
		Detail: detail,
	}
}

// Stop ends the heartbeat and waits for its goroutine.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.stop) })
	<-h.done
}
