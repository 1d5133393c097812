package trace

import "github.com/google/uuid"

// NewSessionID returns a fresh identifier used to correlate one session's events.
func NewSessionID() string {
	return uuid.NewString()
}

// sessionTracer stamps every event with a session identifier.
type sessionTracer struct {
	Tracer
	id string
}

// WithSession wraps t so that every emitted event carries id.
func WithSession(t Tracer, id string) Tracer {
	if t == nil || !t.Enabled() {
		return Nop
	}
	return sessionTracer{Tracer: t, id: id}
}

func (s sessionTracer) Emit(ev *Event) {
	if ev == nil {
		return
	}
	ev.Session = s.id
	s.Tracer.Emit(ev)
}

// Session returns the session identifier of t, or "" when t is not session-scoped.
func Session(t Tracer) string {
	if s, ok := t.(sessionTracer); ok {
		return s.id
	}
	return ""
}
