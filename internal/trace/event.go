package trace

import (
	"fmt"
	"strings"
	"time"
)

// Kind represents the type of trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint     // instant event
	KindHeartbeat // periodic liveness signal
)

func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Scope indicates how coarse an event is. Smaller is coarser.
type Scope uint8

const (
	// ScopeSession covers one engine session (the whole run).
	ScopeSession Scope = iota + 1
	// ScopePass covers one analysis pass (crawl, effects, ownership, iface).
	ScopePass
	// ScopeUnit covers the work done for one unit.
	ScopeUnit
	ScopeSite // single call site or binding
)

func (s Scope) String() string {
	switch s {
	case ScopeSession:
		return "session"
	case ScopePass:
		return "pass"
	case ScopeUnit:
		return "unit"
	case ScopeSite:
		return "site"
	default:
		return "unknown"
	}
}

// Level controls how fine-grained the recorded events are.
type Level uint8

const (
	LevelOff    Level = iota
	LevelPhase        // session + pass boundaries
	LevelDetail       // + per-unit events
	LevelDebug        // + per-site decisions
)

var levelNames = [...]string{"off", "phase", "detail", "debug"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel converts a flag value to a Level; "" means off.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return LevelOff, nil
	}
	for i, name := range levelNames {
		if name == s {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: %s)", s, strings.Join(levelNames[:], "|"))
}

// ShouldEmit reports whether events of scope are recorded at this level.
// Scopes map one to one onto levels: phase keeps session and pass events,
// detail adds units, debug adds sites.
func (l Level) ShouldEmit(scope Scope) bool {
	if l == LevelOff || scope == 0 {
		return false
	}
	return uint8(scope) <= uint8(l)+1
}

// accepts is the sink-side filter. Heartbeats pass whenever tracing is on.
func (l Level) accepts(ev *Event) bool {
	if ev == nil || l == LevelOff {
		return false
	}
	return ev.Kind == KindHeartbeat || l.ShouldEmit(ev.Scope)
}

// Event is a single trace record.
type Event struct {
	Time     time.Time
	Seq      uint64 // assigned by the sink that stores the event
	Kind     Kind
	Scope    Scope
	Session  string
	SpanID   uint64
	ParentID uint64 // 0 for roots
	Unit     string // unit path the event concerns, if any
	Name     string // e.g. "driver.unit", "modules.crawl"
	Detail   string
	Dur      time.Duration // span length, set on KindSpanEnd
	Extra    map[string]string
}
